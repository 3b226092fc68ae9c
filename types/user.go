package types

import "time"

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user. Assigned by the store and
	// never reused.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the salted bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Active is false once the account has been deactivated. Inactive
	// accounts fail authorization regardless of token validity.
	Active bool `json:"active" db:"active"`

	// Admin grants access to account-management operations.
	Admin bool `json:"admin" db:"admin"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AccountEventType names a change to an account published on the event channel.
type AccountEventType string

const (
	AccountCreated  AccountEventType = "account.created"
	AccountSignedIn AccountEventType = "account.signed_in"
	AccountUpdated  AccountEventType = "account.updated"
)

// AccountEvent is the payload published for account lifecycle changes.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     int              `json:"user_id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	Active     bool             `json:"active"`
	Admin      bool             `json:"admin"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewAccountEvent builds an event of the given type for user.
func NewAccountEvent(eventType AccountEventType, user User, at time.Time) AccountEvent {
	return AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Active:     user.Active,
		Admin:      user.Admin,
		OccurredAt: at,
	}
}
