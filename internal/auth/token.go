package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrorKind is the reason a token failed verification.
type ErrorKind int

const (
	Malformed ErrorKind = iota + 1
	Expired
)

func (k ErrorKind) Error() string {
	if k == Expired {
		return "token expired"
	}
	return "token malformed"
}

// Message is the client-facing text for the failure.
func (k ErrorKind) Message() string {
	if k == Expired {
		return "Signature expired. Please sign in again."
	}
	return "Invalid token. Please sign in again."
}

// TokenManager issues and verifies HS256 tokens carrying an account ID as
// their subject.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager. A zero ttl is allowed and yields
// tokens that are already expired.
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if ttl < 0 {
		return nil, errors.New("token ttl must not be negative")
	}
	return &TokenManager{secret: secret, ttl: ttl}, nil
}

// TTL returns the lifetime given to issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for accountID valid from now until now+ttl.
func (m *TokenManager) Issue(accountID int, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(accountID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature and expiry of tokenString as of now and returns
// the account ID it asserts. Failures are Expired or Malformed.
func (m *TokenManager) Verify(tokenString string, now time.Time) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, Expired
		}
		return 0, Malformed
	}
	if !token.Valid {
		return 0, Malformed
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id < 1 || strconv.Itoa(id) != claims.Subject {
		return 0, Malformed
	}
	return id, nil
}
