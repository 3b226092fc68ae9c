package services

import (
	"context"
	"fmt"

	"github.com/ezasdf/users-api/internal/apperr"
	"github.com/ezasdf/users-api/types"
)

// JSONWriter stores a JSON document under a key.
type JSONWriter interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// AccountSnapshot is the exported form of the account listing.
type AccountSnapshot struct {
	GeneratedAt string       `json:"generated_at"`
	Count       int          `json:"count"`
	Users       []types.User `json:"users"`
}

const exportKeyLayout = "20060102T150405Z"

// Export writes the current account listing to w and returns its key.
func (s *UserService) Export(ctx context.Context, w JSONWriter) (string, error) {
	users, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	now := s.clock.Now().UTC()
	key := fmt.Sprintf("exports/accounts-%s.json", now.Format(exportKeyLayout))
	snapshot := AccountSnapshot{
		GeneratedAt: now.Format("2006-01-02T15:04:05Z07:00"),
		Count:       len(users),
		Users:       users,
	}
	if err := w.PutJSON(ctx, key, snapshot); err != nil {
		return "", apperr.Wrap(apperr.Internal, apperr.MsgTryAgain, err)
	}

	s.logger.InfoContext(ctx, "accounts exported", "key", key, "count", len(users))
	return key, nil
}
