package store

import (
	"context"

	"github.com/aryak/blogfront/internal/models"
)

// Session is the one durable record this client owns: the bearer token
// plus the last-known user, cached so a restart can show who was
// logged in before the token is re-validated.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// Store is the persisted session slot. Get returns (nil, nil) when no
// session is stored; Delete on an empty slot is a no-op.
type Store interface {
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Delete(ctx context.Context) error
}
