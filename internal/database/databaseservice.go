package database

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by GetState when no value was stored under the key yet.
var ErrStateNotFound = errors.New("state not found")

// DatabaseService persists whole state documents under fixed keys.
// Values are opaque to the database; callers overwrite them wholesale.
type DatabaseService interface {
	CreateDatabase() error
	DoesDatabaseExist() bool
	Close() error

	GetState(ctx context.Context, key string) ([]byte, error)
	SetState(ctx context.Context, key string, value []byte) error
}
