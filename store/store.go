/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package store persists session state between page loads and across tabs.
// Writes are write-through and last-write-wins; concurrent gameplay against
// one session from two writers is not merged.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/perfil/game"
)

// ErrNotFound is returned by Load and Delete for session IDs that do not
// exist. It is distinct from StorageError so callers can show "not found"
// instead of "retry".
var ErrNotFound = errors.New("session not found")

// StorageError wraps a failure of the underlying backend. Retrying is the
// caller's decision.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store is the persistence boundary for sessions, keyed by session ID.
// The engine is agnostic to the backing medium.
type Store interface {
	Save(ctx context.Context, session *game.SessionState) error
	Load(ctx context.Context, id string) (*game.SessionState, error)
	Delete(ctx context.Context, id string) error
}
