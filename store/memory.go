/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Seednode/perfil/game"
)

// Memory keeps serialized sessions in a map. The default backend, and the
// substitute used by tests. Sessions are stored as JSON bytes so Load always
// returns an independent copy, matching the external-backend behavior.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	onChange func(id string)
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string][]byte),
	}
}

// Notify registers a callback invoked with the session ID after every
// committed Save or Delete, outside the store lock. It stands in for the
// storage-change event a second tab would observe; read-side views refresh
// from it, transitions never depend on it.
func (m *Memory) Notify(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

func (m *Memory) Save(_ context.Context, session *game.SessionState) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	m.mu.Lock()
	m.sessions[session.ID] = data
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(session.ID)
	}

	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*game.SessionState, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var session game.SessionState
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	return &session, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	fn := m.onChange
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if fn != nil {
		fn(id)
	}

	return nil
}
