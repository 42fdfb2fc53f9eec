/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Seednode/perfil/game"
	"github.com/redis/go-redis/v9"
)

// Redis stores each session as a JSON blob under perfil:session:<id>, with
// an optional TTL for automatic cleanup of abandoned games.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection. ttl of 0 means
// sessions never expire.
func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &Redis{
		client: client,
		ttl:    ttl,
	}, nil
}

func (r *Redis) Save(ctx context.Context, session *game.SessionState) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	return nil
}

func (r *Redis) Load(ctx context.Context, id string) (*game.SessionState, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, &StorageError{Op: "load", Err: err}
	}

	var session game.SessionState
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	return &session, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func sessionKey(id string) string {
	return "perfil:session:" + id
}
