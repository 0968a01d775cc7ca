// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checkpoint persists and merges serialized histogram snapshots
// across distributed workers. A run with N independent worker processes
// each periodically pushes its own partial registry/store snapshot to a
// shared store; a reducer pulls every worker's latest snapshot and merges
// them into one combined result.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store persists and retrieves named snapshot blobs. Workers call Save
// under their own key; a reducer calls Keys/Load to gather every worker's
// latest checkpoint.
type Store interface {
	Save(ctx context.Context, key string, snapshot []byte, ttl time.Duration) error
	Load(ctx context.Context, key string) ([]byte, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// LoggingStore is a demo Store that logs instead of touching real
// infrastructure. It lets a demo binary select the Redis adapter without
// needing a live Redis instance. Not for production use.
type LoggingStore struct{}

func (LoggingStore) Save(ctx context.Context, key string, snapshot []byte, ttl time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[checkpoint-demo] SAVE key=%s bytes=%d ttl=%s\n", key, len(snapshot), ttl)
	return nil
}

func (LoggingStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("checkpoint-demo: no snapshot stored for %q", key)
}

func (LoggingStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

// GoRedisStore is a production Store backed by github.com/redis/go-redis/v9.
type GoRedisStore struct{ c *redis.Client }

// NewGoRedisStore constructs a GoRedisStore against addr (e.g. "127.0.0.1:6379").
func NewGoRedisStore(addr string) *GoRedisStore {
	return &GoRedisStore{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisStore) Save(ctx context.Context, key string, snapshot []byte, ttl time.Duration) error {
	return g.c.Set(ctx, key, snapshot, ttl).Err()
}

func (g *GoRedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := g.c.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %q: %w", key, err)
	}
	return b, nil
}

func (g *GoRedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return g.c.Keys(ctx, pattern).Result()
}
