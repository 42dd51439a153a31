// Copyright 2025 Coverdesk
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


// Package postgres implements storage.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coverdesk/docpipe/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend wraps a pgx connection pool and implements storage.Store.
type Backend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.Store = (*Backend)(nil)

// Open connects to PostgreSQL and ensures the schema exists.
//
// Returns storage.Store interface to enforce abstraction.
func Open(ctx context.Context, dsn string) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	b := &Backend{
		pool:   pool,
		logger: slog.Default().With("component", "postgres"),
	}

	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return b, nil
}

// migrate applies the idempotent schema.
func (b *Backend) migrate(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	b.logger.Debug("schema ensured")
	return nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}
