/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy the store interfaces.
var (
	_ store.Store   = (*Service)(nil)
	_ store.Scanner = (*Service)(nil)
	_ store.Purger  = (*Service)(nil)
)

type Service struct {
	db       *sql.DB
	lifetime time.Duration
	now      func() time.Time
}

// NewService opens the SQLite ledger store. The instance, and every entry
// with it, expires lifetime after its last write unless extended; a zero
// lifetime keeps it forever.
func NewService(ctx context.Context, cfg models.DatabaseConfig, lifetime time.Duration) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if lifetime < 0 {
		return nil, fmt.Errorf("instance lifetime cannot be negative, got %v", lifetime)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db, lifetime)
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully",
		zap.Duration("instance_lifetime", lifetime))
	return service, nil
}

func newService(db *sql.DB, lifetime time.Duration) *Service {
	return &Service{db: db, lifetime: lifetime, now: time.Now}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, querySchema)
	return err
}

// Get returns the value under key. Every entry is absent once the instance
// has expired.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, queryGetEntry, key, s.now().UnixNano()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get entry %s: %w", key, err)
	}
	return value, true, nil
}

// Apply writes every entry inside one database transaction. Writing to an
// expired instance discards its old entries first.
func (s *Service) Apply(ctx context.Context, writes ...store.Write) error {
	if err := store.ValidateWrites(writes); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	existing, live, err := instanceExpiry(ctx, tx, now)
	if err != nil {
		return err
	}
	if !live {
		if _, err := tx.ExecContext(ctx, queryDeleteEntries); err != nil {
			return fmt.Errorf("failed to reset expired instance: %w", err)
		}
	}

	for _, w := range writes {
		value := w.Value
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.ExecContext(ctx, queryUpsertEntry, w.Key, value, now); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", w.Key, err)
		}
	}

	expiresAt := store.MergeExpiry(now, existing, live, store.ExpiryFor(now, s.lifetime))
	if _, err := tx.ExecContext(ctx, queryUpsertInstance, toUnixNano(expiresAt), now); err != nil {
		return fmt.Errorf("failed to write instance lifetime: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Debug("Ledger entries written", zap.Int("count", len(writes)))
	return nil
}

// ExtendLifetime moves the instance expiry out to now+maxExtension when less
// than minRemaining is left.
func (s *Service) ExtendLifetime(ctx context.Context, minRemaining, maxExtension time.Duration) error {
	now := s.now()
	result, err := s.db.ExecContext(ctx, queryExtendInstance,
		now.Add(maxExtension).UnixNano(), now,
		now.UnixNano(), now.Add(minRemaining).UnixNano())
	if err != nil {
		return fmt.Errorf("failed to extend instance lifetime: %w", err)
	}

	if extended, err := result.RowsAffected(); err == nil && extended > 0 {
		zap.L().Debug("Extended ledger instance lifetime",
			zap.Duration("max_extension", maxExtension))
	}
	return nil
}

// Scan visits entries whose key starts with prefix, in key order.
func (s *Service) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	rows, err := s.db.QueryContext(ctx, queryScanEntries, prefix, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to scan entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of live entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountEntries, s.now().UnixNano()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes every entry once the instance lifetime has run out.
// They are already invisible to readers; this only reclaims space.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	expiresAt, _, err := instanceExpiry(ctx, tx, s.now())
	if err != nil {
		return 0, err
	}
	if !store.Expired(s.now(), expiresAt) {
		return 0, nil
	}

	result, err := tx.ExecContext(ctx, queryDeleteEntries)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryDeleteInstance); err != nil {
		return 0, fmt.Errorf("failed to reset instance lifetime: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Purged expired ledger entries", zap.Int64("count", purged))
	return purged, nil
}

// instanceExpiry reads the instance expiry inside tx. live is false when the
// instance has never been written or has expired.
func instanceExpiry(ctx context.Context, tx *sql.Tx, now time.Time) (time.Time, bool, error) {
	var nanos int64
	err := tx.QueryRowContext(ctx, queryGetInstanceExpiry).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read instance lifetime: %w", err)
	}
	expiresAt := fromUnixNano(nanos)
	return expiresAt, !store.Expired(now, expiresAt), nil
}

// Expiry is stored as unix nanoseconds; 0 means the instance never expires.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
