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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrClosed   = errors.New("store closed")
	ErrEmptyKey = errors.New("empty key")
)

// Write is a single key/value assignment inside an atomic write set.
type Write struct {
	Key   string
	Value []byte
}

// Store defines the contract that every backend (SQLite, LevelDB, memory) must satisfy.
type Store interface {
	// Get returns the value stored under key. The bool is false when the key
	// is absent or the instance lifetime has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Apply persists every write or none of them.
	Apply(ctx context.Context, writes ...Write) error

	// ExtendLifetime pushes the instance expiry out to now+maxExtension when
	// less than minRemaining is left. Entries never expire individually: the
	// whole instance lives and expires together.
	ExtendLifetime(ctx context.Context, minRemaining, maxExtension time.Duration) error

	Close()
}

// Scanner is implemented by backends that can enumerate live entries by key prefix.
type Scanner interface {
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
}

// Purger is implemented by backends that can reclaim space held by expired entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Set stores a single value.
func Set(ctx context.Context, s Store, key string, value []byte) error {
	return s.Apply(ctx, Write{Key: key, Value: value})
}

// ValidateWrites rejects write sets a backend must not apply.
func ValidateWrites(writes []Write) error {
	for i, w := range writes {
		if w.Key == "" {
			return fmt.Errorf("%w: write %d", ErrEmptyKey, i)
		}
	}
	return nil
}

// ExpiryFor returns the instance expiry for a write at now, or the zero time
// when lifetime is not positive (never expires).
func ExpiryFor(now time.Time, lifetime time.Duration) time.Time {
	if lifetime <= 0 {
		return time.Time{}
	}
	return now.Add(lifetime)
}

// Expired reports whether an instance expiring at expiresAt is gone at now.
func Expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}

// NeedsExtension reports whether a live instance expiring at expiresAt should be
// extended under the given threshold. Expired and non-expiring instances never are.
func NeedsExtension(now, expiresAt time.Time, minRemaining time.Duration) bool {
	if expiresAt.IsZero() || !expiresAt.After(now) {
		return false
	}
	return expiresAt.Sub(now) < minRemaining
}

// MergeExpiry decides the instance expiry after a write. A live instance
// keeps the later of its current and fresh expiry; an empty or expired
// instance takes the fresh one. Zero means the instance never expires.
func MergeExpiry(now, existing time.Time, live bool, fresh time.Time) time.Time {
	if !live || Expired(now, existing) {
		return fresh
	}
	if existing.IsZero() || fresh.IsZero() {
		return time.Time{}
	}
	if existing.After(fresh) {
		return existing
	}
	return fresh
}
