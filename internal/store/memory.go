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
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used when embedding the ledger and in tests.
// All entries share one instance lifetime.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string][]byte
	expiresAt time.Time
	lifetime  time.Duration
	now       func() time.Time
	closed    bool
}

// Compile-time checks: *MemoryStore must satisfy the store interfaces.
var (
	_ Store   = (*MemoryStore)(nil)
	_ Scanner = (*MemoryStore)(nil)
	_ Purger  = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store. The instance expires lifetime after
// its first write unless extended; a zero lifetime keeps it forever.
func NewMemoryStore(lifetime time.Duration) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	if m.expired() {
		return nil, false, nil
	}
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Apply writes every entry under the lock. Writing to an expired instance
// discards its old entries first.
func (m *MemoryStore) Apply(_ context.Context, writes ...Write) error {
	if err := ValidateWrites(writes); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	now := m.now()
	live := len(m.data) > 0 && !m.expired()
	if !live {
		m.data = make(map[string][]byte)
	}
	for _, w := range writes {
		value := make([]byte, len(w.Value))
		copy(value, w.Value)
		m.data[w.Key] = value
	}
	m.expiresAt = MergeExpiry(now, m.expiresAt, live, ExpiryFor(now, m.lifetime))
	return nil
}

func (m *MemoryStore) ExtendLifetime(_ context.Context, minRemaining, maxExtension time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	now := m.now()
	if NeedsExtension(now, m.expiresAt, minRemaining) {
		m.expiresAt = now.Add(maxExtension)
	}
	return nil
}

// Scan visits entries with the given prefix in key order.
func (m *MemoryStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	if m.expired() {
		m.mu.RUnlock()
		return nil
	}
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = m.data[key]
	}
	m.mu.RUnlock()

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(key, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.expired() {
		return 0
	}
	return len(m.data)
}

// PurgeExpired drops every entry once the instance has expired.
func (m *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if !m.expired() {
		return 0, nil
	}
	purged := int64(len(m.data))
	m.data = make(map[string][]byte)
	m.expiresAt = time.Time{}
	return purged, nil
}

func (m *MemoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MemoryStore) expired() bool {
	return Expired(m.now(), m.expiresAt)
}
