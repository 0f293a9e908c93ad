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

package leveldb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"loyalty-ledger-go/internal/store"

	ldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// Compile-time checks: *Store must satisfy the store interfaces.
var (
	_ store.Store   = (*Store)(nil)
	_ store.Scanner = (*Store)(nil)
	_ store.Purger  = (*Store)(nil)
)

// instanceKey holds the instance expiry as 8 big-endian bytes of unix
// nanoseconds, 0 for never. Ledger keys never start with a NUL byte.
var instanceKey = []byte("\x00instance")

// ErrReservedKey is returned when a write targets the instance record.
var ErrReservedKey = errors.New("key is reserved")

var writeOpts = &opt.WriteOptions{Sync: true}

// Store is a persistent ledger store backed by LevelDB. All entries share
// one instance lifetime kept under a reserved key.
type Store struct {
	db       *ldb.DB
	lifetime time.Duration
	now      func() time.Time

	// serializes read-modify-write of the instance expiry
	writeMu sync.Mutex
}

// Open creates or opens a LevelDB database at path.
func Open(path string, lifetime time.Duration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("leveldb path cannot be empty")
	}
	if lifetime < 0 {
		return nil, fmt.Errorf("instance lifetime cannot be negative, got %v", lifetime)
	}

	zap.L().Info("Opening LevelDB database", zap.String("path", path))
	db, err := ldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open leveldb: %w", err)
	}
	return newStore(db, lifetime), nil
}

// OpenMemory opens a LevelDB instance over in-memory storage.
func OpenMemory(lifetime time.Duration) (*Store, error) {
	db, err := ldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open in-memory leveldb: %w", err)
	}
	return newStore(db, lifetime), nil
}

func newStore(db *ldb.DB, lifetime time.Duration) *Store {
	return &Store{db: db, lifetime: lifetime, now: time.Now}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.now = now
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, false, wrapErr("snapshot", err)
	}
	defer snap.Release()

	expiresAt, _, err := instanceExpiry(snap)
	if err != nil {
		return nil, false, err
	}
	if store.Expired(s.now(), expiresAt) {
		return nil, false, nil
	}

	value, err := snap.Get([]byte(key), nil)
	if errors.Is(err, ldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapErr(fmt.Sprintf("get %s", key), err)
	}
	return value, true, nil
}

// Apply writes every entry in one leveldb.Batch. Writing to an expired
// instance deletes its old entries in the same batch.
func (s *Store) Apply(_ context.Context, writes ...store.Write) error {
	if err := store.ValidateWrites(writes); err != nil {
		return err
	}
	for _, w := range writes {
		if w.Key == string(instanceKey) {
			return fmt.Errorf("write %q: %w", w.Key, ErrReservedKey)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	existing, found, err := instanceExpiry(s.db)
	if err != nil {
		return err
	}
	live := found && !store.Expired(now, existing)

	batch := new(ldb.Batch)
	if found && !live {
		if _, err := s.deleteEntries(batch); err != nil {
			return err
		}
	}
	for _, w := range writes {
		batch.Put([]byte(w.Key), w.Value)
	}
	expiresAt := store.MergeExpiry(now, existing, live, store.ExpiryFor(now, s.lifetime))
	batch.Put(instanceKey, encodeExpiry(expiresAt))

	if err := s.db.Write(batch, writeOpts); err != nil {
		return wrapErr("write batch", err)
	}
	return nil
}

// ExtendLifetime moves the instance expiry out to now+maxExtension when less
// than minRemaining is left.
func (s *Store) ExtendLifetime(_ context.Context, minRemaining, maxExtension time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	expiresAt, found, err := instanceExpiry(s.db)
	if err != nil {
		return err
	}
	if !found || !store.NeedsExtension(now, expiresAt, minRemaining) {
		return nil
	}

	if err := s.db.Put(instanceKey, encodeExpiry(now.Add(maxExtension)), writeOpts); err != nil {
		return wrapErr("extend lifetime", err)
	}
	zap.L().Debug("Extended ledger instance lifetime",
		zap.Duration("max_extension", maxExtension))
	return nil
}

// Scan visits entries whose key starts with prefix, in key order.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return wrapErr("snapshot", err)
	}
	defer snap.Release()

	expiresAt, _, err := instanceExpiry(snap)
	if err != nil {
		return err
	}
	if store.Expired(s.now(), expiresAt) {
		return nil
	}

	iter := snap.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if string(iter.Key()) == string(instanceKey) {
			continue
		}
		if err := fn(string(iter.Key()), append([]byte(nil), iter.Value()...)); err != nil {
			return err
		}
	}
	return wrapErr("iterate entries", iter.Error())
}

// PurgeExpired deletes every entry once the instance has expired and then
// compacts the key range. Entry contents are never inspected.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	expiresAt, found, err := instanceExpiry(s.db)
	if err != nil {
		return 0, err
	}
	if !found || !store.Expired(s.now(), expiresAt) {
		return 0, nil
	}

	batch := new(ldb.Batch)
	purged, err := s.deleteEntries(batch)
	if err != nil {
		return 0, err
	}
	batch.Delete(instanceKey)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.db.Write(batch, writeOpts); err != nil {
		return 0, wrapErr("delete expired", err)
	}
	if err := s.db.CompactRange(util.Range{}); err != nil {
		return 0, wrapErr("compact", err)
	}
	zap.L().Info("Purged expired ledger entries", zap.Int64("count", purged))
	return purged, nil
}

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close leveldb", zap.Error(err))
	}
}

// deleteEntries queues a delete for every entry key and returns how many.
func (s *Store) deleteEntries(batch *ldb.Batch) (int64, error) {
	var n int64
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if string(iter.Key()) == string(instanceKey) {
			continue
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		n++
	}
	return n, wrapErr("iterate entries", iter.Error())
}

// reader is satisfied by both *ldb.DB and *ldb.Snapshot.
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
}

// instanceExpiry reads the instance record; found is false before the first write.
func instanceExpiry(r reader) (time.Time, bool, error) {
	raw, err := r.Get(instanceKey, nil)
	if errors.Is(err, ldb.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wrapErr("get instance lifetime", err)
	}
	expiresAt, err := decodeExpiry(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return expiresAt, true, nil
}

func encodeExpiry(expiresAt time.Time) []byte {
	out := make([]byte, 8)
	var nanos int64
	if !expiresAt.IsZero() {
		nanos = expiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(out, uint64(nanos))
	return out
}

func decodeExpiry(raw []byte) (time.Time, error) {
	if len(raw) != 8 {
		return time.Time{}, fmt.Errorf("corrupt instance lifetime record of %d bytes", len(raw))
	}
	nanos := int64(binary.BigEndian.Uint64(raw))
	if nanos == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, nanos), nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ldb.ErrClosed) {
		return fmt.Errorf("leveldb %s: %w", op, store.ErrClosed)
	}
	return fmt.Errorf("leveldb %s: %w", op, err)
}
