package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore(0)
	_, found, err := s.Get(context.Background(), "user:nobody")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Errorf("Expected missing key to be absent")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", s.Len())
	}
}

func TestMemoryStore_ApplyIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	err := s.Apply(ctx, Write{Key: "a", Value: []byte("1")}, Write{Key: "", Value: []byte("2")})
	if !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Expected ErrEmptyKey, got %v", err)
	}
	if _, found, _ := s.Get(ctx, "a"); found {
		t.Errorf("Expected no write to be applied after a rejected write set")
	}

	if err := s.Apply(ctx, Write{Key: "a", Value: []byte("1")}, Write{Key: "b", Value: []byte("2")}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	value, found, err := s.Get(ctx, "b")
	if err != nil || !found || string(value) != "2" {
		t.Errorf("Expected b=2, got %q found=%v err=%v", value, found, err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := Set(ctx, s, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now = now.Add(50 * time.Minute)
	if err := s.ExtendLifetime(ctx, 30*time.Minute, 2*time.Hour); err != nil {
		t.Fatalf("ExtendLifetime failed: %v", err)
	}

	// Without the extension the entry would have expired at +60m.
	now = now.Add(90 * time.Minute)
	if _, found, _ := s.Get(ctx, "k"); !found {
		t.Fatalf("Expected extended entry to be live")
	}

	now = now.Add(time.Hour)
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Errorf("Expected entry to expire after the extension elapsed")
	}

	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged entry, got %d", purged)
	}
}

func TestMemoryStore_EntriesShareInstanceLifetime(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := Set(ctx, s, "user:a", []byte("1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	now = now.Add(40 * time.Minute)
	if err := Set(ctx, s, "user:b", []byte("2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// user:a was written 70 minutes ago but lives as long as the instance.
	now = now.Add(30 * time.Minute)
	for _, key := range []string{"user:a", "user:b"} {
		if _, found, _ := s.Get(ctx, key); !found {
			t.Errorf("Expected %s to be live", key)
		}
	}

	now = now.Add(31 * time.Minute)
	if s.Len() != 0 {
		t.Fatalf("Expected the instance to have expired, got %d entries", s.Len())
	}

	// Writing to an expired instance starts from an empty one.
	if err := Set(ctx, s, "user:c", []byte("3")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found, _ := s.Get(ctx, "user:a"); found {
		t.Errorf("Expected expired entries not to come back")
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 live entry, got %d", s.Len())
	}
}

func TestMemoryStore_ExtendSkipsEntriesAboveThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10 * time.Hour)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if err := Set(ctx, s, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.ExtendLifetime(ctx, time.Hour, 2*time.Hour); err != nil {
		t.Fatalf("ExtendLifetime failed: %v", err)
	}

	now = now.Add(9 * time.Hour)
	if _, found, _ := s.Get(ctx, "k"); !found {
		t.Errorf("Expected entry to keep its original, longer lifetime")
	}
}

func TestMemoryStore_Scan(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	if err := s.Apply(ctx,
		Write{Key: "user:b", Value: []byte("2")},
		Write{Key: "user:a", Value: []byte("1")},
		Write{Key: "merchant:a", Value: []byte("x")},
	); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	var keys []string
	err := s.Scan(ctx, "user:", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "user:a" || keys[1] != "user:b" {
		t.Errorf("Expected [user:a user:b], got %v", keys)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(0)
	s.Close()
	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestMergeExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := now.Add(time.Hour)
	tests := []struct {
		name     string
		existing time.Time
		live     bool
		want     time.Time
	}{
		{"absent", time.Time{}, false, fresh},
		{"expired", now.Add(-time.Minute), true, fresh},
		{"never expires", time.Time{}, true, time.Time{}},
		{"longer lived", now.Add(3 * time.Hour), true, now.Add(3 * time.Hour)},
		{"shorter lived", now.Add(time.Minute), true, fresh},
	}
	for _, tt := range tests {
		if got := MergeExpiry(now, tt.existing, tt.live, fresh); !got.Equal(tt.want) {
			t.Errorf("%s: MergeExpiry = %v, want %v", tt.name, got, tt.want)
		}
	}
}
