package main

import (
	"context"
	"testing"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/store"
)

func TestSeedMerchants(t *testing.T) {
	ctx := context.Background()
	l, err := ledger.New(store.NewMemoryStore(0), ledger.CallerAuthenticator{})
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	seeds := []common.MerchantSeed{
		{Id: "coffee-corner", Name: "Coffee Corner"},
		{Id: " book-nook ", Name: "Book Nook"},
	}

	stats := seedMerchants(ctx, l, seeds)
	if stats.registered != 2 || stats.existing != 0 || len(stats.failed) != 0 {
		t.Fatalf("Unexpected first run stats: %+v", stats)
	}

	account, found, err := l.GetMerchant(ctx, "book-nook")
	if err != nil || !found {
		t.Fatalf("Expected book-nook to be registered: found=%v err=%v", found, err)
	}
	if !account.IsActive || account.TotalPointsIssued != 0 {
		t.Errorf("Unexpected account: %+v", account)
	}

	stats = seedMerchants(ctx, l, seeds)
	if stats.registered != 0 || stats.existing != 2 {
		t.Errorf("Expected second run to skip both merchants, got %+v", stats)
	}
}

func TestSeedMerchants_ReportsFailures(t *testing.T) {
	st := store.NewMemoryStore(0)
	l, err := ledger.New(st, ledger.CallerAuthenticator{})
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	st.Close()

	stats := seedMerchants(context.Background(), l, []common.MerchantSeed{{Id: "shop"}})
	if len(stats.failed) != 1 || stats.failed[0] != "shop" {
		t.Errorf("Expected shop to fail, got %+v", stats)
	}
}
