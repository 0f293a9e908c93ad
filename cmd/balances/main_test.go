package main

import (
	"context"
	"strings"
	"testing"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"go.uber.org/zap"
)

func TestSummarizeBalances(t *testing.T) {
	stats := summarizeBalances([]models.UserBalance{
		{Address: "alice", Points: 60},
		{Address: "bob", Points: 0},
		{Address: "carol", Points: 40},
	})
	if stats.totalUsers != 3 || stats.usersWithBalances != 2 || stats.totalPoints != 100 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestReconcileSummary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	l, err := ledger.New(st, ledger.CallerAuthenticator{})
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	shop := models.WithCaller(ctx, "shop")
	if err := l.RegisterMerchant(shop, "shop"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := l.IssuePoints(shop, "shop", "alice", 1200); err != nil {
		t.Fatalf("issue: %v", err)
	}

	summary := reconcileSummary(ctx, l, zap.NewNop())
	if !strings.HasPrefix(summary, "Total supply 1,200 matches 1 balances") {
		t.Errorf("Unexpected summary: %q", summary)
	}

	if err := store.Set(ctx, st, ledger.TotalSupplyKey, []byte("7")); err != nil {
		t.Fatalf("corrupt supply: %v", err)
	}
	summary = reconcileSummary(ctx, l, zap.NewNop())
	if !strings.HasPrefix(summary, "MISMATCH") {
		t.Errorf("Expected mismatch summary, got %q", summary)
	}
}
