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

package api

import (
	"context"
	"fmt"
	"sync"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"
)

// LedgerService exposes the ledger to HTTP handlers. The ledger core takes no
// locks, so every call is serialized here.
type LedgerService struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	store  store.Store
}

func NewLedgerService(l *ledger.Ledger, st store.Store) *LedgerService {
	return &LedgerService{
		ledger: l,
		store:  st,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.store.Get(ctx, ledger.TotalSupplyKey); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

func (s *LedgerService) RegisterMerchant(ctx context.Context, merchant models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RegisterMerchant(ctx, merchant)
}

// IssuePoints credits user and returns the balance the credit produced,
// read under the same lock as the write.
func (s *LedgerService) IssuePoints(ctx context.Context, merchant, user models.Identity, points uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.IssuePoints(ctx, merchant, user, points); err != nil {
		return 0, err
	}
	return s.ledger.ViewUserBalance(ctx, user)
}

// RedeemPoints debits user and returns the balance left by the debit.
func (s *LedgerService) RedeemPoints(ctx context.Context, user, merchant models.Identity, points uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.RedeemPoints(ctx, user, merchant, points); err != nil {
		return 0, err
	}
	return s.ledger.ViewUserBalance(ctx, user)
}

// Reconcile runs the conservation check between writes.
func (s *LedgerService) Reconcile(ctx context.Context) (ledger.ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Reconcile(ctx)
}

// PurgeExpired removes expired entries when the store supports it. It
// returns 0 for stores that cannot purge.
func (s *LedgerService) PurgeExpired(ctx context.Context) (int64, error) {
	purger, ok := s.store.(store.Purger)
	if !ok {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return purger.PurgeExpired(ctx)
}
