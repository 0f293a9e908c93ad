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

	"loyalty-ledger-go/internal/models"
)

// GetUserBalance returns the user's points, 0 for unknown users
func (s *LedgerService) GetUserBalance(ctx context.Context, user models.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ViewUserBalance(ctx, user)
}

// GetMerchant returns the merchant account and whether it is registered
func (s *LedgerService) GetMerchant(ctx context.Context, merchant models.Identity) (models.MerchantAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GetMerchant(ctx, merchant)
}

// GetTotalSupply returns the number of points in circulation
func (s *LedgerService) GetTotalSupply(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TotalSupply(ctx)
}
