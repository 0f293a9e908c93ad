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

package common

import (
	"context"
	"fmt"
	"strings"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ListUserBalances returns stored user balances in identity order.
// If userFilter is provided, returns only that user (with 0 points when the
// user has no record). If userFilter is empty, returns every user.
func ListUserBalances(ctx context.Context, st store.Store, userFilter models.Identity, logger *zap.Logger) ([]models.UserBalance, error) {
	if userFilter != "" {
		logger.Info("Looking up user balance", zap.String("user", userFilter.String()))
		data, found, err := st.Get(ctx, ledger.UserKey(userFilter))
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		if !found {
			return []models.UserBalance{{Address: userFilter}}, nil
		}
		balance, err := ledger.DecodeBalance(data)
		if err != nil {
			return nil, err
		}
		return []models.UserBalance{balance}, nil
	}

	scanner, ok := st.(store.Scanner)
	if !ok {
		return nil, fmt.Errorf("store %T does not support listing balances", st)
	}

	var balances []models.UserBalance
	err := scanner.Scan(ctx, ledger.UserPrefix(), func(key string, value []byte) error {
		balance, err := ledger.DecodeBalance(value)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.TrimPrefix(key, ledger.UserPrefix()), err)
		}
		balances = append(balances, balance)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	logger.Info("Retrieved user balances", zap.Int("count", len(balances)))
	return balances, nil
}

// ListMerchants returns every registered merchant account in identity order.
func ListMerchants(ctx context.Context, st store.Store) ([]models.MerchantAccount, error) {
	scanner, ok := st.(store.Scanner)
	if !ok {
		return nil, fmt.Errorf("store %T does not support listing merchants", st)
	}

	var merchants []models.MerchantAccount
	err := scanner.Scan(ctx, ledger.MerchantPrefix(), func(key string, value []byte) error {
		merchant, err := ledger.DecodeMerchant(value)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.TrimPrefix(key, ledger.MerchantPrefix()), err)
		}
		merchants = append(merchants, merchant)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	return merchants, nil
}
