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

package ledger

import (
	"context"
	"fmt"
	"strings"

	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ViewUserBalance returns the user's points, 0 when the user has no record.
// Balances are public; no authorization is required and nothing is written.
func (l *Ledger) ViewUserBalance(ctx context.Context, user models.Identity) (uint64, error) {
	balance, found, err := l.loadBalance(ctx, user)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return balance.Points, nil
}

// GetMerchant returns the merchant account, or false if it is not registered.
func (l *Ledger) GetMerchant(ctx context.Context, merchant models.Identity) (models.MerchantAccount, bool, error) {
	return l.loadMerchant(ctx, merchant)
}

// TotalSupply returns the number of points in circulation.
func (l *Ledger) TotalSupply(ctx context.Context) (uint64, error) {
	return l.loadTotalSupply(ctx)
}

// ReconcileReport is the outcome of a conservation check.
type ReconcileReport struct {
	Users           int
	SumOfBalances   uint64
	TotalSupply     uint64
	Merchants       int
	TotalIssuedEver uint64
}

// Balanced reports whether the supply counter equals the sum of balances.
func (r ReconcileReport) Balanced() bool {
	return r.SumOfBalances == r.TotalSupply
}

// Reconcile recomputes the sum of all user balances and compares it with the
// total supply counter. It requires a store that implements store.Scanner and
// returns ErrSupplyMismatch, together with the report, when they differ.
func (l *Ledger) Reconcile(ctx context.Context) (ReconcileReport, error) {
	scanner, ok := l.store.(store.Scanner)
	if !ok {
		return ReconcileReport{}, fmt.Errorf("store %T does not support scanning", l.store)
	}

	var report ReconcileReport
	err := scanner.Scan(ctx, UserPrefix(), func(key string, value []byte) error {
		balance, err := DecodeBalance(value)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.TrimPrefix(key, UserPrefix()), err)
		}
		sum, err := checkedAdd(report.SumOfBalances, balance.Points, "sum of balances")
		if err != nil {
			return err
		}
		report.SumOfBalances = sum
		report.Users++
		return nil
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("failed to scan balances: %w", err)
	}

	err = scanner.Scan(ctx, MerchantPrefix(), func(key string, value []byte) error {
		merchant, err := DecodeMerchant(value)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.TrimPrefix(key, MerchantPrefix()), err)
		}
		sum, err := checkedAdd(report.TotalIssuedEver, merchant.TotalPointsIssued, "sum of issuance")
		if err != nil {
			return err
		}
		report.TotalIssuedEver = sum
		report.Merchants++
		return nil
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("failed to scan merchants: %w", err)
	}

	report.TotalSupply, err = l.loadTotalSupply(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	if !report.Balanced() {
		zap.L().Error("Supply reconciliation failed",
			zap.Uint64("total_supply", report.TotalSupply),
			zap.Uint64("sum_of_balances", report.SumOfBalances),
			zap.Int("users", report.Users))
		return report, fmt.Errorf("%w: supply=%d, balances=%d", ErrSupplyMismatch, report.TotalSupply, report.SumOfBalances)
	}

	zap.L().Info("Supply reconciliation successful",
		zap.Uint64("total_supply", report.TotalSupply),
		zap.Int("users", report.Users),
		zap.Int("merchants", report.Merchants))
	return report, nil
}
