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

	"loyalty-ledger-go/internal/events"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"go.uber.org/zap"
)

// RegisterMerchant creates an active MerchantAccount for merchant. Only the
// merchant itself may register.
func (l *Ledger) RegisterMerchant(ctx context.Context, merchant models.Identity) error {
	if err := l.requireAuth(ctx, merchant); err != nil {
		return err
	}
	if err := validateIdentities(merchant); err != nil {
		return err
	}

	_, exists, err := l.loadMerchant(ctx, merchant)
	if err != nil {
		return err
	}
	if exists {
		zap.L().Info("Merchant already registered", zap.String("merchant", merchant.String()))
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, merchant)
	}

	account := models.MerchantAccount{
		Address:           merchant,
		TotalPointsIssued: 0,
		IsActive:          true,
	}
	data, err := encodeMerchant(account)
	if err != nil {
		return err
	}

	opId := l.newOpId()
	if err := l.commit(ctx, "register_merchant", store.Write{Key: MerchantKey(merchant), Value: data}); err != nil {
		return err
	}

	l.emitter.Emit(events.MerchantRegistered{OperationId: opId, Merchant: merchant})
	return nil
}

// IssuePoints credits points to user on behalf of merchant. The user balance,
// the merchant's cumulative issuance and the total supply all grow by points,
// or nothing changes.
func (l *Ledger) IssuePoints(ctx context.Context, merchant, user models.Identity, points uint64) error {
	if err := l.requireAuth(ctx, merchant); err != nil {
		return err
	}
	if err := validateIdentities(merchant, user); err != nil {
		return err
	}

	account, err := l.loadActiveMerchant(ctx, merchant)
	if err != nil {
		return err
	}
	balance, err := l.loadBalanceOrDefault(ctx, user)
	if err != nil {
		return err
	}
	supply, err := l.loadTotalSupply(ctx)
	if err != nil {
		return err
	}

	newPoints, err := checkedAdd(balance.Points, points, "user balance")
	if err != nil {
		return err
	}
	newIssued, err := checkedAdd(account.TotalPointsIssued, points, "merchant total_points_issued")
	if err != nil {
		return err
	}
	newSupply, err := checkedAdd(supply, points, "total supply")
	if err != nil {
		return err
	}

	balance.Points = newPoints
	account.TotalPointsIssued = newIssued

	balanceData, err := encodeBalance(balance)
	if err != nil {
		return err
	}
	merchantData, err := encodeMerchant(account)
	if err != nil {
		return err
	}

	opId := l.newOpId()
	err = l.commit(ctx, "issue_points",
		store.Write{Key: UserKey(user), Value: balanceData},
		store.Write{Key: MerchantKey(merchant), Value: merchantData},
		store.Write{Key: TotalSupplyKey, Value: encodeSupply(newSupply)},
	)
	if err != nil {
		return err
	}

	l.emitter.Emit(events.PointsIssued{
		OperationId:       opId,
		Merchant:          merchant,
		User:              user,
		Points:            points,
		UserBalance:       newPoints,
		TotalPointsIssued: newIssued,
		TotalSupply:       newSupply,
	})
	return nil
}

// RedeemPoints debits points from user at any registered, active merchant.
// The merchant's total_points_issued is a cumulative issuance counter and is
// not decremented.
func (l *Ledger) RedeemPoints(ctx context.Context, user, merchant models.Identity, points uint64) error {
	if err := l.requireAuth(ctx, user); err != nil {
		return err
	}
	if err := validateIdentities(user, merchant); err != nil {
		return err
	}

	if _, err := l.loadActiveMerchant(ctx, merchant); err != nil {
		return err
	}
	balance, found, err := l.loadBalance(ctx, user)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoBalance, user)
	}
	if balance.Points < points {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientPoints, balance.Points, points)
	}
	supply, err := l.loadTotalSupply(ctx)
	if err != nil {
		return err
	}

	newPoints := balance.Points - points
	// Supply below a single balance means the store is inconsistent; refuse
	// rather than wrap.
	newSupply, err := checkedSub(supply, points, "total supply")
	if err != nil {
		return err
	}

	balance.Points = newPoints
	balanceData, err := encodeBalance(balance)
	if err != nil {
		return err
	}

	opId := l.newOpId()
	err = l.commit(ctx, "redeem_points",
		store.Write{Key: UserKey(user), Value: balanceData},
		store.Write{Key: TotalSupplyKey, Value: encodeSupply(newSupply)},
	)
	if err != nil {
		return err
	}

	l.emitter.Emit(events.PointsRedeemed{
		OperationId: opId,
		User:        user,
		Merchant:    merchant,
		Points:      points,
		UserBalance: newPoints,
		TotalSupply: newSupply,
	})
	return nil
}
