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

package events

import (
	"fmt"

	"loyalty-ledger-go/internal/models"

	"go.uber.org/zap"
)

// MerchantRegistered is emitted when a merchant self-registers.
type MerchantRegistered struct {
	OperationId string
	Merchant    models.Identity
}

func (MerchantRegistered) EventType() string { return TypeMerchantRegistered }

func (e MerchantRegistered) Message() string {
	return fmt.Sprintf("Merchant registered successfully: %s", e.Merchant)
}

func (e MerchantRegistered) Fields() []zap.Field {
	return []zap.Field{
		zap.String("operation_id", e.OperationId),
		zap.String("merchant", e.Merchant.String()),
	}
}

// PointsIssued is emitted after a merchant credits points to a user.
// The totals are the values persisted by the operation.
type PointsIssued struct {
	OperationId       string
	Merchant          models.Identity
	User              models.Identity
	Points            uint64
	UserBalance       uint64
	TotalPointsIssued uint64
	TotalSupply       uint64
}

func (PointsIssued) EventType() string { return TypePointsIssued }

func (e PointsIssued) Message() string {
	return fmt.Sprintf("Issued %d points to %s from merchant %s", e.Points, e.User, e.Merchant)
}

func (e PointsIssued) Fields() []zap.Field {
	return []zap.Field{
		zap.String("operation_id", e.OperationId),
		zap.String("merchant", e.Merchant.String()),
		zap.String("user", e.User.String()),
		zap.Uint64("points", e.Points),
		zap.Uint64("user_balance", e.UserBalance),
		zap.Uint64("total_points_issued", e.TotalPointsIssued),
		zap.Uint64("total_supply", e.TotalSupply),
	}
}

// PointsRedeemed is emitted after a user spends points at a merchant.
type PointsRedeemed struct {
	OperationId string
	User        models.Identity
	Merchant    models.Identity
	Points      uint64
	UserBalance uint64
	TotalSupply uint64
}

func (PointsRedeemed) EventType() string { return TypePointsRedeemed }

func (e PointsRedeemed) Message() string {
	return fmt.Sprintf("User %s redeemed %d points at merchant %s", e.User, e.Points, e.Merchant)
}

func (e PointsRedeemed) Fields() []zap.Field {
	return []zap.Field{
		zap.String("operation_id", e.OperationId),
		zap.String("user", e.User.String()),
		zap.String("merchant", e.Merchant.String()),
		zap.Uint64("points", e.Points),
		zap.Uint64("user_balance", e.UserBalance),
		zap.Uint64("total_supply", e.TotalSupply),
	}
}
