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

package models

// RegisterMerchantRequest is the body of POST /v1/merchants
type RegisterMerchantRequest struct {
	Merchant Identity `json:"merchant"`
}

// IssuePointsRequest is the body of POST /v1/points/issue
type IssuePointsRequest struct {
	Merchant Identity `json:"merchant"`
	User     Identity `json:"user"`
	Points   uint64   `json:"points"`
}

// RedeemPointsRequest is the body of POST /v1/points/redeem
type RedeemPointsRequest struct {
	User     Identity `json:"user"`
	Merchant Identity `json:"merchant"`
	Points   uint64   `json:"points"`
}

// BalanceResponse is returned by GET /v1/balances/{id}
type BalanceResponse struct {
	User   Identity `json:"user"`
	Points uint64   `json:"points"`
}

// SupplyResponse is returned by GET /v1/supply
type SupplyResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
