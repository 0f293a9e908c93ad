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

import "strings"

// Identity is an externally authenticated principal (merchant or user).
type Identity string

func (i Identity) String() string { return string(i) }

// Valid reports whether the identity can be used as a record key.
func (i Identity) Valid() bool {
	return strings.TrimSpace(string(i)) != ""
}

// MerchantAccount is the persisted state of a registered merchant.
// TotalPointsIssued is cumulative and is never decremented by redemptions.
type MerchantAccount struct {
	Address           Identity `json:"address"`
	TotalPointsIssued uint64   `json:"total_points_issued"`
	IsActive          bool     `json:"is_active"`
}

// UserBalance is the persisted point balance of a user
type UserBalance struct {
	Address Identity `json:"address"`
	Points  uint64   `json:"points"`
}
