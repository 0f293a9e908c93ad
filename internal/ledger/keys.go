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
	"encoding/json"
	"fmt"
	"strconv"

	"loyalty-ledger-go/internal/models"
)

const (
	merchantPrefix = "merchant:"
	userPrefix     = "user:"

	// TotalSupplyKey holds the number of points in circulation
	TotalSupplyKey = "T_POINTS"
)

// MerchantKey is the store key of a MerchantAccount.
func MerchantKey(id models.Identity) string {
	return merchantPrefix + string(id)
}

// UserKey is the store key of a UserBalance.
func UserKey(id models.Identity) string {
	return userPrefix + string(id)
}

// MerchantPrefix and UserPrefix are the key prefixes for store scans.
func MerchantPrefix() string { return merchantPrefix }
func UserPrefix() string     { return userPrefix }

func encodeMerchant(m models.MerchantAccount) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merchant %s: %w", m.Address, err)
	}
	return data, nil
}

// DecodeMerchant parses a stored MerchantAccount.
func DecodeMerchant(data []byte) (models.MerchantAccount, error) {
	var m models.MerchantAccount
	if err := json.Unmarshal(data, &m); err != nil {
		return models.MerchantAccount{}, fmt.Errorf("failed to decode merchant: %w", err)
	}
	return m, nil
}

func encodeBalance(b models.UserBalance) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode balance for %s: %w", b.Address, err)
	}
	return data, nil
}

// DecodeBalance parses a stored UserBalance.
func DecodeBalance(data []byte) (models.UserBalance, error) {
	var b models.UserBalance
	if err := json.Unmarshal(data, &b); err != nil {
		return models.UserBalance{}, fmt.Errorf("failed to decode balance: %w", err)
	}
	return b, nil
}

func encodeSupply(total uint64) []byte {
	return []byte(strconv.FormatUint(total, 10))
}

func decodeSupply(data []byte) (uint64, error) {
	total, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode total supply %q: %w", data, err)
	}
	return total, nil
}
