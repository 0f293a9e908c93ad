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

import "errors"

var (
	ErrAuthenticationFailed  = errors.New("loyalty: authentication failed")
	ErrAlreadyRegistered     = errors.New("loyalty: merchant already registered")
	ErrMerchantNotRegistered = errors.New("loyalty: merchant not registered")
	ErrMerchantInactive      = errors.New("loyalty: merchant is not active")
	ErrNoBalance             = errors.New("loyalty: user has no loyalty points")
	ErrInsufficientPoints    = errors.New("loyalty: insufficient loyalty points")
	ErrOverflow              = errors.New("loyalty: point arithmetic overflow")
	ErrInvalidIdentity       = errors.New("loyalty: invalid identity")
	ErrSupplyMismatch        = errors.New("loyalty: total supply does not match balances")
)
