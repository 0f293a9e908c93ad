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

package main

import (
	"errors"
	"fmt"
	"os"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/ledger"
)

const (
	exitFailure       = 1
	exitAuthFailed    = 3
	exitNotFound      = 4
	exitConflict      = 5
	exitInsufficient  = 6
	exitSupplyBalance = 7
)

func main() {
	_, loggerCleanup := common.InitializeLogger()

	err := newRootCmd().Execute()
	loggerCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps ledger failures onto stable process exit codes for scripts.
func exitCode(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAuthenticationFailed):
		return exitAuthFailed
	case errors.Is(err, ledger.ErrMerchantNotRegistered), errors.Is(err, ledger.ErrNoBalance):
		return exitNotFound
	case errors.Is(err, ledger.ErrAlreadyRegistered), errors.Is(err, ledger.ErrMerchantInactive):
		return exitConflict
	case errors.Is(err, ledger.ErrInsufficientPoints), errors.Is(err, ledger.ErrOverflow):
		return exitInsufficient
	case errors.Is(err, ledger.ErrSupplyMismatch):
		return exitSupplyBalance
	default:
		return exitFailure
	}
}
