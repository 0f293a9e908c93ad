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
	"errors"
	"fmt"
	"math/bits"
	"time"

	"loyalty-ledger-go/internal/events"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default lifetime window: 5000 ledger closes of roughly 5s each.
const (
	DefaultMinRemaining = 5000 * 5 * time.Second
	DefaultMaxExtension = 5000 * 5 * time.Second
)

// Ledger is the loyalty-points state machine. It owns no goroutines and takes
// no locks: the host must run operations one at a time.
type Ledger struct {
	store        store.Store
	auth         Authenticator
	emitter      events.Emitter
	minRemaining time.Duration
	maxExtension time.Duration
	newOpId      func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithEmitter sets the audit event sink. Nil resets it to a no-op.
func WithEmitter(emitter events.Emitter) Option {
	return func(l *Ledger) {
		if emitter == nil {
			emitter = events.NoopEmitter{}
		}
		l.emitter = emitter
	}
}

// WithLifetime sets the arguments of the lifetime extension requested after
// every mutating operation.
func WithLifetime(minRemaining, maxExtension time.Duration) Option {
	return func(l *Ledger) {
		l.minRemaining = minRemaining
		l.maxExtension = maxExtension
	}
}

// WithOperationIds replaces the operation id generator.
func WithOperationIds(next func() string) Option {
	return func(l *Ledger) {
		if next != nil {
			l.newOpId = next
		}
	}
}

// New creates a ledger over st, authorizing callers with auth.
func New(st store.Store, auth Authenticator, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if auth == nil {
		return nil, fmt.Errorf("ledger authenticator cannot be nil")
	}
	l := &Ledger{
		store:        st,
		auth:         auth,
		emitter:      events.NoopEmitter{},
		minRemaining: DefaultMinRemaining,
		maxExtension: DefaultMaxExtension,
		newOpId:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.minRemaining < 0 || l.maxExtension <= 0 {
		return nil, fmt.Errorf("invalid lifetime extension: min_remaining=%v max_extension=%v", l.minRemaining, l.maxExtension)
	}
	return l, nil
}

func (l *Ledger) requireAuth(ctx context.Context, id models.Identity) error {
	if err := l.auth.RequireAuth(ctx, id); err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return nil
}

// commit applies the write set and then requests the lifetime extension.
// The writes are durable once Apply returns, so a failed extension is logged
// and retried implicitly by the next mutating operation.
func (l *Ledger) commit(ctx context.Context, op string, writes ...store.Write) error {
	if err := l.store.Apply(ctx, writes...); err != nil {
		return fmt.Errorf("failed to persist %s: %w", op, err)
	}
	if err := l.store.ExtendLifetime(ctx, l.minRemaining, l.maxExtension); err != nil {
		zap.L().Warn("Failed to extend ledger lifetime",
			zap.String("operation", op),
			zap.Duration("min_remaining", l.minRemaining),
			zap.Duration("max_extension", l.maxExtension),
			zap.Error(err))
	}
	return nil
}

// loadMerchant returns the merchant account and whether it exists.
func (l *Ledger) loadMerchant(ctx context.Context, id models.Identity) (models.MerchantAccount, bool, error) {
	data, found, err := l.store.Get(ctx, MerchantKey(id))
	if err != nil {
		return models.MerchantAccount{}, false, fmt.Errorf("failed to load merchant %s: %w", id, err)
	}
	if !found {
		return models.MerchantAccount{}, false, nil
	}
	merchant, err := DecodeMerchant(data)
	if err != nil {
		return models.MerchantAccount{}, false, err
	}
	return merchant, true, nil
}

// loadActiveMerchant applies the registered-and-active gate shared by
// issuance and redemption.
func (l *Ledger) loadActiveMerchant(ctx context.Context, id models.Identity) (models.MerchantAccount, error) {
	merchant, found, err := l.loadMerchant(ctx, id)
	if err != nil {
		return models.MerchantAccount{}, err
	}
	if !found {
		return models.MerchantAccount{}, fmt.Errorf("%w: %s", ErrMerchantNotRegistered, id)
	}
	if !merchant.IsActive {
		return models.MerchantAccount{}, fmt.Errorf("%w: %s", ErrMerchantInactive, id)
	}
	return merchant, nil
}

// loadBalance returns the user's balance record and whether it exists.
func (l *Ledger) loadBalance(ctx context.Context, id models.Identity) (models.UserBalance, bool, error) {
	data, found, err := l.store.Get(ctx, UserKey(id))
	if err != nil {
		return models.UserBalance{}, false, fmt.Errorf("failed to load balance for %s: %w", id, err)
	}
	if !found {
		return models.UserBalance{}, false, nil
	}
	balance, err := DecodeBalance(data)
	if err != nil {
		return models.UserBalance{}, false, err
	}
	return balance, true, nil
}

// loadBalanceOrDefault is the get-or-default combinator used on mutating
// paths: an absent record materializes as a zero balance for id. Nothing is
// written until the caller commits.
func (l *Ledger) loadBalanceOrDefault(ctx context.Context, id models.Identity) (models.UserBalance, error) {
	balance, found, err := l.loadBalance(ctx, id)
	if err != nil {
		return models.UserBalance{}, err
	}
	if !found {
		return models.UserBalance{Address: id, Points: 0}, nil
	}
	return balance, nil
}

// loadTotalSupply returns the supply counter, zero when it was never written.
func (l *Ledger) loadTotalSupply(ctx context.Context) (uint64, error) {
	data, found, err := l.store.Get(ctx, TotalSupplyKey)
	if err != nil {
		return 0, fmt.Errorf("failed to load total supply: %w", err)
	}
	if !found {
		return 0, nil
	}
	return decodeSupply(data)
}

func checkedAdd(a, b uint64, what string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %s %d + %d", ErrOverflow, what, a, b)
	}
	return sum, nil
}

func checkedSub(a, b uint64, what string) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %s %d - %d", ErrOverflow, what, a, b)
	}
	return diff, nil
}

func validateIdentities(ids ...models.Identity) error {
	for _, id := range ids {
		if !id.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
		}
	}
	return nil
}
