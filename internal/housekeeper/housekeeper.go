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

package housekeeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"loyalty-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

// Ledger is the serialized view of the ledger the housekeeper works against.
// api.LedgerService satisfies it.
type Ledger interface {
	Reconcile(ctx context.Context) (ledger.ReconcileReport, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// Recorder receives the outcome of each housekeeping pass.
// metrics.LedgerMetrics satisfies it.
type Recorder interface {
	ObserveReconcile(totalSupply uint64, balanced bool)
	AddPurged(n int64)
}

// HousekeeperConfig contains configuration for Housekeeper
type HousekeeperConfig struct {
	Ledger            Ledger
	Recorder          Recorder
	ReconcileInterval time.Duration
	PurgeInterval     time.Duration
}

// Housekeeper periodically checks the conservation invariant and removes
// expired store entries while the HTTP host is running.
type Housekeeper struct {
	ledger            Ledger
	recorder          Recorder
	reconcileInterval time.Duration
	purgeInterval     time.Duration

	mu         sync.Mutex
	lastReport ledger.ReconcileReport
	lastErr    error

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewHousekeeper creates a new housekeeper
func NewHousekeeper(cfg HousekeeperConfig) *Housekeeper {
	return &Housekeeper{
		ledger:            cfg.Ledger,
		recorder:          cfg.Recorder,
		reconcileInterval: cfg.ReconcileInterval,
		purgeInterval:     cfg.PurgeInterval,
		stopChan:          make(chan struct{}),
		doneChan:          make(chan struct{}),
	}
}

// Start runs a first reconciliation and then schedules the periodic tasks.
// A supply mismatch at startup is logged but does not prevent serving.
func (h *Housekeeper) Start(ctx context.Context) error {
	zap.L().Info("Starting housekeeper",
		zap.Duration("reconcile_interval", h.reconcileInterval),
		zap.Duration("purge_interval", h.purgeInterval))

	if err := h.reconcile(ctx); err != nil && !errors.Is(err, ledger.ErrSupplyMismatch) {
		return err
	}

	go h.loop(ctx)
	return nil
}

// Stop gracefully stops the housekeeper
func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() {
		zap.L().Info("Stopping housekeeper")
		close(h.stopChan)
	})
	<-h.doneChan
	zap.L().Info("Housekeeper stopped")
}

func (h *Housekeeper) loop(ctx context.Context) {
	defer close(h.doneChan)

	reconcileTick := tickerChan(h.reconcileInterval)
	purgeTick := tickerChan(h.purgeInterval)
	defer reconcileTick.stop()
	defer purgeTick.stop()

	for {
		select {
		case <-reconcileTick.c:
			_ = h.reconcile(ctx)
		case <-purgeTick.c:
			h.purge(ctx)
		case <-h.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Housekeeper) reconcile(ctx context.Context) error {
	report, err := h.ledger.Reconcile(ctx)

	h.mu.Lock()
	h.lastReport = report
	h.lastErr = err
	h.mu.Unlock()

	switch {
	case err == nil:
		h.observe(report.TotalSupply, true)
		zap.L().Debug("Supply reconciled",
			zap.Uint64("total_supply", report.TotalSupply),
			zap.Int("users", report.Users))
	case errors.Is(err, ledger.ErrSupplyMismatch):
		h.observe(report.TotalSupply, false)
		zap.L().Error("Supply mismatch detected by housekeeper",
			zap.Uint64("total_supply", report.TotalSupply),
			zap.Uint64("sum_of_balances", report.SumOfBalances))
	default:
		zap.L().Error("Failed to reconcile supply", zap.Error(err))
	}
	return err
}

func (h *Housekeeper) purge(ctx context.Context) {
	n, err := h.ledger.PurgeExpired(ctx)
	if err != nil {
		zap.L().Error("Failed to purge expired entries", zap.Error(err))
		return
	}

	if h.recorder != nil {
		h.recorder.AddPurged(n)
	}
	if n > 0 {
		zap.L().Info("Purged expired entries", zap.Int64("count", n))
	}
}

func (h *Housekeeper) observe(totalSupply uint64, balanced bool) {
	if h.recorder != nil {
		h.recorder.ObserveReconcile(totalSupply, balanced)
	}
}

// LastReconcile returns the report and error of the most recent reconciliation.
func (h *Housekeeper) LastReconcile() (ledger.ReconcileReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastReport, h.lastErr
}

type schedule struct {
	c      <-chan time.Time
	ticker *time.Ticker
}

func (s schedule) stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

// tickerChan returns a schedule that never fires when interval is not positive.
func tickerChan(interval time.Duration) schedule {
	if interval <= 0 {
		return schedule{}
	}
	t := time.NewTicker(interval)
	return schedule{c: t.C, ticker: t}
}
