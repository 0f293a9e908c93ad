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
	"context"
	"errors"
	"flag"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/config"
	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"

	"go.uber.org/zap"
)

type seedStats struct {
	registered int
	existing   int
	failed     []string
}

// registerMerchant registers one seeded merchant, authorized as itself
func registerMerchant(ctx context.Context, l *ledger.Ledger, merchant common.MerchantSeed) (bool, error) {
	id := merchant.Identity()
	zap.L().Info("Processing merchant",
		zap.String("merchant", id.String()),
		zap.String("name", merchant.Name))

	err := l.RegisterMerchant(models.WithCaller(ctx, id), id)
	if errors.Is(err, ledger.ErrAlreadyRegistered) {
		zap.L().Info("Merchant already registered", zap.String("merchant", id.String()))
		return false, nil
	}
	if err != nil {
		zap.L().Error("Error registering merchant",
			zap.String("merchant", id.String()),
			zap.Error(err))
		return false, err
	}
	return true, nil
}

func seedMerchants(ctx context.Context, l *ledger.Ledger, merchants []common.MerchantSeed) seedStats {
	var stats seedStats
	for _, merchant := range merchants {
		created, err := registerMerchant(ctx, l, merchant)
		switch {
		case err != nil:
			stats.failed = append(stats.failed, merchant.Identity().String())
		case created:
			stats.registered++
		default:
			stats.existing++
		}
	}
	return stats
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Merchant seed file (defaults to MERCHANTS_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	merchantsFile := cfg.MerchantsFile
	if *fileFlag != "" {
		merchantsFile = *fileFlag
	}

	zap.L().Info("Loading merchant configuration", zap.String("file", merchantsFile))
	merchants, err := common.LoadMerchantConfig(merchantsFile)
	if err != nil {
		zap.L().Fatal("Failed to load merchant config", zap.Error(err))
	}
	zap.L().Info("Merchant configuration loaded", zap.Int("count", len(merchants)))

	services, err := common.InitializeServices(ctx, cfg, common.ServiceOptions{EnableMirror: true})
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	stats := seedMerchants(ctx, services.Ledger, merchants)

	if len(stats.failed) > 0 {
		zap.L().Warn("Merchant seeding completed with some failures",
			zap.Int("registered", stats.registered),
			zap.Int("already_registered", stats.existing),
			zap.Strings("failed_merchants", stats.failed))
	} else {
		zap.L().Info("Merchant seeding completed successfully",
			zap.Int("registered", stats.registered),
			zap.Int("already_registered", stats.existing))
	}
}
