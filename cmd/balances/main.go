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
	"fmt"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/config"
	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	usersWithBalances int
	totalPoints       uint64
}

func printBalance(balance models.UserBalance, isLast bool) {
	fmt.Printf("%s %-30s: %20s\n", common.BoxPrefix(isLast), balance.Address, common.FormatPoints(balance.Points))
}

func printMerchant(merchant models.MerchantAccount, isLast bool) {
	status := "active"
	if !merchant.IsActive {
		status = "inactive"
	}
	fmt.Printf("%s %-30s: %20s issued (%s)\n", common.BoxPrefix(isLast), merchant.Address,
		common.FormatPoints(merchant.TotalPointsIssued), status)
}

func printSection(title string, count int) {
	fmt.Printf("\n┌─ %s\n", title)
	fmt.Printf("│  Entries: %d\n", count)
	common.PrintSeparator("─", common.DefaultWidth)
}

func summarizeBalances(balances []models.UserBalance) balanceStats {
	stats := balanceStats{}
	for _, balance := range balances {
		stats.totalUsers++
		if balance.Points > 0 {
			stats.usersWithBalances++
		}
		stats.totalPoints += balance.Points
	}
	return stats
}

func reportBalances(balances []models.UserBalance) balanceStats {
	printSection("Users", len(balances))
	for i, balance := range balances {
		printBalance(balance, i == len(balances)-1)
	}
	return summarizeBalances(balances)
}

func reportMerchants(ctx context.Context, st store.Store, logger *zap.Logger) {
	merchants, err := common.ListMerchants(ctx, st)
	if err != nil {
		logger.Error("Failed to list merchants", zap.Error(err))
		return
	}
	printSection("Merchants", len(merchants))
	for i, merchant := range merchants {
		printMerchant(merchant, i == len(merchants)-1)
	}
}

func reconcileSummary(ctx context.Context, l *ledger.Ledger, logger *zap.Logger) string {
	report, err := l.Reconcile(ctx)
	switch {
	case errors.Is(err, ledger.ErrSupplyMismatch):
		logger.Error("Total supply does not match balances",
			zap.Uint64("sum_of_balances", report.SumOfBalances),
			zap.Uint64("total_supply", report.TotalSupply))
		return fmt.Sprintf("MISMATCH: balances sum to %s but total supply is %s",
			common.FormatPoints(report.SumOfBalances), common.FormatPoints(report.TotalSupply))
	case err != nil:
		logger.Error("Failed to reconcile", zap.Error(err))
		return "reconciliation failed: " + err.Error()
	default:
		return fmt.Sprintf("Total supply %s matches %d balances (%s issued across %d merchants)",
			common.FormatPoints(report.TotalSupply), report.Users,
			common.FormatPoints(report.TotalIssuedEver), report.Merchants)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by specific user identity (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only report: no metrics and no Formance mirror
	services, err := common.InitializeServices(ctx, cfg, common.ServiceOptions{})
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	balances, err := common.ListUserBalances(ctx, services.Store, models.Identity(*userFlag), logger)
	if err != nil {
		logger.Fatal("Failed to list balances", zap.Error(err))
	}

	common.PrintHeader("LOYALTY BALANCE REPORT", common.DefaultWidth)

	stats := reportBalances(balances)
	if *userFlag == "" {
		reportMerchants(ctx, services.Store, logger)
	}

	summary := fmt.Sprintf("SUMMARY: %d users with points (%s points across %d users queried)\n%s",
		stats.usersWithBalances, common.FormatPoints(stats.totalPoints), stats.totalUsers,
		reconcileSummary(ctx, services.Ledger, logger))
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Uint64("total_points", stats.totalPoints))
}
