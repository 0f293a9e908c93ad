package main

import (
	"errors"
	"fmt"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func balanceCmd(opts *rootOptions) *cobra.Command {
	var compareMirror bool

	cmd := &cobra.Command{
		Use:   "balance USER",
		Short: "Show a user's point balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user := models.Identity(args[0])

			return opts.withServices(ctx, func(s *common.Services) error {
				points, err := s.Ledger.ViewUserBalance(ctx, user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s points\n", user, common.FormatPoints(points))

				if !compareMirror {
					return nil
				}
				if s.Mirror == nil {
					return errors.New("--compare-mirror needs FORMANCE_STACK_URL")
				}
				mirrored, err := s.Mirror.UserPoints(ctx, user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s points in Formance\n", user, common.FormatPoints(mirrored))
				if mirrored != points {
					zap.L().Warn("Formance mirror out of sync",
						zap.String("user", user.String()),
						zap.Uint64("ledger_points", points),
						zap.Uint64("mirror_points", mirrored))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&compareMirror, "compare-mirror", false, "also read the balance mirrored in Formance")
	return cmd
}

func merchantCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merchant MERCHANT",
		Short: "Show a merchant account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			merchant := models.Identity(args[0])

			return opts.withServices(ctx, func(s *common.Services) error {
				account, found, err := s.Ledger.GetMerchant(ctx, merchant)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%w: %s", ledger.ErrMerchantNotRegistered, merchant)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: active=%t total_points_issued=%s\n",
					account.Address, account.IsActive, common.FormatPoints(account.TotalPointsIssued))
				return nil
			})
		},
	}
}

func supplyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show the total points in circulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withServices(ctx, func(s *common.Services) error {
				total, err := s.Ledger.TotalSupply(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total supply: %s points\n", common.FormatPoints(total))
				return nil
			})
		},
	}
}

func reconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check that the total supply equals the sum of user balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withServices(ctx, func(s *common.Services) error {
				report, err := s.Ledger.Reconcile(ctx)
				if err != nil && !errors.Is(err, ledger.ErrSupplyMismatch) {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Users:            %d\n", report.Users)
				fmt.Fprintf(out, "Merchants:        %d\n", report.Merchants)
				fmt.Fprintf(out, "Sum of balances:  %s\n", common.FormatPoints(report.SumOfBalances))
				fmt.Fprintf(out, "Total supply:     %s\n", common.FormatPoints(report.TotalSupply))
				fmt.Fprintf(out, "Issued (all time): %s\n", common.FormatPoints(report.TotalIssuedEver))
				return err
			})
		},
	}
}

func purgeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete entries whose lifetime has expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withServices(ctx, func(s *common.Services) error {
				purger, ok := s.Store.(store.Purger)
				if !ok {
					return fmt.Errorf("store %T does not support purging", s.Store)
				}
				n, err := purger.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				zap.L().Info("Purged expired entries", zap.Int64("count", n))
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries\n", n)
				return nil
			})
		},
	}
}
