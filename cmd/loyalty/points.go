package main

import (
	"fmt"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/models"

	"github.com/spf13/cobra"
)

func registerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register MERCHANT",
		Short: "Register a merchant (must be run --as the merchant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.callerContext(cmd.Context())
			if err != nil {
				return err
			}
			merchant := models.Identity(args[0])

			return opts.withServices(ctx, func(s *common.Services) error {
				if err := s.Ledger.RegisterMerchant(ctx, merchant); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered merchant %s\n", merchant)
				return nil
			})
		},
	}
}

func issueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "issue MERCHANT USER POINTS",
		Short: "Issue points from a merchant to a user (run --as the merchant)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.callerContext(cmd.Context())
			if err != nil {
				return err
			}
			merchant, user := models.Identity(args[0]), models.Identity(args[1])
			points, err := parsePoints(args[2])
			if err != nil {
				return err
			}

			return opts.withServices(ctx, func(s *common.Services) error {
				if err := s.Ledger.IssuePoints(ctx, merchant, user, points); err != nil {
					return err
				}
				balance, err := s.Ledger.ViewUserBalance(ctx, user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issued %s points to %s (balance %s)\n",
					common.FormatPoints(points), user, common.FormatPoints(balance))
				return nil
			})
		},
	}
}

func redeemCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem USER MERCHANT POINTS",
		Short: "Redeem a user's points at a merchant (run --as the user)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.callerContext(cmd.Context())
			if err != nil {
				return err
			}
			user, merchant := models.Identity(args[0]), models.Identity(args[1])
			points, err := parsePoints(args[2])
			if err != nil {
				return err
			}

			return opts.withServices(ctx, func(s *common.Services) error {
				if err := s.Ledger.RedeemPoints(ctx, user, merchant, points); err != nil {
					return err
				}
				balance, err := s.Ledger.ViewUserBalance(ctx, user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Redeemed %s points at %s (balance %s)\n",
					common.FormatPoints(points), merchant, common.FormatPoints(balance))
				return nil
			})
		},
	}
}
