package main

import (
	"context"
	"fmt"
	"strconv"

	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/config"
	"loyalty-ledger-go/internal/models"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	caller string
	mirror bool

	// open builds the services for a command; replaced in tests
	open func(ctx context.Context, opts common.ServiceOptions) (*common.Services, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{open: openServices})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loyalty",
		Short:         "Merchant loyalty-points ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.caller, "as", "", "identity the operation is authorized as")
	cmd.PersistentFlags().BoolVar(&opts.mirror, "mirror", true, "mirror events to Formance when FORMANCE_STACK_URL is set")

	cmd.AddCommand(
		registerCmd(opts),
		issueCmd(opts),
		redeemCmd(opts),
		balanceCmd(opts),
		merchantCmd(opts),
		supplyCmd(opts),
		reconcileCmd(opts),
		purgeCmd(opts),
		serveCmd(opts),
		tokenCmd(),
	)
	return cmd
}

func openServices(ctx context.Context, opts common.ServiceOptions) (*common.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return common.InitializeServices(ctx, cfg, opts)
}

// withServices opens the ledger, runs fn and closes everything again.
func (o *rootOptions) withServices(ctx context.Context, fn func(*common.Services) error) error {
	services, err := o.open(ctx, common.ServiceOptions{EnableMirror: o.mirror})
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(services)
}

// callerContext attaches the --as identity to ctx.
func (o *rootOptions) callerContext(ctx context.Context) (context.Context, error) {
	caller := models.Identity(o.caller)
	if !caller.Valid() {
		return nil, fmt.Errorf("--as is required for operations that change the ledger")
	}
	return models.WithCaller(ctx, caller), nil
}

func parsePoints(arg string) (uint64, error) {
	points, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid points %q: %w", arg, err)
	}
	return points, nil
}
