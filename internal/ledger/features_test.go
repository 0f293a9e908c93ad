package ledger_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	"github.com/cucumber/godog"
)

type ledgerTestContext struct {
	store   *store.MemoryStore
	ledger  *ledger.Ledger
	lastErr error
}

func (c *ledgerTestContext) reset() error {
	c.store = store.NewMemoryStore(0)
	l, err := ledger.New(c.store, ledger.CallerAuthenticator{})
	if err != nil {
		return err
	}
	c.ledger = l
	c.lastErr = nil
	return nil
}

func caller(id string) context.Context {
	return models.WithCaller(context.Background(), models.Identity(id))
}

func (c *ledgerTestContext) merchantIsRegistered(merchant string) error {
	return c.ledger.RegisterMerchant(caller(merchant), models.Identity(merchant))
}

func (c *ledgerTestContext) merchantIssuedPointsTo(merchant string, points int, user string) error {
	return c.ledger.IssuePoints(caller(merchant), models.Identity(merchant), models.Identity(user), uint64(points))
}

func (c *ledgerTestContext) callerRegistersMerchant(as, merchant string) error {
	c.lastErr = c.ledger.RegisterMerchant(caller(as), models.Identity(merchant))
	return nil
}

func (c *ledgerTestContext) callerIssuesPoints(as string, points int, merchant, user string) error {
	c.lastErr = c.ledger.IssuePoints(caller(as), models.Identity(merchant), models.Identity(user), uint64(points))
	return nil
}

func (c *ledgerTestContext) callerRedeemsPoints(as string, points int, user, merchant string) error {
	c.lastErr = c.ledger.RedeemPoints(caller(as), models.Identity(user), models.Identity(merchant), uint64(points))
	return nil
}

func (c *ledgerTestContext) theOperationSucceeds() error {
	if c.lastErr != nil {
		return fmt.Errorf("expected success, got %v", c.lastErr)
	}
	return c.conservationHolds()
}

func (c *ledgerTestContext) theOperationFailsWith(substring string) error {
	if c.lastErr == nil {
		return fmt.Errorf("expected failure containing %q, got success", substring)
	}
	if !strings.Contains(c.lastErr.Error(), substring) {
		return fmt.Errorf("expected error to contain %q, got %q", substring, c.lastErr)
	}
	return c.conservationHolds()
}

func (c *ledgerTestContext) userHasPoints(user string, points int) error {
	got, err := c.ledger.ViewUserBalance(context.Background(), models.Identity(user))
	if err != nil {
		return err
	}
	if got != uint64(points) {
		return fmt.Errorf("expected %s to have %d points, got %d", user, points, got)
	}
	return nil
}

func (c *ledgerTestContext) theTotalSupplyIs(total int) error {
	got, err := c.ledger.TotalSupply(context.Background())
	if err != nil {
		return err
	}
	if got != uint64(total) {
		return fmt.Errorf("expected total supply %d, got %d", total, got)
	}
	return nil
}

func (c *ledgerTestContext) merchantHasIssued(merchant string, points int) error {
	account, found, err := c.ledger.GetMerchant(context.Background(), models.Identity(merchant))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("merchant %s is not registered", merchant)
	}
	if account.TotalPointsIssued != uint64(points) {
		return fmt.Errorf("expected %s to have issued %d points, got %d", merchant, points, account.TotalPointsIssued)
	}
	return nil
}

func (c *ledgerTestContext) theStoreIsEmpty() error {
	if n := c.store.Len(); n != 0 {
		return fmt.Errorf("expected empty store, got %d entries", n)
	}
	return nil
}

func (c *ledgerTestContext) conservationHolds() error {
	report, err := c.ledger.Reconcile(context.Background())
	if err != nil {
		return err
	}
	if !report.Balanced() {
		return fmt.Errorf("supply %d does not match balances %d", report.TotalSupply, report.SumOfBalances)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &ledgerTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	// Given steps
	ctx.Step(`^merchant "([^"]*)" is registered$`, tc.merchantIsRegistered)
	ctx.Step(`^"([^"]*)" issued (\d+) points to "([^"]*)"$`, tc.merchantIssuedPointsTo)

	// When steps
	ctx.Step(`^"([^"]*)" registers merchant "([^"]*)"$`, tc.callerRegistersMerchant)
	ctx.Step(`^"([^"]*)" issues (\d+) points from "([^"]*)" to "([^"]*)"$`, tc.callerIssuesPoints)
	ctx.Step(`^"([^"]*)" redeems (\d+) points from "([^"]*)" at "([^"]*)"$`, tc.callerRedeemsPoints)

	// Then steps
	ctx.Step(`^the operation succeeds$`, tc.theOperationSucceeds)
	ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
	ctx.Step(`^user "([^"]*)" has (\d+) points$`, tc.userHasPoints)
	ctx.Step(`^the total supply is (\d+)$`, tc.theTotalSupplyIs)
	ctx.Step(`^merchant "([^"]*)" has issued (\d+) points$`, tc.merchantHasIssued)
	ctx.Step(`^the store is empty$`, tc.theStoreIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/ledger.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
