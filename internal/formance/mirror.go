package formance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"loyalty-ledger-go/internal/events"
	"loyalty-ledger-go/internal/models"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. All metadata is set inside the script via
// set_tx_meta() so each Formance transaction is self-describing.
// ---------------------------------------------------------------------------

const numscriptPointsIssued = `vars {
  asset $asset
  number $amount
  account $user_id
  string $merchant_id
  string $operation_id
}

send [$asset $amount] (
  source = @world
  destination = @users:$user_id
)

set_tx_meta("event_type", "points_issued")
set_tx_meta("merchant_id", $merchant_id)
set_tx_meta("operation_id", $operation_id)
`

const numscriptPointsRedeemed = `vars {
  asset $asset
  number $amount
  account $user_id
  account $merchant_id
  string $operation_id
}

send [$asset $amount] (
  source = @users:$user_id
  destination = @merchants:$merchant_id:redemptions
)

set_tx_meta("event_type", "points_redeemed")
set_tx_meta("operation_id", $operation_id)
`

// Mirror is an events.Emitter that replays ledger events onto a Formance
// ledger. The local store stays authoritative: mirror failures are logged
// and never reach the caller.
type Mirror struct {
	api     ledgerAPI
	timeout time.Duration
}

// NewMirror returns a mirror posting through svc. Each post is bounded by timeout.
func NewMirror(svc *Service, timeout time.Duration) *Mirror {
	return newMirror(svc, timeout)
}

func newMirror(api ledgerAPI, timeout time.Duration) *Mirror {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mirror{api: api, timeout: timeout}
}

// Emit implements events.Emitter.
func (m *Mirror) Emit(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch ev := e.(type) {
	case events.MerchantRegistered:
		err = m.mirrorMerchantRegistered(ctx, ev)
	case events.PointsIssued:
		err = m.mirrorPointsIssued(ctx, ev)
	case events.PointsRedeemed:
		err = m.mirrorPointsRedeemed(ctx, ev)
	default:
		return
	}

	if err != nil {
		zap.L().Error("Failed to mirror ledger event to Formance",
			zap.String("event_type", e.EventType()),
			zap.Error(err))
	}
}

func (m *Mirror) mirrorMerchantRegistered(ctx context.Context, ev events.MerchantRegistered) error {
	address := merchantAccount(ev.Merchant)
	err := m.api.addAccountMetadata(ctx, address, map[string]string{
		"merchant_id":  ev.Merchant.String(),
		"is_active":    "true",
		"operation_id": ev.OperationId,
	})
	if err != nil {
		return fmt.Errorf("failed to set merchant metadata on %s: %w", address, err)
	}
	zap.L().Debug("Mirrored merchant registration", zap.String("account", address))
	return nil
}

func (m *Mirror) mirrorPointsIssued(ctx context.Context, ev events.PointsIssued) error {
	// Formance rejects zero-amount postings; nothing moved.
	if ev.Points == 0 {
		return nil
	}
	return m.post(ctx, ev.OperationId, numscriptPointsIssued, map[string]string{
		"asset":        pointsAsset,
		"amount":       strconv.FormatUint(ev.Points, 10),
		"user_id":      ev.User.String(),
		"merchant_id":  ev.Merchant.String(),
		"operation_id": ev.OperationId,
	})
}

func (m *Mirror) mirrorPointsRedeemed(ctx context.Context, ev events.PointsRedeemed) error {
	if ev.Points == 0 {
		return nil
	}
	return m.post(ctx, ev.OperationId, numscriptPointsRedeemed, map[string]string{
		"asset":        pointsAsset,
		"amount":       strconv.FormatUint(ev.Points, 10),
		"user_id":      ev.User.String(),
		"merchant_id":  ev.Merchant.String(),
		"operation_id": ev.OperationId,
	})
}

// post submits a script under reference. A duplicate reference means the
// event was already mirrored.
func (m *Mirror) post(ctx context.Context, reference, script string, vars map[string]string) error {
	if err := m.api.postTransaction(ctx, reference, script, vars); err != nil {
		if isConflictError(err) {
			zap.L().Info("Event already mirrored, skipping", zap.String("reference", reference))
			return nil
		}
		return fmt.Errorf("failed to post transaction %s: %w", reference, err)
	}
	return nil
}

// UserPoints returns the user's mirrored balance, 0 when the account has
// never been credited.
func (m *Mirror) UserPoints(ctx context.Context, user models.Identity) (uint64, error) {
	vols, err := m.api.accountVolumes(ctx, userAccount(user))
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get mirrored balance for %s: %w", user, err)
	}
	bal := volumeBalance(vols, pointsAsset)
	if bal == nil {
		return 0, nil
	}
	if bal.Sign() < 0 || !bal.IsUint64() {
		return 0, fmt.Errorf("mirrored balance for %s out of range: %s", user, bal.String())
	}
	return bal.Uint64(), nil
}

func userAccount(id models.Identity) string {
	return "users:" + id.String()
}

func merchantAccount(id models.Identity) string {
	return "merchants:" + id.String()
}
