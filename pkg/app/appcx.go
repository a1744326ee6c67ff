// Package app wires the trading engine, the fund-reservation coordinator
// and the collaborating stores into one context object that every request
// handler receives. There is no global engine handle; AppCx is built once
// at startup and passed down.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/funds"
	"github.com/voltexchange/voltex/pkg/storage"
	"github.com/voltexchange/voltex/pkg/users"
)

type AppCx struct {
	Engine  *engine.Handle
	Funds   *funds.Coordinator
	Assets  *asset.Registry
	Users   *users.Store
	Journal *storage.Journal
	Log     *zap.SugaredLogger

	// EngineWait bounds how long callers wait on a response slot before
	// treating the outcome as unknown and reverting.
	EngineWait time.Duration
}

// PlaceOrder runs the reservation half of the protocol and submits the
// command. On success the caller owns both the slot and the revert guard:
// it must defer guard.Finish and disarm with guard.Cancel only after a
// successful result.
func (cx *AppCx) PlaceOrder(ctx context.Context, cmd engine.PlaceOrder) (*engine.Slot, *funds.RevertGuard, error) {
	if !cx.Assets.Enabled(cmd.Asset) {
		return nil, nil, engine.ErrAssetNotEnabled
	}

	res, err := cx.Funds.Reserve(ctx, cmd.Owner, cmd.Asset, cmd.Side, ReserveAmount(cmd))
	if err != nil {
		return nil, nil, err
	}
	guard := cx.Funds.DeferRevert(res)

	slot, err := cx.Engine.SubmitPlaceOrder(cmd)
	if err != nil {
		// The command was never accepted, so the hold can be released
		// immediately.
		guard.Finish(ctx)
		return nil, nil, err
	}
	return slot, guard, nil
}

// CancelOrder submits a cancellation. Cancels hold no funds, so there is
// no reservation leg.
func (cx *AppCx) CancelOrder(cmd engine.CancelOrder) (*engine.Slot, error) {
	return cx.Engine.SubmitCancelOrder(cmd)
}

// ReserveAmount computes the provisional hold for an order: quote units
// (price x quantity) for buys, base units for sells. Market buys carry a
// caller-supplied price bound used only for this calculation.
func ReserveAmount(cmd engine.PlaceOrder) int64 {
	if cmd.Side == book.Buy {
		return cmd.Price * cmd.Quantity
	}
	return cmd.Quantity
}
