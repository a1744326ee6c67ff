package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/funds"
)

func newTestCx(t *testing.T) (*AppCx, *funds.Coordinator) {
	t.Helper()
	registry := asset.NewRegistry(asset.InternalAssetList()...)
	handle := engine.Spawn(registry, engine.Options{})
	t.Cleanup(handle.Shutdown)

	coord := funds.NewCoordinator(funds.NewMemStore(), nil)
	return &AppCx{
		Engine:     handle,
		Funds:      coord,
		Assets:     registry,
		EngineWait: 2 * time.Second,
	}, coord
}

func buyOrder(owner uuid.UUID, price, qty int64) engine.PlaceOrder {
	return engine.PlaceOrder{
		Owner:    owner,
		Asset:    asset.Bitcoin,
		Side:     book.Buy,
		Type:     book.Limit,
		Price:    price,
		Quantity: qty,
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	cx, coord := newTestCx(t)
	ctx := context.Background()

	slot, guard, err := cx.PlaceOrder(ctx, buyOrder(uuid.New(), 100, 5))
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	res, ok := slot.Wait(cx.EngineWait)
	if !ok || res.Err != nil {
		t.Fatalf("engine result: ok=%v err=%v", ok, res.Err)
	}
	guard.Cancel(ctx)

	// The order succeeded, so the hold stays committed even after the
	// deferred revert fires.
	guard.Finish(ctx)
	r, err := coord.Get(ctx, guard.Reservation().ID)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if r.State != funds.StateCommitted {
		t.Errorf("reservation state = %s, want committed", r.State)
	}
	if r.Amount != 500 {
		t.Errorf("reservation amount = %d, want 500", r.Amount)
	}
}

func TestPlaceOrderTimeoutReverts(t *testing.T) {
	cx, coord := newTestCx(t)
	ctx := context.Background()

	slot, guard, err := cx.PlaceOrder(ctx, buyOrder(uuid.New(), 100, 5))
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Simulate a caller that gave up waiting: the slot is never read and
	// the deferred revert runs.
	_ = slot
	guard.Finish(ctx)

	r, err := coord.Get(ctx, guard.Reservation().ID)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if r.State != funds.StateReverted {
		t.Errorf("reservation state = %s, want reverted", r.State)
	}
}

func TestPlaceOrderDisabledAsset(t *testing.T) {
	cx, _ := newTestCx(t)
	cx.Assets.SetEnabled(asset.Bitcoin, false)

	_, _, err := cx.PlaceOrder(context.Background(), buyOrder(uuid.New(), 100, 5))
	if !errors.Is(err, engine.ErrAssetNotEnabled) {
		t.Fatalf("err = %v, want ErrAssetNotEnabled", err)
	}
}

func TestPlaceOrderRevertsOnSubmitFailure(t *testing.T) {
	cx, coord := newTestCx(t)
	ctx := context.Background()

	// Closed intake makes submission fail after the reservation was taken.
	cx.Engine.Shutdown()

	_, _, err := cx.PlaceOrder(ctx, buyOrder(uuid.New(), 100, 5))
	if !errors.Is(err, engine.ErrEngineClosed) {
		t.Fatalf("err = %v, want ErrEngineClosed", err)
	}

	// The only record in the store must be reverted.
	ids, err := coord.RevertStale(ctx, 0)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if ids != 0 {
		t.Errorf("sweep reverted %d reservations; submit failure left an active hold", ids)
	}
}

func TestReserveAmount(t *testing.T) {
	owner := uuid.New()

	buy := buyOrder(owner, 100, 5)
	if got := ReserveAmount(buy); got != 500 {
		t.Errorf("buy hold = %d, want price*qty = 500", got)
	}

	sell := buy
	sell.Side = book.Sell
	if got := ReserveAmount(sell); got != 5 {
		t.Errorf("sell hold = %d, want qty = 5", got)
	}
}
