package engine

import (
	"github.com/google/uuid"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

// PlaceOrder asks the engine to create an order and route it to its asset's
// book. Owner is an opaque, already-authenticated identifier; the engine
// does not authenticate.
type PlaceOrder struct {
	Owner    uuid.UUID
	Asset    asset.Asset
	Side     book.Side
	Type     book.OrderType
	Quantity int64
	Price    int64
	TIF      book.TimeInForce
	STP      book.SelfTradeProtection
}

func (p PlaceOrder) validate() error {
	if p.Owner == uuid.Nil {
		return ErrUnserializableInput
	}
	if p.Quantity <= 0 {
		return ErrUnserializableInput
	}
	if p.Type == book.Limit && p.Price <= 0 {
		return ErrUnserializableInput
	}
	return nil
}

// CancelOrder asks the engine to remove a resting order, if the requester
// owns it.
type CancelOrder struct {
	Owner   uuid.UUID
	OrderID uuid.UUID
}

func (c CancelOrder) validate() error {
	if c.Owner == uuid.Nil || c.OrderID == uuid.Nil {
		return ErrUnserializableInput
	}
	return nil
}

// PlaceOrderResult reports what happened to a placed order: the id assigned
// at intake, the executions it generated as taker, and the resulting status.
type PlaceOrderResult struct {
	OrderID    uuid.UUID
	Executions []book.Execution
	Status     book.OrderStatus
}

// CancelOrderResult reports a successful cancellation.
type CancelOrderResult struct {
	OrderID uuid.UUID
	Asset   asset.Asset
}

// Result is what a response slot resolves with. Exactly one of Place,
// Cancel or Err is set.
type Result struct {
	Place  *PlaceOrderResult
	Cancel *CancelOrderResult
	Err    error
}

// submission pairs a command with its response slot on the way into the
// engine goroutine.
type submission struct {
	place  *PlaceOrder
	cancel *CancelOrder
	slot   *Slot
}
