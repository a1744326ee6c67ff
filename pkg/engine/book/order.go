package book

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/voltexchange/voltex/pkg/asset"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "limit":
		return Limit, nil
	case "market":
		return Market, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// TimeInForce governs the disposition of an unfilled remainder after the
// crossing loop. The zero value is GTC.
type TimeInForce uint8

const (
	GTC TimeInForce = iota // rest the remainder
	IOC                    // discard the remainder
	FOK                    // all-or-nothing pre-check, never partial
)

func (t TimeInForce) String() string {
	switch t {
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "GTC"
	}
}

func ParseTimeInForce(s string) (TimeInForce, error) {
	switch s {
	case "", "GTC":
		return GTC, nil
	case "IOC":
		return IOC, nil
	case "FOK":
		return FOK, nil
	default:
		return 0, fmt.Errorf("unknown time in force %q", s)
	}
}

// SelfTradeProtection decides what happens when an incoming order would
// match a resting order of the same owner. The zero value cancels the
// incoming (newest) order.
type SelfTradeProtection uint8

const (
	CancelNewest SelfTradeProtection = iota
	CancelOldest
	CancelBoth
	DecrementAndCancel
)

func (p SelfTradeProtection) String() string {
	switch p {
	case CancelOldest:
		return "cancel_oldest"
	case CancelBoth:
		return "cancel_both"
	case DecrementAndCancel:
		return "decrement_and_cancel"
	default:
		return "cancel_newest"
	}
}

func ParseSelfTradeProtection(s string) (SelfTradeProtection, error) {
	switch s {
	case "", "cancel_newest":
		return CancelNewest, nil
	case "cancel_oldest":
		return CancelOldest, nil
	case "cancel_both":
		return CancelBoth, nil
	case "decrement_and_cancel":
		return DecrementAndCancel, nil
	default:
		return 0, fmt.Errorf("unknown self trade protection %q", s)
	}
}

type OrderStatus uint8

const (
	StatusResting OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return "resting"
	}
}

// Order is a live order inside the matching engine. ID, Owner, Asset, Side,
// Type, Price, Quantity and the two policies are immutable after intake;
// only Remaining and Status change, and only while the engine processes a
// command.
type Order struct {
	ID    uuid.UUID
	Owner uuid.UUID
	Asset asset.Asset
	Side  Side
	Type  OrderType
	TIF   TimeInForce
	STP   SelfTradeProtection

	// Price is the limit price in integer quote units. Ignored for market
	// orders. Quantities are whole lots; no fractional amounts ever enter
	// matching.
	Price     int64
	Quantity  int64
	Remaining int64

	// Seq is assigned by the engine at intake and breaks price ties:
	// lower sequence matches first.
	Seq uint64

	Status OrderStatus
}

// Execution records one match. Price is always the resting (maker) order's
// price; Seq is the sequence number of the triggering command.
type Execution struct {
	Asset asset.Asset `json:"asset"`
	Taker uuid.UUID   `json:"taker"`
	Maker uuid.UUID   `json:"maker"`
	Price int64       `json:"price"`
	Qty   int64       `json:"qty"`
	Seq   uint64      `json:"seq"`
}
