// Package funds implements the compensating-action protocol that bridges
// the asynchronous web layer to the sequential trading engine: funds are
// provisionally reserved before an order is submitted, then committed or
// reverted depending on what the engine answers - or fails to answer.
package funds

import (
	"time"

	"github.com/google/uuid"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

// State is the lifecycle of a reservation. Active transitions to exactly
// one of Committed or Reverted, never both; the stores enforce it with an
// atomic conditional transition.
type State string

const (
	StateActive    State = "active"
	StateCommitted State = "committed"
	StateReverted  State = "reverted"
)

// Reservation is a provisional hold on a user's funds pending an order
// outcome. It is persisted before the order is submitted, so a crash
// between reservation and submission leaves a recoverable Active record
// rather than an orphaned debit.
type Reservation struct {
	ID        uuid.UUID
	Owner     uuid.UUID
	Asset     asset.Asset
	Side      book.Side
	Amount    int64
	State     State
	CreatedAt time.Time
}

func newReservation(owner uuid.UUID, a asset.Asset, side book.Side, amount int64, now time.Time) *Reservation {
	return &Reservation{
		ID:        uuid.New(),
		Owner:     owner,
		Asset:     a,
		Side:      side,
		Amount:    amount,
		State:     StateActive,
		CreatedAt: now.UTC(),
	}
}
