package funds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/util"
)

// Coordinator drives the reserve/commit/revert protocol for callers that
// must hold funds before knowing the match outcome.
type Coordinator struct {
	store Store
	clock util.Clock
	log   *zap.SugaredLogger
}

func NewCoordinator(store Store, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coordinator{store: store, clock: util.RealClock{}, log: log}
}

// Reserve creates and persists an Active reservation. This happens before
// the order is submitted - that ordering is what makes a crash in between
// recoverable.
func (c *Coordinator) Reserve(ctx context.Context, owner uuid.UUID, a asset.Asset, side book.Side, amount int64) (*Reservation, error) {
	r := newReservation(owner, a, side, amount, c.clock.Now())
	if err := c.store.Create(ctx, r); err != nil {
		return nil, err
	}
	c.log.Infow("funds_reserved",
		"reservation_id", r.ID,
		"owner", r.Owner,
		"asset", r.Asset,
		"side", r.Side.String(),
		"amount", r.Amount)
	return r, nil
}

// Get reads a reservation back by id.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	return c.store.Get(ctx, id)
}

// RevertStale reverts reservations that were still Active before the
// cutoff. Run at startup: an Active record older than any plausible
// in-flight request means the caller crashed between reserving and
// resolving. Returns how many reservations this process reverted.
func (c *Coordinator) RevertStale(ctx context.Context, olderThan time.Duration) (int, error) {
	ids, err := c.store.ListStaleActive(ctx, c.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	reverted := 0
	for _, id := range ids {
		won, err := c.store.Transition(ctx, id, StateActive, StateReverted)
		if err != nil {
			return reverted, err
		}
		if won {
			reverted++
			c.log.Warnw("stale_reservation_reverted", "reservation_id", id)
		}
	}
	return reverted, nil
}

// DeferRevert returns a guard scoped to the reservation. Unless Cancel is
// called first, Finish reverts the reservation; the caller runs it at scope
// end (defer guard.Finish(ctx)). Cancel and Finish may race - the store's
// conditional transition guarantees exactly one of Committed or Reverted
// wins, never both, never neither.
func (c *Coordinator) DeferRevert(r *Reservation) *RevertGuard {
	return &RevertGuard{coord: c, res: r}
}

// RevertGuard is the deferred compensating action for one reservation.
type RevertGuard struct {
	coord *Coordinator
	res   *Reservation
}

// Reservation returns the reservation the guard is scoped to.
func (g *RevertGuard) Reservation() *Reservation { return g.res }

// Cancel disarms the guard by committing the reservation. Returns true if
// the commit won the transition.
func (g *RevertGuard) Cancel(ctx context.Context) bool {
	won, err := g.coord.store.Transition(ctx, g.res.ID, StateActive, StateCommitted)
	if err != nil {
		g.coord.log.Errorw("reservation_commit_failed", "reservation_id", g.res.ID, "err", err)
		return false
	}
	if won {
		g.coord.log.Infow("reservation_committed", "reservation_id", g.res.ID)
	}
	return won
}

// Finish runs the deferred revert. A guard whose Cancel already won leaves
// the reservation Committed and Finish is a no-op.
func (g *RevertGuard) Finish(ctx context.Context) {
	won, err := g.coord.store.Transition(ctx, g.res.ID, StateActive, StateReverted)
	if err != nil {
		// The reservation stays Active; the recovery sweep will retry it.
		g.coord.log.Errorw("reservation_revert_failed", "reservation_id", g.res.ID, "err", err)
		return
	}
	if won {
		g.coord.log.Warnw("reservation_reverted",
			"reservation_id", g.res.ID,
			"owner", g.res.Owner,
			"amount", g.res.Amount)
	}
}
