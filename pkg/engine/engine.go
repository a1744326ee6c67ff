package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

// core owns every order book and is the sequencing authority: it applies
// exactly one command to completion before starting the next. It is only
// ever touched by the driver goroutine, which is what makes order book
// mutation race-free without a single lock.
type core struct {
	registry *asset.Registry
	books    map[asset.Asset]*book.Book
	seq      uint64
	log      *zap.SugaredLogger
}

func newCore(registry *asset.Registry, log *zap.SugaredLogger) *core {
	books := make(map[asset.Asset]*book.Book)
	for _, a := range registry.List() {
		books[a] = book.New(a)
	}
	return &core{
		registry: registry,
		books:    books,
		log:      log,
	}
}

// handle processes one command and builds its result. Intake rejections
// (unserializable input, disabled asset) come back before any book is
// touched. A panic below this point means corrupted book state; the process
// must not keep matching on it.
func (c *core) handle(sub submission) Result {
	switch {
	case sub.place != nil:
		return c.handlePlace(*sub.place)
	case sub.cancel != nil:
		return c.handleCancel(*sub.cancel)
	default:
		return Result{Err: ErrUnserializableInput}
	}
}

func (c *core) handlePlace(p PlaceOrder) Result {
	if err := p.validate(); err != nil {
		return Result{Err: err}
	}
	bk, ok := c.books[p.Asset]
	if !ok || !c.registry.Enabled(p.Asset) {
		return Result{Err: ErrAssetNotEnabled}
	}

	c.seq++
	o := &book.Order{
		ID:        uuid.New(),
		Owner:     p.Owner,
		Asset:     p.Asset,
		Side:      p.Side,
		Type:      p.Type,
		TIF:       p.TIF,
		STP:       p.STP,
		Price:     p.Price,
		Quantity:  p.Quantity,
		Remaining: p.Quantity,
		Seq:       c.seq,
	}

	execs := bk.Insert(o)

	c.log.Debugw("order_processed",
		"order_id", o.ID,
		"asset", p.Asset,
		"side", p.Side.String(),
		"status", o.Status.String(),
		"executions", len(execs),
		"seq", o.Seq)

	return Result{Place: &PlaceOrderResult{
		OrderID:    o.ID,
		Executions: execs,
		Status:     o.Status,
	}}
}

func (c *core) handleCancel(cmd CancelOrder) Result {
	if err := cmd.validate(); err != nil {
		return Result{Err: err}
	}

	c.seq++
	for _, bk := range c.books {
		owner, ok := bk.Owner(cmd.OrderID)
		if !ok {
			continue
		}
		if owner != cmd.Owner {
			return Result{Err: ErrNotOrderOwner}
		}
		if _, ok := bk.Cancel(cmd.OrderID); !ok {
			continue
		}
		c.log.Debugw("order_cancelled", "order_id", cmd.OrderID, "asset", bk.Asset(), "seq", c.seq)
		return Result{Cancel: &CancelOrderResult{OrderID: cmd.OrderID, Asset: bk.Asset()}}
	}
	return Result{Err: ErrOrderNotFound}
}
