package book

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/voltexchange/voltex/pkg/asset"
)

// Book holds the resting orders of one asset, bids and asks in strict
// price-time priority: best price first, ties broken by the engine-assigned
// sequence number. There is no lock here on purpose - a Book is exclusively
// owned and mutated by the engine goroutine.
type Book struct {
	asset asset.Asset

	// Heap-based best price tracking (O(1) peek)
	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// Price level queues. FIFO order equals sequence order because the
	// engine inserts commands one at a time.
	bids map[int64][]*Order
	asks map[int64][]*Order

	// Resting order index for O(1) cancellation
	resting map[uuid.UUID]restingRef
}

type restingRef struct {
	side  Side
	price int64
}

func New(a asset.Asset) *Book {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &Book{
		asset:   a,
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[int64][]*Order),
		asks:    make(map[int64][]*Order),
		resting: make(map[uuid.UUID]restingRef),
	}
}

func (b *Book) Asset() asset.Asset { return b.asset }

// Contains reports whether the order currently rests in the book.
func (b *Book) Contains(id uuid.UUID) bool {
	_, ok := b.resting[id]
	return ok
}

// bestOpposite returns the best crossing price on the opposite side, if any.
func (b *Book) bestOpposite(o *Order) (int64, bool) {
	if o.Side == Buy {
		if b.askHeap.Len() == 0 {
			return 0, false
		}
		p := b.askHeap.Peek()
		if o.Type == Limit && p > o.Price {
			return 0, false
		}
		return p, true
	}
	if b.bidHeap.Len() == 0 {
		return 0, false
	}
	p := b.bidHeap.Peek()
	if o.Type == Limit && p < o.Price {
		return 0, false
	}
	return p, true
}

// headAt returns the highest-priority resting order at the given price.
// A price present in a heap but with an empty level means the book is
// corrupted; matching cannot continue on untrusted state.
func (b *Book) headAt(side Side, price int64) *Order {
	var level []*Order
	if side == Buy {
		level = b.bids[price]
	} else {
		level = b.asks[price]
	}
	if len(level) == 0 {
		panic(fmt.Sprintf("book %s: empty %s level at price %d", b.asset, side, price))
	}
	return level[0]
}

// Insert runs the matching loop for a new taker order and applies the
// order's time-in-force disposition to any remainder. The taker's Remaining
// and Status are updated in place; resting makers are mutated and removed
// as they fill.
func (b *Book) Insert(o *Order) []Execution {
	// FOK is all-or-nothing: checked against resting liquidity before any
	// execution is committed. The check simulates the STP disposition at
	// the taker's own resting orders, not just their exclusion.
	if o.TIF == FOK && !b.fullyFillable(o) {
		o.Status = StatusCancelled
		return nil
	}

	var execs []Execution
	stopped := false
	for !stopped && o.Remaining > 0 {
		price, ok := b.bestOpposite(o)
		if !ok {
			break
		}
		maker := b.headAt(o.Side.Opposite(), price)
		if maker.Owner == o.Owner {
			stopped = b.resolveSelfTrade(o, maker)
			continue
		}

		qty := min(o.Remaining, maker.Remaining)
		o.Remaining -= qty
		maker.Remaining -= qty
		execs = append(execs, Execution{
			Asset: b.asset,
			Taker: o.ID,
			Maker: maker.ID,
			Price: price,
			Qty:   qty,
			Seq:   o.Seq,
		})
		if maker.Remaining == 0 {
			maker.Status = StatusFilled
			b.remove(maker)
		}
	}

	switch {
	case o.Remaining == 0:
		// DecrementAndCancel may have consumed the remainder without an
		// execution; that path already marked the order cancelled.
		if o.Status != StatusCancelled {
			o.Status = StatusFilled
		}
	case o.Type == Market || o.TIF != GTC || stopped:
		// Market orders never rest; IOC and STP-stopped remainders are
		// discarded. (A FOK that passed its pre-check never gets here.)
		if len(execs) > 0 {
			o.Status = StatusPartiallyFilled
		} else {
			o.Status = StatusCancelled
		}
	default:
		b.rest(o)
		if len(execs) > 0 {
			o.Status = StatusPartiallyFilled
		} else {
			o.Status = StatusResting
		}
	}

	return execs
}

// resolveSelfTrade applies the taker's STP policy against its own resting
// order. Returns true when the taker must stop matching.
func (b *Book) resolveSelfTrade(o, maker *Order) bool {
	switch o.STP {
	case CancelNewest:
		return true
	case CancelOldest:
		maker.Status = StatusCancelled
		b.remove(maker)
		return false
	case CancelBoth:
		maker.Status = StatusCancelled
		b.remove(maker)
		return true
	case DecrementAndCancel:
		qty := min(o.Remaining, maker.Remaining)
		o.Remaining -= qty
		maker.Remaining -= qty
		if maker.Remaining == 0 {
			maker.Status = StatusCancelled
			b.remove(maker)
		}
		if o.Remaining == 0 {
			o.Status = StatusCancelled
			return true
		}
		return false
	default:
		panic(fmt.Sprintf("book %s: unknown stp policy %d", b.asset, o.STP))
	}
}

// fullyFillable dry-runs the matching walk in priority order and reports
// whether the taker's full quantity would execute. The walk must mirror
// what the crossing loop does at the taker's own resting orders: stop
// policies strand everything queued behind the own order, and
// decrement_and_cancel destroys taker quantity without executing it, so
// simply summing non-own liquidity overstates what is reachable.
func (b *Book) fullyFillable(o *Order) bool {
	opposite := b.asks
	if o.Side == Sell {
		opposite = b.bids
	}

	var prices []int64
	for price := range opposite {
		if o.Type == Limit {
			if o.Side == Buy && price > o.Price {
				continue
			}
			if o.Side == Sell && price < o.Price {
				continue
			}
		}
		prices = append(prices, price)
	}
	if o.Side == Buy {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	}

	need := o.Remaining
	for _, price := range prices {
		for _, m := range opposite[price] {
			if m.Owner == o.Owner {
				switch o.STP {
				case CancelOldest:
					// The own maker would be cancelled; the walk goes on.
					continue
				case DecrementAndCancel:
					// Taker quantity dies against the own order without an
					// execution, so a full fill is already impossible.
					return false
				default:
					// CancelNewest and CancelBoth stop the taker here;
					// liquidity behind the own order is unreachable.
					return false
				}
			}
			need -= m.Remaining
			if need <= 0 {
				return true
			}
		}
	}
	return false
}

// Cancel removes a resting order by id. Returns false if the order is not
// resting in this book.
func (b *Book) Cancel(id uuid.UUID) (*Order, bool) {
	ref, ok := b.resting[id]
	if !ok {
		return nil, false
	}
	o := b.findAt(ref, id)
	o.Status = StatusCancelled
	b.remove(o)
	return o, true
}

// Owner returns the owner of a resting order.
func (b *Book) Owner(id uuid.UUID) (uuid.UUID, bool) {
	ref, ok := b.resting[id]
	if !ok {
		return uuid.Nil, false
	}
	return b.findAt(ref, id).Owner, true
}

func (b *Book) findAt(ref restingRef, id uuid.UUID) *Order {
	var level []*Order
	if ref.side == Buy {
		level = b.bids[ref.price]
	} else {
		level = b.asks[ref.price]
	}
	for _, o := range level {
		if o.ID == id {
			return o
		}
	}
	panic(fmt.Sprintf("book %s: order %s indexed at price %d but not in level", b.asset, id, ref.price))
}

// rest places a remainder on the order's own side of the book.
func (b *Book) rest(o *Order) {
	if o.Side == Buy {
		if len(b.bids[o.Price]) == 0 {
			heap.Push(b.bidHeap, o.Price)
		}
		b.bids[o.Price] = append(b.bids[o.Price], o)
	} else {
		if len(b.asks[o.Price]) == 0 {
			heap.Push(b.askHeap, o.Price)
		}
		b.asks[o.Price] = append(b.asks[o.Price], o)
	}
	b.resting[o.ID] = restingRef{side: o.Side, price: o.Price}
}

// remove takes a resting order out of the book, dropping the price level
// when it empties.
func (b *Book) remove(o *Order) {
	ref, ok := b.resting[o.ID]
	if !ok {
		panic(fmt.Sprintf("book %s: removing order %s that is not resting", b.asset, o.ID))
	}
	delete(b.resting, o.ID)

	if ref.side == Buy {
		level := b.bids[ref.price]
		b.bids[ref.price] = removeOrder(level, o.ID)
		if len(b.bids[ref.price]) == 0 {
			delete(b.bids, ref.price)
			removeFromHeap(b.bidHeap, ref.price)
		}
	} else {
		level := b.asks[ref.price]
		b.asks[ref.price] = removeOrder(level, o.ID)
		if len(b.asks[ref.price]) == 0 {
			delete(b.asks, ref.price)
			removeFromHeap(b.askHeap, ref.price)
		}
	}
}

func removeOrder(level []*Order, id uuid.UUID) []*Order {
	for i, o := range level {
		if o.ID == id {
			return append(level[:i], level[i+1:]...)
		}
	}
	panic(fmt.Sprintf("order %s indexed but not present in its price level", id))
}

// removeFromHeap removes one price entry (O(N) worst case, but levels empty
// rarely compared to matches).
func removeFromHeap(h heap.Interface, price int64) {
	switch hp := h.(type) {
	case *MaxPriceHeap:
		for i := 0; i < hp.Len(); i++ {
			if (*hp)[i] == price {
				heap.Remove(hp, i)
				return
			}
		}
	case *MinPriceHeap:
		for i := 0; i < hp.Len(); i++ {
			if (*hp)[i] == price {
				heap.Remove(hp, i)
				return
			}
		}
	}
	panic(fmt.Sprintf("price %d missing from heap", price))
}

// PriceLevel aggregates resting quantity at one price.
type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

// BidLevels returns aggregated bid levels, best (highest) first.
func (b *Book) BidLevels() []PriceLevel {
	levels := aggregate(b.bids)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	return levels
}

// AskLevels returns aggregated ask levels, best (lowest) first.
func (b *Book) AskLevels() []PriceLevel {
	levels := aggregate(b.asks)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	return levels
}

func aggregate(side map[int64][]*Order) []PriceLevel {
	var levels []PriceLevel
	for price, orders := range side {
		var total int64
		for _, o := range orders {
			total += o.Remaining
		}
		levels = append(levels, PriceLevel{Price: price, Qty: total})
	}
	return levels
}
