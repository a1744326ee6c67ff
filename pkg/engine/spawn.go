package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

// DefaultChannelCapacity bounds the command channel when no capacity is
// configured. Matches TE_CHANNEL_CAPACITY's default.
const DefaultChannelCapacity = 1024

type Options struct {
	// ChannelCapacity is the bounded command channel size. Submissions
	// block (backpressure) when it is full.
	ChannelCapacity int

	Logger *zap.SugaredLogger

	// OnExecution is called on the engine goroutine once per execution,
	// after the command that produced it completed. It must not block;
	// hand off to a buffered channel and return.
	OnExecution func(book.Execution)
}

// Handle is the send endpoint of the command channel, shared by every
// request-handling goroutine. It is constructed once at startup by Spawn;
// there is no global engine instance.
type Handle struct {
	commands chan submission
	done     chan struct{}
	log      *zap.SugaredLogger

	// mu guards closed so intake can be shut without racing in-flight
	// submissions onto a closed channel.
	mu     sync.RWMutex
	closed bool

	// depth holds per-asset immutable snapshots published by the driver
	// after each command, so the web layer never reads book state directly.
	depth sync.Map // asset.Asset -> *DepthSnapshot
}

// DepthSnapshot is an immutable view of one book's aggregated levels.
type DepthSnapshot struct {
	Asset asset.Asset       `json:"asset"`
	Bids  []book.PriceLevel `json:"bids"`
	Asks  []book.PriceLevel `json:"asks"`
	Seq   uint64            `json:"seq"`
}

// Spawn creates the engine core and starts its single driver goroutine.
// All order books live on that goroutine; callers interact only through
// the returned Handle.
func Spawn(registry *asset.Registry, opts Options) *Handle {
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = DefaultChannelCapacity
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	h := &Handle{
		commands: make(chan submission, opts.ChannelCapacity),
		done:     make(chan struct{}),
		log:      opts.Logger,
	}
	c := newCore(registry, opts.Logger)
	for a := range c.books {
		h.publishDepth(c, a)
	}

	h.log.Infow("engine_started",
		"assets", len(c.books),
		"channel_capacity", opts.ChannelCapacity)

	go h.run(c, opts.OnExecution)
	return h
}

func (h *Handle) run(c *core, onExec func(book.Execution)) {
	defer close(h.done)

	for sub := range h.commands {
		res := c.handle(sub)
		sub.slot.resolve(res)

		switch {
		case sub.place != nil && res.Place != nil:
			if onExec != nil {
				for _, ex := range res.Place.Executions {
					onExec(ex)
				}
			}
			h.publishDepth(c, sub.place.Asset)
		case sub.cancel != nil && res.Cancel != nil:
			h.publishDepth(c, res.Cancel.Asset)
		}
	}

	h.log.Infow("engine_stopped", "last_seq", c.seq)
}

func (h *Handle) publishDepth(c *core, a asset.Asset) {
	bk, ok := c.books[a]
	if !ok {
		return
	}
	h.depth.Store(a, &DepthSnapshot{
		Asset: a,
		Bids:  bk.BidLevels(),
		Asks:  bk.AskLevels(),
		Seq:   c.seq,
	})
}

// Depth returns the most recent published snapshot for an asset.
func (h *Handle) Depth(a asset.Asset) (*DepthSnapshot, bool) {
	v, ok := h.depth.Load(a)
	if !ok {
		return nil, false
	}
	return v.(*DepthSnapshot), true
}

// SubmitPlaceOrder validates the command and queues it for the engine.
// Structural validation failures come back synchronously, before channel
// acceptance. Once the submission is accepted it reaches the engine exactly
// once, even across shutdown.
func (h *Handle) SubmitPlaceOrder(p PlaceOrder) (*Slot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return h.submit(submission{place: &p, slot: newSlot()})
}

// SubmitCancelOrder queues a cancellation for the engine.
func (h *Handle) SubmitCancelOrder(c CancelOrder) (*Slot, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return h.submit(submission{cancel: &c, slot: newSlot()})
}

func (h *Handle) submit(sub submission) (*Slot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrEngineClosed
	}
	// Blocks while the channel is full. Shutdown cannot close the channel
	// under us: it needs the write lock.
	h.commands <- sub
	return sub.slot, nil
}

// Shutdown closes intake and blocks until the driver goroutine has fully
// stopped. Commands accepted before intake closed are drained and
// processed, never dropped. Safe to call more than once.
func (h *Handle) Shutdown() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.commands)
	}
	h.mu.Unlock()
	<-h.done
}

// Done is closed once the driver goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
