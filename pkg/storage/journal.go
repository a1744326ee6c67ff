package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine/book"
)

// Journal is the append-only execution log, kept in pebble. Writes go
// through a buffered channel and a single writer goroutine so journaling
// never blocks the matching engine's command intake.
type Journal struct {
	db   *pebble.DB
	ch   chan book.Execution
	done chan struct{}
	log  *zap.SugaredLogger

	// run stamps this process's keys so they sort after every earlier
	// run's; n disambiguates executions produced by the same command
	// (they share a sequence number).
	run uint64
	n   uint64
}

// NewJournal opens (or creates) the journal at path and starts its writer.
func NewJournal(path string, log *zap.SugaredLogger) (*Journal, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{
		db:   db,
		ch:   make(chan book.Execution, 4096),
		done: make(chan struct{}),
		log:  log,
		run:  uint64(time.Now().UnixNano()),
	}
	go j.writeLoop()
	return j, nil
}

// Append queues an execution for journaling. Never blocks: if the writer
// falls behind and the buffer fills, the execution is dropped with a loud
// log line rather than stalling the engine.
func (j *Journal) Append(ex book.Execution) {
	select {
	case j.ch <- ex:
	default:
		j.log.Errorw("journal_backlog_drop", "asset", ex.Asset, "seq", ex.Seq)
	}
}

func (j *Journal) writeLoop() {
	defer close(j.done)
	for ex := range j.ch {
		j.n++
		key := executionKey(ex.Asset, j.run, ex.Seq, j.n)
		val, err := json.Marshal(ex)
		if err != nil {
			j.log.Errorw("journal_encode_failed", "err", err)
			continue
		}
		// NoSync: the journal is an audit trail, not the source of truth
		// for fund state.
		if err := j.db.Set(key, val, pebble.NoSync); err != nil {
			j.log.Errorw("journal_write_failed", "err", err)
		}
	}
}

// RecentExecutions returns the most recent executions for an asset, newest
// first, at most limit of them.
func (j *Journal) RecentExecutions(a asset.Asset, limit int) ([]book.Execution, error) {
	prefix := executionPrefix(a)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []book.Execution
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var ex book.Execution
		if err := json.Unmarshal(iter.Value(), &ex); err != nil {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// Close stops accepting executions, flushes the queue and closes the db.
func (j *Journal) Close() error {
	close(j.ch)
	<-j.done
	return j.db.Close()
}
