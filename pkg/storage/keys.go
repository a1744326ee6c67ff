package storage

import (
	"fmt"

	"github.com/voltexchange/voltex/pkg/asset"
)

// keys: t:<asset>:<20-digit run>:<20-digit seq>:<20-digit journal counter>
// Zero padding keeps lexicographic order equal to numeric order, so a
// prefix iterator walks executions in sequence order. run is the journal's
// open timestamp: engine sequence numbers and the journal counter both
// restart at 1 with the process, and without the run component a restarted
// exchange would overwrite the previous run's entries.

func executionKey(a asset.Asset, run, seq, n uint64) []byte {
	return []byte(fmt.Sprintf("t:%s:%020d:%020d:%020d", a, run, seq, n))
}

func executionPrefix(a asset.Asset) []byte {
	return []byte(fmt.Sprintf("t:%s:", a))
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
