package memory

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// NewID returns a millisecond timestamp token. Ids handed out by one process
// are strictly increasing even when called within the same millisecond.
func NewID(now time.Time) string {
	for {
		prev := lastID.Load()
		ms := now.UnixMilli()
		if ms <= prev {
			ms = prev + 1
		}
		if lastID.CompareAndSwap(prev, ms) {
			return strconv.FormatInt(ms, 10)
		}
	}
}
