// Package buffers pools the byte buffers used to encode request snapshots
// and JSON error responses.
package buffers

import (
	"bytes"
	"sync"
)

// Three tiers sized for what gets encoded here:
//   - small (512B): error bodies like {"error":"..."}
//   - medium (8KB): a typical request snapshot
//   - large (64KB): snapshots carrying big parsed bodies
const (
	smallSize  = 512
	mediumSize = 8 << 10
	largeSize  = 64 << 10

	// Buffers that grew past this are dropped instead of pooled so one
	// huge request cannot pin memory for the life of the process.
	maxRetained = 1 << 20
)

type tier struct {
	size int
	pool sync.Pool
}

func newTier(size int) *tier {
	t := &tier{size: size}
	t.pool.New = func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, size))
	}
	return t
}

var tiers = [...]*tier{newTier(smallSize), newTier(mediumSize), newTier(largeSize)}

// Acquire returns an empty buffer from the tier matching sizeHint.
// A hint of 0 means unknown and selects the medium tier.
//
// Performance: 0 allocs/op once the pool is warm
func Acquire(sizeHint int) *bytes.Buffer {
	switch {
	case sizeHint == 0:
		return tiers[1].pool.Get().(*bytes.Buffer)
	case sizeHint <= smallSize:
		return tiers[0].pool.Get().(*bytes.Buffer)
	case sizeHint <= mediumSize:
		return tiers[1].pool.Get().(*bytes.Buffer)
	default:
		return tiers[2].pool.Get().(*bytes.Buffer)
	}
}

// Release resets buf and returns it to the tier matching its capacity.
// The buffer must not be used afterwards.
func Release(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxRetained {
		return
	}
	buf.Reset()

	for _, t := range tiers {
		if buf.Cap() <= t.size {
			t.pool.Put(buf)
			return
		}
	}
	tiers[len(tiers)-1].pool.Put(buf)
}
