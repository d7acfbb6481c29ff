package publisher

import (
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// pollBackoff doubles the wait after each failed batch and resets once a
// batch goes through.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	jitter  func() time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	return &pollBackoff{
		base:    base,
		max:     max,
		current: base,
		jitter: func() time.Duration {
			return time.Duration(rand.Int64N(int64(jitterWindow)))
		},
	}
}

func (b *pollBackoff) idle() time.Duration {
	return b.base + b.jitter()
}

func (b *pollBackoff) failure() time.Duration {
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return b.current + b.jitter()
}

func (b *pollBackoff) reset() {
	b.current = b.base
}
