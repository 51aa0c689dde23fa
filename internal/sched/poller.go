// Package sched provides the polling primitives the session uses for change
// detection the host environment has no native events for: discontinuous
// seeks and in-page navigation. A poller compares the previous observation
// with the current one on a fixed interval; stopping the context stops
// further polls.
package sched

import (
	"context"
	"time"
)

// Poller invokes OnChange whenever two consecutive observations differ.
type Poller[T comparable] struct {
	Interval time.Duration
	Observe  func() T
	OnChange func(prev, cur T)

	prev T
}

// Run polls until ctx is done. The first observation seeds the comparison
// without firing OnChange.
func (p *Poller[T]) Run(ctx context.Context) {
	p.prev = p.Observe()
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller[T]) poll() {
	cur := p.Observe()
	if cur != p.prev {
		p.OnChange(p.prev, cur)
	}
	p.prev = cur
}
