package sched

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/player"
)

// DefaultSeekThreshold is how far the observed position may stray from the
// position expected from normal playback before the jump counts as a seek.
const DefaultSeekThreshold = 2.0

// SeekDetector polls the playback engine and reports discontinuous position
// jumps. During playback the expected position advances with wall time;
// while paused it stands still. Anything beyond Threshold off the
// expectation is a local seek.
type SeekDetector struct {
	Interval  time.Duration
	Threshold float64
	Player    player.Player
	OnSeek    func(pos float64)

	mu       sync.Mutex
	prev     float64
	prevAt   time.Time
	prevPlay bool
}

func (d *SeekDetector) Run(ctx context.Context) {
	if d.Threshold <= 0 {
		d.Threshold = DefaultSeekThreshold
	}
	d.Suppress(d.Player.CurrentTime())
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.observe(now)
		}
	}
}

// Suppress resets the baseline to pos. The synchronizer calls it after it
// moves the position itself, so a remote-driven jump is not reported back as
// a local seek on the next poll.
func (d *SeekDetector) Suppress(pos float64) {
	d.mu.Lock()
	d.prev = pos
	d.prevAt = time.Now()
	d.prevPlay = d.Player.State() == domain.StatePlaying
	d.mu.Unlock()
}

func (d *SeekDetector) observe(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := d.Player.CurrentTime()
	expected := d.prev
	if d.prevPlay {
		expected += now.Sub(d.prevAt).Seconds()
	}
	if math.Abs(cur-expected) > d.Threshold {
		d.OnSeek(cur)
	}
	d.prev = cur
	d.prevAt = now
	d.prevPlay = d.Player.State() == domain.StatePlaying
}
