package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
)

// Headless is a clock-driven Player and Page used by the daemon when no real
// engine is attached. Position advances with wall time while playing.
type Headless struct {
	mu      sync.Mutex
	state   domain.PlayerState
	pos     float64
	anchor  time.Time
	current domain.Video

	onState func(domain.PlayerState)
}

func NewHeadless() *Headless {
	return &Headless{state: domain.StateUnstarted}
}

// OnStateChange registers the engine's state-change notification callback.
// The callback runs on the goroutine that triggered the transition.
func (h *Headless) OnStateChange(fn func(domain.PlayerState)) {
	h.mu.Lock()
	h.onState = fn
	h.mu.Unlock()
}

func (h *Headless) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.posLocked()
}

func (h *Headless) posLocked() float64 {
	if h.state == domain.StatePlaying {
		return h.pos + time.Since(h.anchor).Seconds()
	}
	return h.pos
}

func (h *Headless) State() domain.PlayerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Headless) Play() {
	h.transition(domain.StatePlaying)
}

func (h *Headless) Pause() {
	h.transition(domain.StatePaused)
}

func (h *Headless) SeekTo(seconds float64, _ bool) {
	h.mu.Lock()
	h.pos = seconds
	h.anchor = time.Now()
	h.mu.Unlock()
	log.Debug().Str("module", "player").Float64("pos", seconds).Msg("seek")
}

func (h *Headless) LoadVideo(videoID string) {
	h.mu.Lock()
	h.current = domain.Video{VideoID: videoID}
	h.pos = 0
	h.anchor = time.Now()
	h.mu.Unlock()
	log.Info().Str("module", "player").Str("video", videoID).Msg("load video")
	h.transition(domain.StateCued)
}

// Finish simulates reaching the end of the current video.
func (h *Headless) Finish() {
	h.transition(domain.StateEnded)
}

func (h *Headless) transition(to domain.PlayerState) {
	h.mu.Lock()
	if h.state == to {
		h.mu.Unlock()
		return
	}
	h.pos = h.posLocked()
	h.anchor = time.Now()
	h.state = to
	fn := h.onState
	h.mu.Unlock()
	if fn != nil {
		fn(to)
	}
}

// CurrentVideo implements Page.
func (h *Headless) CurrentVideo() (domain.Video, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.current.VideoID != ""
}

// Navigate implements Page. Headless has no real page, loading the video is
// the whole navigation.
func (h *Headless) Navigate(videoID string) {
	h.LoadVideo(videoID)
}
