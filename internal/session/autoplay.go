package session

import (
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// Autoplay mirrors the session-wide autoplay flag and owns the
// advance-on-ended decision.
type Autoplay struct {
	enabled   bool
	send      Sender
	indicator func(bool) // bound UI indicator, may be nil
}

func NewAutoplay(send Sender) *Autoplay {
	return &Autoplay{send: send}
}

// BindIndicator attaches the UI element reflecting the flag.
func (a *Autoplay) BindIndicator(fn func(bool)) {
	a.indicator = fn
	if fn != nil {
		fn(a.enabled)
	}
}

func (a *Autoplay) Enabled() bool { return a.enabled }

// Toggle requests the opposite value from a local UI action.
func (a *Autoplay) Toggle() {
	a.Request(!a.enabled)
}

// Request asks the coordinator to set the flag. The replica mutates only
// when the confirming AUTOPLAY broadcast arrives, same as queue mutations:
// an unprivileged request that gets dropped must not leave the flag
// diverged.
func (a *Autoplay) Request(enabled bool) {
	frame, err := protocol.Encode(protocol.KindAutoplay, enabled)
	if err != nil {
		log.Error().Err(err).Str("module", "session.autoplay").Msg("encode autoplay")
		return
	}
	if err := a.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.autoplay").Msg("autoplay dropped")
	}
}

// ApplyRemote mirrors an inbound AUTOPLAY broadcast without re-emitting.
func (a *Autoplay) ApplyRemote(enabled bool) {
	a.apply(enabled)
}

func (a *Autoplay) apply(enabled bool) {
	a.enabled = enabled
	if a.indicator != nil {
		a.indicator(enabled)
	}
}
