package session

import (
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/player"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// DefaultMargin is the tolerance in seconds below which an inbound position
// is left alone. It exists to keep network jitter and the engine's own clock
// drift from causing oscillating micro-seeks.
const DefaultMargin = 1.0

// Synchronizer reconciles the local playback engine with inbound
// PLAY/PAUSE/SEEK broadcasts and turns local transitions into outbound ones.
// The remote flag marks the next emitting transition as remotely driven so
// it is not broadcast back.
type Synchronizer struct {
	player player.Player
	send   Sender
	margin float64
	remote bool
	resync func(pos float64) // notified whenever the synchronizer moves the position
}

func NewSynchronizer(p player.Player, send Sender, margin float64) *Synchronizer {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Synchronizer{player: p, send: send, margin: margin}
}

// BindResync attaches a hook fired whenever the synchronizer itself moves
// the playback position. The seek detector resets its baseline from it so a
// remote-driven jump is never reported back as a local seek.
func (s *Synchronizer) BindResync(fn func(pos float64)) {
	s.resync = fn
}

// HandleRemotePlay reconciles to t and starts playback unless already
// playing. Any non-playing state gets the play command, not just PAUSED: a
// player still in CUED after a navigation has to start too, or the session
// drifts apart. The seek happens only when local and remote positions differ
// by more than the margin.
func (s *Synchronizer) HandleRemotePlay(t float64) {
	s.reconcile(t)
	if s.player.State() != domain.StatePlaying {
		s.remote = true
		s.player.Play()
	}
}

// HandleRemotePause reconciles to t and pauses if playing.
func (s *Synchronizer) HandleRemotePause(t float64) {
	s.reconcile(t)
	if s.player.State() == domain.StatePlaying {
		s.remote = true
		s.player.Pause()
	}
}

// HandleRemoteSeek jumps to t unconditionally. Seek is an explicit signal,
// not a continuous one, so no margin applies.
func (s *Synchronizer) HandleRemoteSeek(t float64) {
	s.player.SeekTo(t, true)
	if s.resync != nil {
		s.resync(t)
	}
}

// HandleLocalTransition is fed from the engine's state-change notification.
// Only PLAYING and PAUSED broadcast, and only those consume the remote flag:
// engines pass through BUFFERING on the way to PLAYING after a remote play,
// and that intermediate transition must not eat the suppression meant for
// the PLAYING that follows.
func (s *Synchronizer) HandleLocalTransition(state domain.PlayerState) {
	switch state {
	case domain.StatePlaying:
		if s.remote {
			s.remote = false
			return
		}
		s.emitPosition(protocol.KindPlay)
	case domain.StatePaused:
		if s.remote {
			s.remote = false
			return
		}
		s.emitPosition(protocol.KindPause)
	}
}

// HandleLocalSeek is fed from the seek-detection poller when the position
// jumps discontinuously outside a state transition.
func (s *Synchronizer) HandleLocalSeek(pos float64) {
	frame, err := protocol.EncodePosition(protocol.KindSeek, pos)
	if err != nil {
		log.Error().Err(err).Str("module", "session.playback").Msg("encode seek")
		return
	}
	if err := s.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.playback").Msg("seek dropped")
	}
}

func (s *Synchronizer) reconcile(t float64) {
	local := s.player.CurrentTime()
	diff := local - t
	if diff < 0 {
		diff = -diff
	}
	if diff > s.margin {
		log.Debug().Str("module", "session.playback").Float64("local", local).Float64("remote", t).Msg("reconciling position")
		s.player.SeekTo(t, true)
		if s.resync != nil {
			s.resync(t)
		}
	}
}

func (s *Synchronizer) emitPosition(kind protocol.Kind) {
	pos := s.player.CurrentTime()
	frame, err := protocol.EncodePosition(kind, pos)
	if err != nil {
		log.Error().Err(err).Str("module", "session.playback").Msg("encode transition")
		return
	}
	if err := s.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.playback").Str("action", string(kind)).Msg("transition dropped")
	}
}
