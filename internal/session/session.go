// Package session holds the client-side replica of a shared watch session:
// the queue, the participant roster, the playback synchronizer and the
// autoplay flag, all mutated by a single event loop so no two handlers ever
// run concurrently.
package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/player"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// origin tracks what triggered a navigation, so an inbound PLAY_VIDEO never
// echoes back an outbound one.
type origin int

const (
	originLocal origin = iota
	originRemote
)

// Session is the root aggregate: one queue, one roster, one playback
// position, one autoplay flag, replicated from the coordinator identified by
// the session token.
type Session struct {
	token string

	Roster   *Roster
	Queue    *Queue
	Sync     *Synchronizer
	Autoplay *Autoplay

	player player.Player
	page   player.Page
	send   Sender

	events     chan func()
	onReaction func(string) // ephemeral, no state effect; may be nil
}

type Options struct {
	Token      string
	SelfID     domain.SocketID
	Player     player.Player
	Page       player.Page
	Sender     Sender
	Margin     float64
	OnReaction func(string)
}

func New(opts Options) *Session {
	s := &Session{
		token:      opts.Token,
		player:     opts.Player,
		page:       opts.Page,
		send:       opts.Sender,
		events:     make(chan func(), 16),
		onReaction: opts.OnReaction,
	}
	s.Roster = NewRoster(opts.SelfID, opts.Sender)
	s.Queue = NewQueue(opts.Sender)
	s.Sync = NewSynchronizer(opts.Player, opts.Sender, opts.Margin)
	s.Autoplay = NewAutoplay(opts.Sender)
	return s
}

func (s *Session) Token() string { return s.token }

// Run is the single dispatch loop. Inbound frames and posted callbacks are
// executed to completion one at a time; it returns when the frame channel
// closes (the channel was closed on leave) or the context ends.
func (s *Session) Run(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				log.Info().Str("module", "session").Str("token", s.token).Msg("channel closed")
				return
			}
			s.HandleFrame(frame)
		case fn := <-s.events:
			fn()
		}
	}
}

// Post schedules a callback onto the dispatch loop. Player state changes,
// poller observations and UI actions enter the session this way so they
// never race with frame handling.
func (s *Session) Post(fn func()) {
	s.events <- fn
}

// HandleFrame decodes and dispatches one inbound frame. Malformed frames
// and unknown actions are logged and dropped; no inbound frame is ever
// fatal.
func (s *Session) HandleFrame(frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("dropping frame")
		return
	}

	switch env.Action {
	case protocol.KindPlay:
		t, err := env.Position()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping play")
			return
		}
		s.Sync.HandleRemotePlay(t)
	case protocol.KindPause:
		t, err := env.Position()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping pause")
			return
		}
		s.Sync.HandleRemotePause(t)
	case protocol.KindSeek:
		t, err := env.Position()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping seek")
			return
		}
		s.Sync.HandleRemoteSeek(t)
	case protocol.KindPlayVideo:
		id, err := env.Text()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping play_video")
			return
		}
		s.navigate(id, originRemote)
	case protocol.KindAddToQueue:
		v, err := env.Video()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping add")
			return
		}
		s.Queue.ApplyAdd(v)
	case protocol.KindRemoveFromQueue:
		id, err := env.Text()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping remove")
			return
		}
		s.Queue.ApplyRemove(id)
	case protocol.KindQueue:
		snap, err := env.Queue()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping queue snapshot")
			return
		}
		s.Queue.ApplySnapshot(snap)
	case protocol.KindAutoplay:
		v, err := env.Bool()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping autoplay")
			return
		}
		s.Autoplay.ApplyRemote(v)
	case protocol.KindClients:
		cs, err := env.Clients()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping roster snapshot")
			return
		}
		s.Roster.ApplySnapshot(cs)
	case protocol.KindClientConnect:
		c, err := env.Client()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping connect")
			return
		}
		s.Roster.ApplyConnect(c)
	case protocol.KindClientDisconnect:
		sid, err := env.Text()
		if err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("dropping disconnect")
			return
		}
		s.Roster.ApplyDisconnect(domain.SocketID(sid))
	case protocol.KindReaction:
		reaction, err := env.Text()
		if err != nil {
			return
		}
		if s.onReaction != nil {
			s.onReaction(reaction)
		}
	case protocol.KindPromote, protocol.KindUnpromote:
		// Promotion changes reach the replica through the CLIENTS
		// broadcast that follows; the notification itself carries no
		// state to apply.
		sid, _ := env.Text()
		log.Debug().Str("module", "session").Str("action", string(env.Action)).Str("sid", sid).Msg("promotion notice")
	}
}

// HandlePlayerState is wired to the engine's state-change callback (via
// Post). ENDED feeds the autoplay decision; everything else goes to the
// synchronizer.
func (s *Session) HandlePlayerState(state domain.PlayerState) {
	if state == domain.StateEnded {
		s.handleEnded()
		return
	}
	s.Sync.HandleLocalTransition(state)
}

func (s *Session) handleEnded() {
	if !s.Autoplay.Enabled() {
		return
	}
	next, ok := s.Queue.Advance()
	if !ok {
		log.Debug().Str("module", "session").Msg("queue exhausted")
		return
	}
	// Advancing is a request: navigate locally and tell the coordinator so
	// the rest of the session follows.
	s.navigate(next.VideoID, originLocal)
}

// PlayVideo is the local UI action "play this entry now".
func (s *Session) PlayVideo(videoID string) {
	s.navigate(videoID, originLocal)
}

func (s *Session) navigate(videoID string, from origin) {
	s.Queue.Select(videoID)
	if s.page != nil {
		s.page.Navigate(videoID)
	}
	s.player.LoadVideo(videoID)
	if from == originRemote {
		return
	}
	frame, err := protocol.Encode(protocol.KindPlayVideo, videoID)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("encode play_video")
		return
	}
	if err := s.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("play_video dropped")
	}
}

// SendReaction relays an ephemeral reaction; nothing in the replica changes.
func (s *Session) SendReaction(reaction string) {
	frame, err := protocol.Encode(protocol.KindReaction, reaction)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("encode reaction")
		return
	}
	if err := s.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("reaction dropped")
	}
}
