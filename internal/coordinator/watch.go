// Package coordinator implements the session authority the clients
// replicate from: it owns the real queue, roster, playback position and
// autoplay flag per session token, enforces the permission model, and
// broadcasts every honored change to all participants.
package coordinator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// conn is the transport endpoint of one participant. Owned by the
// controller; the watch only fans out to it.
type conn interface {
	TrySend(frame []byte) error
}

type member struct {
	client *domain.Client
	conn   conn
}

// Watch is the authoritative state of one shared-viewing session.
type Watch struct {
	token string

	mu       sync.RWMutex
	members  map[domain.SocketID]*member
	queue    []domain.Video
	selected *domain.Video
	playing  bool
	position float64
	autoplay bool
}

func NewWatch(token string) *Watch {
	return &Watch{
		token:   token,
		members: make(map[domain.SocketID]*member),
	}
}

func (w *Watch) Token() string { return w.token }

// AddMember registers a participant. The first client of a session is
// promoted; everyone else joins unprivileged.
func (w *Watch) AddMember(sid domain.SocketID, name string, c conn) *domain.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	cl := domain.NewClient(sid, name)
	if len(w.members) == 0 {
		cl.Promoted = true
	}
	w.members[sid] = &member{client: cl, conn: c}
	log.Info().Str("module", "coordinator.watch").Str("token", w.token).Str("sid", string(sid)).Bool("promoted", cl.Promoted).Msg("member added")
	return cl
}

func (w *Watch) RemoveMember(sid domain.SocketID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.members, sid)
	log.Info().Str("module", "coordinator.watch").Str("token", w.token).Str("sid", string(sid)).Msg("member removed")
}

func (w *Watch) MemberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.members)
}

// Promoted reports whether the given participant may issue privileged
// commands. Unknown socketIds are never privileged.
func (w *Watch) Promoted(sid domain.SocketID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.members[sid]
	return ok && m.client.Promoted
}

// SetPromoted flips the target's flag. Reports whether the target exists.
func (w *Watch) SetPromoted(sid domain.SocketID, promoted bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.members[sid]
	if !ok {
		return false
	}
	m.client.Promoted = promoted
	return true
}

func (w *Watch) ClientsSnapshot() []domain.Client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.Client, 0, len(w.members))
	for _, m := range w.members {
		out = append(out, *m.client)
	}
	return out
}

func (w *Watch) AddVideo(v domain.Video) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, v)
}

// RemoveVideo drops the first slot matching videoId, same policy the
// clients replicate.
func (w *Watch) RemoveVideo(videoID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, v := range w.queue {
		if v.VideoID == videoID {
			w.queue = append(w.queue[:i], w.queue[i+1:]...)
			return
		}
	}
}

func (w *Watch) SetSelected(videoID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.queue {
		if w.queue[i].VideoID == videoID {
			v := w.queue[i]
			w.selected = &v
			return
		}
	}
	// Not a queue slot; still the session's current video.
	w.selected = &domain.Video{VideoID: videoID}
}

func (w *Watch) SetPlayback(playing bool, position float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.playing = playing
	w.position = position
}

// SetPosition records a seek without touching the play state.
func (w *Watch) SetPosition(position float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.position = position
}

func (w *Watch) SetAutoplay(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.autoplay = enabled
}

func (w *Watch) Autoplay() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.autoplay
}

func (w *Watch) QueueSnapshot() protocol.QueueSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	videos := make([]domain.Video, len(w.queue))
	copy(videos, w.queue)
	var sel *domain.Video
	if w.selected != nil {
		v := *w.selected
		sel = &v
	}
	return protocol.QueueSnapshot{Video: sel, Videos: videos}
}

// Broadcast fans a frame out to every member, optionally skipping one.
// Members whose buffer is full are returned so the controller can apply its
// backpressure policy.
func (w *Watch) Broadcast(frame []byte, skip domain.SocketID) []domain.SocketID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var dropped []domain.SocketID
	sent := 0
	for sid, m := range w.members {
		if sid == skip {
			continue
		}
		if err := m.conn.TrySend(frame); err != nil {
			dropped = append(dropped, sid)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "coordinator.watch").Str("token", w.token).Int("sent_to", sent).Int("dropped", len(dropped)).Msg("broadcast result")
	return dropped
}
