package session

import (
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// Sender is the outbound half of the coordinator channel. Sends are
// fire-and-forget; a full buffer drops the frame and divergence is healed by
// the next snapshot.
type Sender interface {
	TrySend(frame []byte) error
}

// Roster is the local replica of the session's participant list. A full
// CLIENTS snapshot always wins over accumulated connect/disconnect deltas.
type Roster struct {
	selfID  domain.SocketID
	clients map[domain.SocketID]domain.Client
	send    Sender
}

func NewRoster(selfID domain.SocketID, send Sender) *Roster {
	return &Roster{
		selfID:  selfID,
		clients: make(map[domain.SocketID]domain.Client),
		send:    send,
	}
}

// ApplySnapshot replaces the whole roster. This is the resynchronization
// path after any suspected drift.
func (r *Roster) ApplySnapshot(clients []domain.Client) {
	r.clients = make(map[domain.SocketID]domain.Client, len(clients))
	for _, c := range clients {
		r.clients[c.SocketID] = c
	}
	log.Debug().Str("module", "session.roster").Int("count", len(clients)).Msg("applied roster snapshot")
}

// ApplyConnect inserts a newly connected client. A duplicate CONNECT for a
// known socketId is a no-op.
func (r *Roster) ApplyConnect(c domain.Client) {
	if _, ok := r.clients[c.SocketID]; ok {
		return
	}
	r.clients[c.SocketID] = c
	log.Info().Str("module", "session.roster").Str("sid", string(c.SocketID)).Msg("client connected")
}

// ApplyDisconnect removes a client; an absent socketId is a no-op.
func (r *Roster) ApplyDisconnect(sid domain.SocketID) {
	if _, ok := r.clients[sid]; !ok {
		return
	}
	delete(r.clients, sid)
	log.Info().Str("module", "session.roster").Str("sid", string(sid)).Msg("client disconnected")
}

func (r *Roster) Size() int { return len(r.clients) }

func (r *Roster) Get(sid domain.SocketID) (domain.Client, bool) {
	c, ok := r.clients[sid]
	return c, ok
}

// Self reports the local client's entry as the coordinator last broadcast
// it. Promotion state lives here, never locally assumed.
func (r *Roster) Self() (domain.Client, bool) {
	return r.Get(r.selfID)
}

// Promoted reports whether the local client may expect privileged requests
// to be honored. Requests are sent regardless; the coordinator is the sole
// enforcer.
func (r *Roster) Promoted() bool {
	c, ok := r.Self()
	return ok && c.Promoted
}

// RequestPromote asks the coordinator to promote the given client. The
// local roster is untouched until a confirming CLIENTS broadcast arrives.
func (r *Roster) RequestPromote(sid domain.SocketID) {
	r.emit(protocol.KindPromote, sid)
}

func (r *Roster) RequestUnpromote(sid domain.SocketID) {
	r.emit(protocol.KindUnpromote, sid)
}

func (r *Roster) emit(kind protocol.Kind, sid domain.SocketID) {
	frame, err := protocol.Encode(kind, string(sid))
	if err != nil {
		log.Error().Err(err).Str("module", "session.roster").Msg("encode request")
		return
	}
	if err := r.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.roster").Str("action", string(kind)).Msg("send dropped")
	}
}
