package coordinator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn is one participant's websocket with a buffered outbound channel.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- frame:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Controller accepts watch connections and arbitrates every privileged
// request against the session's permission state.
type Controller struct {
	Watches   *Manager
	Registry  *Registry
	Reactions *RateLimiter
	ReadLimit int64
}

// HandleWatch upgrades the connection, joins the session named in the query
// string and serves it until disconnect.
func (ctl *Controller) HandleWatch(ctx context.Context, c *gin.Context) {
	token := c.Query("session")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session token"})
		return
	}

	// socketIds are per connection, not stable across reconnects. The
	// handshake response carries it so the client knows its own entry in
	// roster broadcasts.
	sid := domain.SocketID(uuid.NewString())
	name := c.Query("name")

	header := http.Header{}
	header.Set("X-Socket-Id", string(sid))
	ws, err := upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		log.Error().Err(err).Str("module", "coordinator").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	watch := ctl.Watches.GetOrCreate(token)
	client := watch.AddMember(sid, name, conn)

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, token, cancel)

	log.Info().Str("module", "coordinator").Str("token", token).Str("sid", string(sid)).Msg("new watch connection")

	// Joining client gets the full picture before any deltas.
	ctl.sendSnapshot(watch, conn)
	ctl.broadcast(watch, protocol.KindClientConnect, *client, sid)

	// A canceled binding must unblock the read loop.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, watch, sid, conn)
}

// sendSnapshot brings a fresh connection up to date: queue, roster,
// autoplay.
func (ctl *Controller) sendSnapshot(w *Watch, c *wsConn) {
	ctl.sendTo(c, protocol.KindQueue, w.QueueSnapshot())
	ctl.sendTo(c, protocol.KindClients, w.ClientsSnapshot())
	ctl.sendTo(c, protocol.KindAutoplay, w.Autoplay())
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "coordinator").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "coordinator").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, w *Watch, sid domain.SocketID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "coordinator").Str("sid", string(sid)).Msg("readPump closing")
		ctl.leave(w, sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "coordinator").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(w, sid, data)
		}
	}
}

func (ctl *Controller) leave(w *Watch, sid domain.SocketID) {
	w.RemoveMember(sid)
	ctl.Registry.Unbind(sid)
	if ctl.Reactions != nil {
		ctl.Reactions.Forget(sid)
	}
	ctl.broadcast(w, protocol.KindClientDisconnect, string(sid), sid)
	ctl.Watches.Reap(w.Token())
}

// handleFrame arbitrates one inbound request. Unauthorized privileged
// requests are dropped silently: no confirming broadcast means no client
// applies them, which is the whole permission model.
func (ctl *Controller) handleFrame(w *Watch, sid domain.SocketID, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "coordinator").Str("sid", string(sid)).Msg("dropping frame")
		return
	}

	if env.Action != protocol.KindReaction && !w.Promoted(sid) {
		log.Debug().Str("module", "coordinator").Str("sid", string(sid)).Str("action", string(env.Action)).Msg("unauthorized request dropped")
		return
	}

	switch env.Action {
	case protocol.KindPlay, protocol.KindPause, protocol.KindSeek:
		t, err := env.Position()
		if err != nil {
			log.Warn().Err(err).Str("module", "coordinator").Msg("dropping position frame")
			return
		}
		if env.Action == protocol.KindSeek {
			w.SetPosition(t)
		} else {
			w.SetPlayback(env.Action == protocol.KindPlay, t)
		}
		// The sender's player already made this transition; echoing it
		// back would only risk a feedback loop.
		ctl.relay(w, data, sid)
	case protocol.KindPlayVideo:
		id, err := env.Text()
		if err != nil {
			return
		}
		w.SetSelected(id)
		ctl.relay(w, data, sid)
	case protocol.KindAddToQueue:
		v, err := env.Video()
		if err != nil {
			return
		}
		w.AddVideo(v)
		// Confirmation goes to everyone, the requester included: clients
		// never mutate their queue from the request path.
		ctl.relay(w, data, "")
	case protocol.KindRemoveFromQueue:
		id, err := env.Text()
		if err != nil {
			return
		}
		w.RemoveVideo(id)
		ctl.relay(w, data, "")
	case protocol.KindAutoplay:
		v, err := env.Bool()
		if err != nil {
			return
		}
		w.SetAutoplay(v)
		// Like queue mutations the flag is confirmation-only: the requester
		// applies it from this broadcast, not from its own request.
		ctl.relay(w, data, "")
	case protocol.KindPromote, protocol.KindUnpromote:
		target, err := env.Text()
		if err != nil {
			return
		}
		if !w.SetPromoted(domain.SocketID(target), env.Action == protocol.KindPromote) {
			return
		}
		ctl.relay(w, data, "")
		// Promotion state lives in the roster; a fresh snapshot is what
		// replicas actually apply.
		ctl.broadcast(w, protocol.KindClients, w.ClientsSnapshot(), "")
	case protocol.KindReaction:
		if ctl.Reactions != nil && !ctl.Reactions.Allow(sid) {
			log.Debug().Str("module", "coordinator").Str("sid", string(sid)).Msg("reaction rate limited")
			return
		}
		ctl.relay(w, data, sid)
	}
}

// relay forwards the original frame; skip == "" sends it to everyone.
func (ctl *Controller) relay(w *Watch, frame []byte, skip domain.SocketID) {
	ctl.kickDropped(w.Broadcast(frame, skip))
}

func (ctl *Controller) broadcast(w *Watch, kind protocol.Kind, payload any, skip domain.SocketID) {
	frame, err := protocol.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "coordinator").Str("action", string(kind)).Msg("encode broadcast")
		return
	}
	ctl.kickDropped(w.Broadcast(frame, skip))
}

func (ctl *Controller) sendTo(c *wsConn, kind protocol.Kind, payload any) {
	frame, err := protocol.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "coordinator").Str("action", string(kind)).Msg("encode")
		return
	}
	if err := c.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "coordinator").Msg("send dropped")
	}
}

// kickDropped applies the backpressure policy: a participant too slow to
// drain its buffer is disconnected rather than allowed to stall the session.
func (ctl *Controller) kickDropped(dropped []domain.SocketID) {
	for _, sid := range dropped {
		log.Warn().Str("module", "coordinator").Str("sid", string(sid)).Msg("kicking slow client")
		ctl.Registry.Cancel(sid)
	}
}
