// Package transport provides the duplex text-frame channel to the session
// coordinator: one websocket per session join, addressed by the session
// token in the query string.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeDeadline  = 5 * time.Second
	defaultBufSize = 32
)

// Channel is the client side of the coordinator connection. Sends are
// non-blocking; inbound frames arrive on Frames until the connection drops,
// then Frames closes. Reconnection policy belongs to the caller.
type Channel struct {
	conn     *websocket.Conn
	socketID string
	send     chan []byte
	frames   chan []byte
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// SocketID is the connection identity the coordinator assigned during the
// handshake. It changes on every reconnect.
func (c *Channel) SocketID() string {
	return c.socketID
}

type Options struct {
	// Name is the display name announced on join; optional.
	Name       string
	ReadLimit  int64
	SendBuffer int
}

// Dial joins the session identified by token at serverURL (http/https or
// ws/wss; http schemes are rewritten).
func Dial(ctx context.Context, serverURL, token string, opts Options) (*Channel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/ws/watch"
	q := u.Query()
	q.Set("session", token)
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	socketID := ""
	if resp != nil {
		socketID = resp.Header.Get("X-Socket-Id")
	}
	if opts.ReadLimit > 0 {
		conn.SetReadLimit(opts.ReadLimit)
	}
	buf := opts.SendBuffer
	if buf <= 0 {
		buf = defaultBufSize
	}

	c := &Channel{
		conn:     conn,
		socketID: socketID,
		send:     make(chan []byte, buf),
		frames:   make(chan []byte, buf),
		done:     make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	log.Info().Str("module", "transport").Str("host", u.Host).Msg("channel open")
	return c, nil
}

// TrySend queues a frame without blocking. A full buffer returns
// ErrBackpressure and the frame is dropped; the protocol heals through
// snapshots, not retransmission.
func (c *Channel) TrySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

// Frames delivers inbound text frames in arrival order.
func (c *Channel) Frames() <-chan []byte {
	return c.frames
}

func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Channel) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			log.Error().Err(err).Str("module", "transport").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "transport").Msg("writePump write error")
			return
		}
	}
}

func (c *Channel) readPump() {
	defer func() {
		close(c.frames)
		c.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "transport").Msg("readPump closing")
			return
		}
		// Delivery must not outlive Close: with a full buffer and no
		// consumer a bare send would pin this goroutine forever.
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}
