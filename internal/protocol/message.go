// Package protocol defines the wire messages exchanged with the session
// coordinator: a closed set of actions carried in a versioned JSON envelope,
// one message per text frame.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
)

// Version is written into every outbound envelope. Inbound frames without a
// version field are read as version 1 (the pre-versioned wire format).
const Version = 1

type Kind string

const (
	KindPlay             Kind = "PLAY"
	KindPause            Kind = "PAUSE"
	KindSeek             Kind = "SEEK"
	KindPlayVideo        Kind = "PLAY_VIDEO"
	KindAddToQueue       Kind = "ADD_TO_QUEUE"
	KindRemoveFromQueue  Kind = "REMOVE_FROM_QUEUE"
	KindQueue            Kind = "QUEUE"
	KindAutoplay         Kind = "AUTOPLAY"
	KindClients          Kind = "CLIENTS"
	KindClientConnect    Kind = "CLIENT_CONNECT"
	KindClientDisconnect Kind = "CLIENT_DISCONNECT"
	KindReaction         Kind = "REACTION"
	KindPromote          Kind = "PROMOTE"
	KindUnpromote        Kind = "UNPROMOTE"
)

var kinds = map[Kind]struct{}{
	KindPlay: {}, KindPause: {}, KindSeek: {}, KindPlayVideo: {},
	KindAddToQueue: {}, KindRemoveFromQueue: {}, KindQueue: {},
	KindAutoplay: {}, KindClients: {}, KindClientConnect: {},
	KindClientDisconnect: {}, KindReaction: {}, KindPromote: {},
	KindUnpromote: {},
}

var (
	ErrUnknownKind = errors.New("unknown action")
	ErrVersion     = errors.New("unsupported protocol version")
)

// Envelope is the tagged record every frame decodes into. Data stays raw
// until the handler for Action asks for its typed payload.
type Envelope struct {
	V      int             `json:"v,omitempty"`
	Action Kind            `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// QueueSnapshot is the payload of a QUEUE message: the full pending list
// plus which entry is currently selected (nil when nothing plays).
type QueueSnapshot struct {
	Video  *domain.Video  `json:"video"`
	Videos []domain.Video `json:"videos"`
}

// Decode parses a text frame. Any error is a reason to drop the frame, not
// to crash the receiver: the caller logs and moves on.
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.V == 0 {
		env.V = 1
	}
	if env.V > Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, env.V)
	}
	if _, ok := kinds[env.Action]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Action)
	}
	return &env, nil
}

// Encode builds a frame for the given action. The payload is marshaled
// as-is; use EncodePosition for the stringified-seconds actions.
func Encode(action Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	return json.Marshal(Envelope{V: Version, Action: action, Data: data})
}

// EncodePosition builds a PLAY/PAUSE/SEEK frame. Positions travel as
// stringified fractional seconds.
func EncodePosition(action Kind, seconds float64) ([]byte, error) {
	return Encode(action, strconv.FormatFloat(seconds, 'f', -1, 64))
}

// Position reads a stringified-seconds payload. A payload that is neither a
// JSON string nor a bare number is a parse failure the caller treats as a
// no-op.
func (e *Envelope) Position() (float64, error) {
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse position %q: %w", s, err)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return 0, fmt.Errorf("parse position: %w", err)
	}
	return v, nil
}

// Text reads a plain string payload (videoId, socketId, reaction).
func (e *Envelope) Text() (string, error) {
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", fmt.Errorf("parse %s payload: %w", e.Action, err)
	}
	return s, nil
}

func (e *Envelope) Bool() (bool, error) {
	var b bool
	if err := json.Unmarshal(e.Data, &b); err != nil {
		return false, fmt.Errorf("parse %s payload: %w", e.Action, err)
	}
	return b, nil
}

func (e *Envelope) Video() (domain.Video, error) {
	var v domain.Video
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return domain.Video{}, fmt.Errorf("parse video payload: %w", err)
	}
	return v, nil
}

func (e *Envelope) Client() (domain.Client, error) {
	var c domain.Client
	if err := json.Unmarshal(e.Data, &c); err != nil {
		return domain.Client{}, fmt.Errorf("parse client payload: %w", err)
	}
	return c, nil
}

func (e *Envelope) Clients() ([]domain.Client, error) {
	var cs []domain.Client
	if err := json.Unmarshal(e.Data, &cs); err != nil {
		return nil, fmt.Errorf("parse roster payload: %w", err)
	}
	return cs, nil
}

func (e *Envelope) Queue() (QueueSnapshot, error) {
	var q QueueSnapshot
	if err := json.Unmarshal(e.Data, &q); err != nil {
		return QueueSnapshot{}, fmt.Errorf("parse queue payload: %w", err)
	}
	return q, nil
}
