package session

import (
	"testing"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// fakeSender records every outbound frame.
type fakeSender struct {
	frames [][]byte
}

func (s *fakeSender) TrySend(frame []byte) error {
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSender) actions(t *testing.T) []protocol.Kind {
	t.Helper()
	out := make([]protocol.Kind, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := protocol.Decode(f)
		if err != nil {
			t.Fatalf("recorded frame does not decode: %v", err)
		}
		out = append(out, env.Action)
	}
	return out
}

func (s *fakeSender) has(t *testing.T, kind protocol.Kind) bool {
	t.Helper()
	for _, a := range s.actions(t) {
		if a == kind {
			return true
		}
	}
	return false
}

// fakePlayer records every command issued to the engine.
type fakePlayer struct {
	pos   float64
	state domain.PlayerState

	seeks  []float64
	plays  int
	pauses int
	loaded []string
}

func (p *fakePlayer) CurrentTime() float64      { return p.pos }
func (p *fakePlayer) State() domain.PlayerState { return p.state }
func (p *fakePlayer) Play()                     { p.plays++; p.state = domain.StatePlaying }
func (p *fakePlayer) Pause()                    { p.pauses++; p.state = domain.StatePaused }
func (p *fakePlayer) SeekTo(s float64, _ bool)  { p.seeks = append(p.seeks, s); p.pos = s }
func (p *fakePlayer) LoadVideo(videoID string)  { p.loaded = append(p.loaded, videoID); p.pos = 0 }

// fakePage records in-page navigations.
type fakePage struct {
	current domain.Video
	navs    []string
}

func (p *fakePage) CurrentVideo() (domain.Video, bool) {
	return p.current, p.current.VideoID != ""
}

func (p *fakePage) Navigate(videoID string) {
	p.navs = append(p.navs, videoID)
	p.current = domain.Video{VideoID: videoID}
}

func newTestSession(t *testing.T) (*Session, *fakeSender, *fakePlayer, *fakePage) {
	t.Helper()
	send := &fakeSender{}
	pl := &fakePlayer{state: domain.StateUnstarted}
	pg := &fakePage{}
	s := New(Options{
		Token:  "tok",
		SelfID: "self",
		Player: pl,
		Page:   pg,
		Sender: send,
	})
	return s, send, pl, pg
}

func frame(t *testing.T, kind protocol.Kind, payload any) []byte {
	t.Helper()
	b, err := protocol.Encode(kind, payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
