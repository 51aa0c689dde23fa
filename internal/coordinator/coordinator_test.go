package coordinator

import (
	"testing"
	"time"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

type fakeConn struct {
	frames [][]byte
}

func (c *fakeConn) TrySend(frame []byte) error {
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) actions(t *testing.T) []protocol.Kind {
	t.Helper()
	out := make([]protocol.Kind, 0, len(c.frames))
	for _, f := range c.frames {
		env, err := protocol.Decode(f)
		if err != nil {
			t.Fatalf("broadcast frame does not decode: %v", err)
		}
		out = append(out, env.Action)
	}
	return out
}

func (c *fakeConn) has(t *testing.T, kind protocol.Kind) bool {
	t.Helper()
	for _, a := range c.actions(t) {
		if a == kind {
			return true
		}
	}
	return false
}

func newTestWatch(t *testing.T) (*Controller, *Watch, *fakeConn, *fakeConn) {
	t.Helper()
	ctl := &Controller{
		Watches:  NewManager(),
		Registry: NewRegistry(),
	}
	w := ctl.Watches.GetOrCreate("tok")
	first := &fakeConn{}
	second := &fakeConn{}
	w.AddMember("one", "first", first)
	w.AddMember("two", "second", second)
	return ctl, w, first, second
}

func reqFrame(t *testing.T, kind protocol.Kind, payload any) []byte {
	t.Helper()
	b, err := protocol.Encode(kind, payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFirstMemberIsPromoted(t *testing.T) {
	_, w, _, _ := newTestWatch(t)
	if !w.Promoted("one") {
		t.Fatal("first member must be promoted")
	}
	if w.Promoted("two") {
		t.Fatal("later members join unprivileged")
	}
	if w.Promoted("ghost") {
		t.Fatal("unknown socketIds are never privileged")
	}
}

func TestUnauthorizedRequestIsDroppedSilently(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "two", reqFrame(t, protocol.KindAddToQueue, domain.Video{VideoID: "a"}))

	if len(w.QueueSnapshot().Videos) != 0 {
		t.Fatal("unauthorized add mutated the queue")
	}
	if len(first.frames) != 0 || len(second.frames) != 0 {
		t.Fatal("unauthorized request produced a broadcast")
	}
}

func TestConfirmedAddReachesRequesterToo(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindAddToQueue, domain.Video{VideoID: "a"}))

	if len(w.QueueSnapshot().Videos) != 1 {
		t.Fatal("authorized add not applied")
	}
	// Clients mutate only on confirmation, so the requester must get the
	// broadcast as well.
	if !first.has(t, protocol.KindAddToQueue) {
		t.Fatalf("requester missing confirmation: %v", first.actions(t))
	}
	if !second.has(t, protocol.KindAddToQueue) {
		t.Fatalf("peer missing broadcast: %v", second.actions(t))
	}
}

func TestPlaybackRelaySkipsSender(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindPlay, "12.5"))

	if first.has(t, protocol.KindPlay) {
		t.Fatal("playback transition echoed back to its origin")
	}
	if !second.has(t, protocol.KindPlay) {
		t.Fatalf("peer missing play relay: %v", second.actions(t))
	}
}

func TestAutoplayConfirmationReachesRequester(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindAutoplay, true))

	if !w.Autoplay() {
		t.Fatal("authorized autoplay change not applied")
	}
	// The requester's replica flips only on confirmation, so skipping it
	// would leave its flag stale.
	if !first.has(t, protocol.KindAutoplay) {
		t.Fatalf("requester missing autoplay confirmation: %v", first.actions(t))
	}
	if !second.has(t, protocol.KindAutoplay) {
		t.Fatalf("peer missing autoplay broadcast: %v", second.actions(t))
	}
}

func TestPromoteBroadcastsRosterSnapshot(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindPromote, "two"))

	if !w.Promoted("two") {
		t.Fatal("promotion not applied")
	}
	if !second.has(t, protocol.KindClients) {
		t.Fatalf("no roster snapshot after promote: %v", second.actions(t))
	}
	if !first.has(t, protocol.KindClients) {
		t.Fatalf("promoter missing roster snapshot: %v", first.actions(t))
	}

	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindUnpromote, "two"))
	if w.Promoted("two") {
		t.Fatal("unpromote not applied")
	}
}

func TestPromoteUnknownTargetIsNoop(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	ctl.handleFrame(w, "one", reqFrame(t, protocol.KindPromote, "ghost"))
	if len(first.frames) != 0 || len(second.frames) != 0 {
		t.Fatal("promote of unknown target produced a broadcast")
	}
}

func TestRemoveVideoFirstMatchOnly(t *testing.T) {
	_, w, _, _ := newTestWatch(t)
	w.AddVideo(domain.Video{VideoID: "a"})
	w.AddVideo(domain.Video{VideoID: "b"})
	w.AddVideo(domain.Video{VideoID: "a"})
	w.RemoveVideo("a")

	got := w.QueueSnapshot().Videos
	if len(got) != 2 || got[0].VideoID != "b" || got[1].VideoID != "a" {
		t.Fatalf("want [b a], got %v", got)
	}
}

func TestReactionNeedsNoPromotion(t *testing.T) {
	ctl, w, first, second := newTestWatch(t)
	// "two" is unprivileged; reactions go through anyway.
	ctl.handleFrame(w, "two", reqFrame(t, protocol.KindReaction, "clap"))
	if !first.has(t, protocol.KindReaction) {
		t.Fatalf("reaction not relayed: %v", first.actions(t))
	}
	if second.has(t, protocol.KindReaction) {
		t.Fatal("reaction echoed back to its sender")
	}
}

func TestReactionRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two reactions must pass")
	}
	if rl.Allow("a") {
		t.Fatal("third reaction inside the window must be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("windows are per client")
	}
	rl.Forget("a")
	if !rl.Allow("a") {
		t.Fatal("forgotten client starts a fresh window")
	}
}

func TestManagerReapsEmptyWatch(t *testing.T) {
	m := NewManager()
	w := m.GetOrCreate("tok")
	c := &fakeConn{}
	w.AddMember("one", "", c)
	m.Reap("tok")
	if m.Count() != 1 {
		t.Fatal("watch with members was reaped")
	}
	w.RemoveMember("one")
	m.Reap("tok")
	if m.Count() != 0 {
		t.Fatal("empty watch not reaped")
	}
}
