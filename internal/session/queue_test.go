package session

import (
	"reflect"
	"testing"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

func vids(ids ...string) []domain.Video {
	out := make([]domain.Video, len(ids))
	for i, id := range ids {
		out[i] = domain.Video{VideoID: id}
	}
	return out
}

func TestQueueSnapshotIdempotent(t *testing.T) {
	q := NewQueue(&fakeSender{})
	snap := protocol.QueueSnapshot{
		Video:  &domain.Video{VideoID: "b"},
		Videos: vids("a", "b", "c"),
	}
	q.ApplySnapshot(snap)
	first := q.Videos()
	sel1, _ := q.Selected()

	q.ApplySnapshot(snap)
	if !reflect.DeepEqual(first, q.Videos()) {
		t.Fatal("second snapshot changed the queue")
	}
	sel2, _ := q.Selected()
	if sel1 != sel2 {
		t.Fatal("second snapshot changed the selection")
	}
}

func TestQueueSnapshotWinsOverDeltas(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplyAdd(domain.Video{VideoID: "x"})
	q.ApplyAdd(domain.Video{VideoID: "y"})
	q.ApplyRemove("x")

	snap := protocol.QueueSnapshot{Videos: vids("a", "b")}
	q.ApplySnapshot(snap)
	if !reflect.DeepEqual(q.Videos(), vids("a", "b")) {
		t.Fatalf("snapshot did not replace delta history: %v", q.Videos())
	}
}

func TestQueueSnapshotSelectedNotInList(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplySnapshot(protocol.QueueSnapshot{
		Video:  &domain.Video{VideoID: "ghost"},
		Videos: vids("a"),
	})
	if _, ok := q.Selected(); ok {
		t.Fatal("selected should be unset when the id is not a slot")
	}
}

func TestQueueSnapshotEmpty(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplyAdd(domain.Video{VideoID: "a"})
	q.ApplySnapshot(protocol.QueueSnapshot{})
	if q.Len() != 0 {
		t.Fatalf("want empty queue, got %d", q.Len())
	}
}

func TestQueueAddKeepsDuplicates(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplyAdd(domain.Video{VideoID: "a"})
	q.ApplyAdd(domain.Video{VideoID: "a"})
	if q.Len() != 2 {
		t.Fatalf("duplicates must occupy independent slots, got %d", q.Len())
	}
}

func TestQueueRemoveFirstMatchOnly(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplySnapshot(protocol.QueueSnapshot{Videos: vids("a", "b", "a")})
	q.ApplyRemove("a")
	if !reflect.DeepEqual(q.Videos(), vids("b", "a")) {
		t.Fatalf("want first match removed, got %v", q.Videos())
	}
}

func TestQueueRemoveMissingIsNoop(t *testing.T) {
	q := NewQueue(&fakeSender{})
	q.ApplySnapshot(protocol.QueueSnapshot{Videos: vids("a")})
	q.ApplyRemove("zzz")
	if q.Len() != 1 {
		t.Fatalf("remove of missing id mutated the queue: %v", q.Videos())
	}
}

func TestQueueAdvance(t *testing.T) {
	tests := []struct {
		name     string
		videos   []string
		selected string
		wantID   string
		wantOK   bool
	}{
		{"middle slot", []string{"a", "b", "c"}, "b", "c", true},
		{"last slot", []string{"a", "b", "c"}, "c", "", false},
		{"empty queue", nil, "a", "", false},
		{"selected missing", []string{"a", "b"}, "zzz", "", false},
		{"nothing selected", []string{"a", "b"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(&fakeSender{})
			q.ApplySnapshot(protocol.QueueSnapshot{Videos: vids(tt.videos...)})
			if tt.selected != "" {
				q.Select(tt.selected)
			}
			next, ok := q.Advance()
			if ok != tt.wantOK {
				t.Fatalf("want ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && next.VideoID != tt.wantID {
				t.Fatalf("want next=%s, got %s", tt.wantID, next.VideoID)
			}
		})
	}
}

func TestQueueRequestsDoNotMutateLocally(t *testing.T) {
	send := &fakeSender{}
	q := NewQueue(send)
	q.RequestAdd(domain.Video{VideoID: "a"})
	q.RequestRemove("a")
	if q.Len() != 0 {
		t.Fatal("request path must never mutate the replica")
	}
	want := []protocol.Kind{protocol.KindAddToQueue, protocol.KindRemoveFromQueue}
	if !reflect.DeepEqual(send.actions(t), want) {
		t.Fatalf("want %v, got %v", want, send.actions(t))
	}
}
