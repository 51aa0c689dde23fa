package protocol

import (
	"errors"
	"testing"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
)

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestDecodeUnknownAction(t *testing.T) {
	_, err := Decode([]byte(`{"action":"EXPLODE","data":"1"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDecodeFutureVersion(t *testing.T) {
	_, err := Decode([]byte(`{"v":99,"action":"PLAY","data":"1"}`))
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("expected ErrVersion, got %v", err)
	}
}

func TestDecodeMissingVersionReadAsOne(t *testing.T) {
	env, err := Decode([]byte(`{"action":"PLAY","data":"12.5"}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.V != 1 {
		t.Fatalf("want version 1, got %d", env.V)
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    float64
		wantErr bool
	}{
		{"stringified", `{"action":"PLAY","data":"73.25"}`, 73.25, false},
		{"bare number", `{"action":"SEEK","data":73.25}`, 73.25, false},
		{"zero", `{"action":"PAUSE","data":"0"}`, 0, false},
		{"garbage", `{"action":"PLAY","data":"abc"}`, 0, true},
		{"object", `{"action":"PLAY","data":{}}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatal(err)
			}
			got, err := env.Position()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEncodePositionRoundTrip(t *testing.T) {
	frame, err := EncodePosition(KindSeek, 12.75)
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if env.Action != KindSeek {
		t.Fatalf("want SEEK, got %s", env.Action)
	}
	if env.V != Version {
		t.Fatalf("want version %d, got %d", Version, env.V)
	}
	pos, err := env.Position()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 12.75 {
		t.Fatalf("want 12.75, got %v", pos)
	}
}

func TestQueueSnapshotPayload(t *testing.T) {
	frame, err := Encode(KindQueue, QueueSnapshot{
		Video: &domain.Video{VideoID: "b"},
		Videos: []domain.Video{
			{VideoID: "a", Title: "first"},
			{VideoID: "b", Title: "second"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := env.Queue()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Video == nil || snap.Video.VideoID != "b" {
		t.Fatalf("selected not preserved: %+v", snap.Video)
	}
	if len(snap.Videos) != 2 {
		t.Fatalf("want 2 videos, got %d", len(snap.Videos))
	}
}

func TestQueueSnapshotNullSelected(t *testing.T) {
	env, err := Decode([]byte(`{"action":"QUEUE","data":{"video":null,"videos":[]}}`))
	if err != nil {
		t.Fatal(err)
	}
	snap, err := env.Queue()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Video != nil {
		t.Fatalf("want nil selected, got %+v", snap.Video)
	}
}
