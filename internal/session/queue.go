package session

import (
	"github.com/rs/zerolog/log"

	"github.com/DrRago/YTSync-Plugin/internal/domain"
	"github.com/DrRago/YTSync-Plugin/internal/protocol"
)

// Queue is the local replica of the session's pending-video list plus the
// currently selected entry. The coordinator owns the authoritative copy;
// local mutation happens only from confirmed broadcasts, never from the
// request path.
type Queue struct {
	videos   []domain.Video
	selected string // videoId, empty when nothing is selected
	send     Sender
}

func NewQueue(send Sender) *Queue {
	return &Queue{send: send}
}

// ApplySnapshot replaces the whole queue. It always succeeds: an empty list
// is fine, and a selected entry absent from the list leaves nothing marked
// selected.
func (q *Queue) ApplySnapshot(snap protocol.QueueSnapshot) {
	q.videos = make([]domain.Video, len(snap.Videos))
	copy(q.videos, snap.Videos)
	q.selected = ""
	if snap.Video != nil {
		if _, ok := q.indexOf(snap.Video.VideoID); ok {
			q.selected = snap.Video.VideoID
		}
	}
	log.Debug().Str("module", "session.queue").Int("count", len(q.videos)).Str("selected", q.selected).Msg("applied queue snapshot")
}

// ApplyAdd appends a confirmed entry. No deduplication: a video may occupy
// several slots.
func (q *Queue) ApplyAdd(v domain.Video) {
	q.videos = append(q.videos, v)
	log.Info().Str("module", "session.queue").Str("video", v.VideoID).Msg("queued")
}

// ApplyRemove drops the first slot whose videoId matches. Removing exactly
// one slot is a policy choice for duplicate entries; removing a missing id
// is a no-op.
func (q *Queue) ApplyRemove(videoID string) {
	i, ok := q.indexOf(videoID)
	if !ok {
		return
	}
	q.videos = append(q.videos[:i], q.videos[i+1:]...)
	log.Info().Str("module", "session.queue").Str("video", videoID).Msg("removed from queue")
}

// Select marks the given id as the playing entry. Ids outside the queue are
// accepted: the session can navigate to videos that were never queued.
func (q *Queue) Select(videoID string) {
	q.selected = videoID
}

// SelectedID returns the playing entry's videoId, or "" when nothing is
// selected. Unlike Selected it does not require the id to be a queue slot.
func (q *Queue) SelectedID() string {
	return q.selected
}

// Selected returns the playing entry, if it is a queue slot.
func (q *Queue) Selected() (domain.Video, bool) {
	if q.selected == "" {
		return domain.Video{}, false
	}
	if i, ok := q.indexOf(q.selected); ok {
		return q.videos[i], true
	}
	return domain.Video{}, false
}

// Advance returns the slot after the selected one. No slot follows when the
// selected entry is last, missing, or the queue is empty; Advance never
// mutates state, the caller decides whether to navigate.
func (q *Queue) Advance() (domain.Video, bool) {
	if q.selected == "" {
		return domain.Video{}, false
	}
	i, ok := q.indexOf(q.selected)
	if !ok || i+1 >= len(q.videos) {
		return domain.Video{}, false
	}
	return q.videos[i+1], true
}

// Videos returns a copy of the pending list for UI rendering.
func (q *Queue) Videos() []domain.Video {
	out := make([]domain.Video, len(q.videos))
	copy(out, q.videos)
	return out
}

func (q *Queue) Len() int { return len(q.videos) }

// RequestAdd asks the coordinator to append a video. The replica mutates
// only when the confirming ADD_TO_QUEUE broadcast arrives, so a rejected
// request never shows a phantom entry.
func (q *Queue) RequestAdd(v domain.Video) {
	frame, err := protocol.Encode(protocol.KindAddToQueue, v)
	if err != nil {
		log.Error().Err(err).Str("module", "session.queue").Msg("encode add request")
		return
	}
	if err := q.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.queue").Msg("add request dropped")
	}
}

func (q *Queue) RequestRemove(videoID string) {
	frame, err := protocol.Encode(protocol.KindRemoveFromQueue, videoID)
	if err != nil {
		log.Error().Err(err).Str("module", "session.queue").Msg("encode remove request")
		return
	}
	if err := q.send.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "session.queue").Msg("remove request dropped")
	}
}

func (q *Queue) indexOf(videoID string) (int, bool) {
	for i, v := range q.videos {
		if v.VideoID == videoID {
			return i, true
		}
	}
	return 0, false
}
