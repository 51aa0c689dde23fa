// Package player abstracts the external playback engine and the host page
// the session mounts into. Both are collaborators owned outside this module;
// the session only drives them through these interfaces.
package player

import "github.com/DrRago/YTSync-Plugin/internal/domain"

// Player is the playback engine contract.
type Player interface {
	CurrentTime() float64
	State() domain.PlayerState
	Play()
	Pause()
	// SeekTo jumps to the given position. allowSeekAhead lets the engine
	// request not-yet-buffered ranges.
	SeekTo(seconds float64, allowSeekAhead bool)
	LoadVideo(videoID string)
}

// Page is the host-page contract: what is being watched right now, and
// in-page navigation to another video without a full reload.
type Page interface {
	CurrentVideo() (domain.Video, bool)
	Navigate(videoID string)
}
