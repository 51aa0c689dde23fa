// Package domain contains entity without logic, just meta-data
package domain

// Video is one entry of a shared watch queue. Identity is VideoID, but
// uniqueness inside a queue is not enforced: the same video may occupy
// several independent slots.
type Video struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	Byline  string `json:"byline"`
}
