package types

import "time"

// SegmentSnapshotEntry is the denormalized per-segment view persisted on the
// project for cheap progress reads.
type SegmentSnapshotEntry struct {
	Index         int    `json:"index"`
	Status        string `json:"status"`
	FirstFrameURL string `json:"first_frame_url,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	Approved      bool   `json:"approved"`
	RetryCount    int    `json:"retry_count"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// SegmentStatusSnapshot summarizes all segments of a project.
type SegmentStatusSnapshot struct {
	Total       int                    `json:"total"`
	FramesReady int                    `json:"frames_ready"`
	VideosReady int                    `json:"videos_ready"`
	Failed      int                    `json:"failed"`
	Segments    []SegmentSnapshotEntry `json:"segments"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
