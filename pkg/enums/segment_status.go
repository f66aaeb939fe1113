package enums

import "fmt"

// SegmentStatus tracks the lifecycle of a single video segment.
type SegmentStatus string

const (
	SegmentStatusPendingFirstFrame      SegmentStatus = "pending_first_frame"
	SegmentStatusAwaitingPrevFirstFrame SegmentStatus = "awaiting_prev_first_frame"
	SegmentStatusGeneratingFirstFrame   SegmentStatus = "generating_first_frame"
	SegmentStatusFirstFrameReady        SegmentStatus = "first_frame_ready"
	SegmentStatusGeneratingVideo        SegmentStatus = "generating_video"
	SegmentStatusVideoReady             SegmentStatus = "video_ready"
	SegmentStatusFailed                 SegmentStatus = "failed"
)

var validSegmentStatuses = []SegmentStatus{
	SegmentStatusPendingFirstFrame,
	SegmentStatusAwaitingPrevFirstFrame,
	SegmentStatusGeneratingFirstFrame,
	SegmentStatusFirstFrameReady,
	SegmentStatusGeneratingVideo,
	SegmentStatusVideoReady,
	SegmentStatusFailed,
}

// String implements fmt.Stringer.
func (s SegmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SegmentStatus.
func (s SegmentStatus) IsValid() bool {
	for _, candidate := range validSegmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the segment needs no further driving.
func (s SegmentStatus) IsTerminal() bool {
	return s == SegmentStatusVideoReady || s == SegmentStatusFailed
}

// HasFirstFrame reports whether the opening keyframe has been produced.
func (s SegmentStatus) HasFirstFrame() bool {
	switch s {
	case SegmentStatusFirstFrameReady, SegmentStatusGeneratingVideo, SegmentStatusVideoReady:
		return true
	}
	return false
}

// ParseSegmentStatus converts raw input into a SegmentStatus.
func ParseSegmentStatus(value string) (SegmentStatus, error) {
	for _, candidate := range validSegmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid segment status %q", value)
}
