package segments

import (
	"math"
	"time"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// Progress bands: frame completion fills [25,70], video completion fills
// [70,95]. Admission owns [0,25); merge completion owns (95,100].
const (
	progressFramesFloor = 25
	progressFramesSpan  = 45
	progressVideosFloor = 70
	progressVideosSpan  = 25
)

// ComputeProgress maps segment completion onto the 0-100 project progress.
func ComputeProgress(framesReady, videosReady, total int) int {
	if total <= 0 {
		return progressFramesFloor
	}
	if framesReady < total {
		fraction := float64(framesReady) / float64(total)
		return progressFramesFloor + int(math.Round(progressFramesSpan*fraction))
	}
	fraction := float64(videosReady) / float64(total)
	return progressVideosFloor + int(math.Round(progressVideosSpan*fraction))
}

// HasFrame reports whether the segment's opening frame exists (its own
// lifecycle may have moved past first_frame_ready).
func HasFrame(seg models.VideoSegment) bool {
	return seg.FirstFrameURL != nil && *seg.FirstFrameURL != ""
}

// BuildSnapshot summarizes all segments into the denormalized project
// read-model.
func BuildSnapshot(segs []models.VideoSegment, now time.Time) types.SegmentStatusSnapshot {
	snapshot := types.SegmentStatusSnapshot{
		Total:     len(segs),
		Segments:  make([]types.SegmentSnapshotEntry, 0, len(segs)),
		UpdatedAt: now,
	}
	for _, seg := range segs {
		entry := types.SegmentSnapshotEntry{
			Index:      seg.Index,
			Status:     string(seg.Status),
			Approved:   seg.VideoGenerationApproved,
			RetryCount: seg.RetryCount,
		}
		if seg.FirstFrameURL != nil {
			entry.FirstFrameURL = *seg.FirstFrameURL
		}
		if seg.VideoURL != nil {
			entry.VideoURL = *seg.VideoURL
		}
		if seg.ErrorMessage != nil {
			entry.ErrorMessage = *seg.ErrorMessage
		}
		snapshot.Segments = append(snapshot.Segments, entry)

		if HasFrame(seg) {
			snapshot.FramesReady++
		}
		switch seg.Status {
		case enums.SegmentStatusVideoReady:
			snapshot.VideosReady++
		case enums.SegmentStatusFailed:
			snapshot.Failed++
		}
	}
	return snapshot
}
