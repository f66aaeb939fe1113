package segments

import (
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
)

// MaxVideoRetries caps automatic clip resubmissions per segment.
const MaxVideoRetries = 3

// Pure transition helpers. Every mutation of a segment's lifecycle fields
// goes through here so the rules stay in one place and stay testable without
// a database.

// ApplyFrameSubmitted records a new first-frame job.
func ApplyFrameSubmitted(seg *models.VideoSegment, handle string) {
	seg.Status = enums.SegmentStatusGeneratingFirstFrame
	seg.FirstFrameTaskHandle = &handle
	seg.ErrorMessage = nil
}

// ApplyAwaitingPredecessor parks a continuation segment until the previous
// segment's opening frame is known.
func ApplyAwaitingPredecessor(seg *models.VideoSegment) {
	seg.Status = enums.SegmentStatusAwaitingPrevFirstFrame
}

// ApplyFirstFrameReady records a finished opening frame. The approval gate is
// reset on every new frame: a human must re-approve before video generation.
func ApplyFirstFrameReady(seg *models.VideoSegment, url string) {
	seg.Status = enums.SegmentStatusFirstFrameReady
	seg.FirstFrameURL = &url
	seg.VideoGenerationApproved = false
	seg.ErrorMessage = nil
}

// ApplyFrameFailure terminally fails a segment on a first-frame job failure.
// First-frame failures are not auto-retried.
func ApplyFrameFailure(seg *models.VideoSegment, message string) {
	seg.Status = enums.SegmentStatusFailed
	seg.ErrorMessage = &message
}

// ApplyVideoSubmitted records a new clip job. Once a retry is underway the
// "retrying" message from the last failure stays on the row; it only clears
// on a fresh first submission or on success.
func ApplyVideoSubmitted(seg *models.VideoSegment, handle string) {
	seg.Status = enums.SegmentStatusGeneratingVideo
	seg.VideoTaskHandle = &handle
	if seg.RetryCount == 0 {
		seg.ErrorMessage = nil
	}
}

// ApplyVideoSuccess records a finished clip.
func ApplyVideoSuccess(seg *models.VideoSegment, url string) {
	seg.Status = enums.SegmentStatusVideoReady
	seg.VideoURL = &url
	seg.ErrorMessage = nil
}

// ApplyVideoFailure applies the retry rules for a terminal clip failure and
// reports whether the caller should resubmit. Retryable failures self-loop
// until the cap; non-retryable failures are terminal and leave the retry
// count untouched.
func ApplyVideoFailure(seg *models.VideoSegment, sanitizedMessage string, retryable bool) (resubmit bool) {
	if retryable && seg.RetryCount < MaxVideoRetries {
		seg.RetryCount++
		seg.VideoTaskHandle = nil
		seg.Status = enums.SegmentStatusGeneratingVideo
		retrying := "retrying: " + sanitizedMessage
		seg.ErrorMessage = &retrying
		return true
	}
	seg.Status = enums.SegmentStatusFailed
	seg.ErrorMessage = &sanitizedMessage
	return false
}

// MirrorClosingFrame copies the successor's opening frame URL onto the
// predecessor's closing frame. Returns false when the value is already in
// place so callers can skip the write.
func MirrorClosingFrame(prev *models.VideoSegment, url string) (changed bool) {
	if url == "" {
		return false
	}
	if prev.ClosingFrameURL != nil && *prev.ClosingFrameURL == url {
		return false
	}
	prev.ClosingFrameURL = &url
	return true
}

// NeedsContinuationWait reports whether a pending segment must wait for its
// predecessor's opening frame.
func NeedsContinuationWait(seg *models.VideoSegment, prevOpeningFrameURL string) bool {
	return seg.Prompt.IsContinuationFromPrev && prevOpeningFrameURL == ""
}

// ReadyForVideo reports whether a segment may have its clip job submitted.
func ReadyForVideo(seg *models.VideoSegment) bool {
	return seg.Status == enums.SegmentStatusFirstFrameReady &&
		seg.VideoGenerationApproved &&
		seg.FirstFrameURL != nil &&
		seg.VideoTaskHandle == nil
}
