package enums

// ProjectStep is the finer-grained phase label surfaced for UI and telemetry.
type ProjectStep string

const (
	ProjectStepPending                 ProjectStep = "pending"
	ProjectStepGeneratingSegmentFrames ProjectStep = "generating_segment_frames"
	ProjectStepReviewingSegmentFrames  ProjectStep = "reviewing_segment_frames"
	ProjectStepGeneratingSegmentVideos ProjectStep = "generating_segment_videos"
	ProjectStepGeneratingVideo         ProjectStep = "generating_video"
	ProjectStepAwaitingMerge           ProjectStep = "awaiting_merge"
	ProjectStepMergingSegments         ProjectStep = "merging_segments"
	ProjectStepCompleted               ProjectStep = "completed"
	ProjectStepFailed                  ProjectStep = "failed"
)

var validProjectSteps = []ProjectStep{
	ProjectStepPending,
	ProjectStepGeneratingSegmentFrames,
	ProjectStepReviewingSegmentFrames,
	ProjectStepGeneratingSegmentVideos,
	ProjectStepGeneratingVideo,
	ProjectStepAwaitingMerge,
	ProjectStepMergingSegments,
	ProjectStepCompleted,
	ProjectStepFailed,
}

// String implements fmt.Stringer.
func (p ProjectStep) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProjectStep.
func (p ProjectStep) IsValid() bool {
	for _, candidate := range validProjectSteps {
		if candidate == p {
			return true
		}
	}
	return false
}
