package enums

import "fmt"

// ProjectStatus tracks the lifecycle of a video generation project.
type ProjectStatus string

const (
	ProjectStatusProcessing         ProjectStatus = "processing"
	ProjectStatusSegmentFramesReady ProjectStatus = "segment_frames_ready"
	ProjectStatusAwaitingMerge      ProjectStatus = "awaiting_merge"
	ProjectStatusMergingSegments    ProjectStatus = "merging_segments"
	ProjectStatusCompleted          ProjectStatus = "completed"
	ProjectStatusFailed             ProjectStatus = "failed"
)

var validProjectStatuses = []ProjectStatus{
	ProjectStatusProcessing,
	ProjectStatusSegmentFramesReady,
	ProjectStatusAwaitingMerge,
	ProjectStatusMergingSegments,
	ProjectStatusCompleted,
	ProjectStatusFailed,
}

// String implements fmt.Stringer.
func (p ProjectStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProjectStatus.
func (p ProjectStatus) IsValid() bool {
	for _, candidate := range validProjectStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transitions occur.
func (p ProjectStatus) IsTerminal() bool {
	return p == ProjectStatusCompleted || p == ProjectStatusFailed
}

// ParseProjectStatus converts raw input into a ProjectStatus.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for _, candidate := range validProjectStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", value)
}
