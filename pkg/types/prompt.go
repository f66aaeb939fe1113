package types

// Shot is one sub-beat inside a segment's creative script. Time ranges are
// relative to the segment start and never cross the segment boundary.
type Shot struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Subject      string  `json:"subject,omitempty"`
	Action       string  `json:"action,omitempty"`
	Style        string  `json:"style,omitempty"`
	Composition  string  `json:"composition,omitempty"`
	Lighting     string  `json:"lighting,omitempty"`
	CameraMotion string  `json:"camera_motion,omitempty"`
	Dialogue     string  `json:"dialogue,omitempty"`
	Audio        string  `json:"audio,omitempty"`
	Language     string  `json:"language,omitempty"`
}

// SegmentPrompt is the creative content unit for one segment of the final
// video: the keyframe description plus the ordered shot sub-beats.
type SegmentPrompt struct {
	Index                  int     `json:"index"`
	FirstFrameDescription  string  `json:"first_frame_description"`
	IsContinuationFromPrev bool    `json:"is_continuation_from_prev"`
	ContainsBrand          bool    `json:"contains_brand"`
	ContainsProduct        bool    `json:"contains_product"`
	DurationSeconds        float64 `json:"duration_seconds"`
	Shots                  []Shot  `json:"shots,omitempty"`
}
