package enums

// FrameType identifies which keyframe of a segment a job renders.
type FrameType string

const (
	FrameTypeFirst   FrameType = "first"
	FrameTypeClosing FrameType = "closing"
)

// String implements fmt.Stringer.
func (f FrameType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FrameType.
func (f FrameType) IsValid() bool {
	return f == FrameTypeFirst || f == FrameTypeClosing
}
