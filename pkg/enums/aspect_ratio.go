package enums

import "fmt"

// AspectRatio is the output frame shape for rendered keyframes and videos.
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
	AspectRatioSquare    AspectRatio = "1:1"
)

var validAspectRatios = []AspectRatio{
	AspectRatioLandscape,
	AspectRatioPortrait,
	AspectRatioSquare,
}

// String implements fmt.Stringer.
func (a AspectRatio) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AspectRatio.
func (a AspectRatio) IsValid() bool {
	for _, candidate := range validAspectRatios {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAspectRatio converts raw input into an AspectRatio.
func ParseAspectRatio(value string) (AspectRatio, error) {
	for _, candidate := range validAspectRatios {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aspect ratio %q", value)
}
