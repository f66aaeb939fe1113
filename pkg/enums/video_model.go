package enums

import "fmt"

// VideoModel selects which external video generation model renders segments.
type VideoModel string

const (
	VideoModelKling VideoModel = "kling"
	VideoModelVidu  VideoModel = "vidu"
)

var validVideoModels = []VideoModel{
	VideoModelKling,
	VideoModelVidu,
}

// String implements fmt.Stringer.
func (v VideoModel) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VideoModel.
func (v VideoModel) IsValid() bool {
	for _, candidate := range validVideoModels {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVideoModel converts raw input into a VideoModel.
func ParseVideoModel(value string) (VideoModel, error) {
	for _, candidate := range validVideoModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video model %q", value)
}
