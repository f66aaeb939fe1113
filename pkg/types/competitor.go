package types

// CompetitorShot is one shot of an analyzed competitor advertisement
// timeline. Times are absolute offsets into the source ad.
type CompetitorShot struct {
	Index           int     `json:"index"`
	StartSeconds    float64 `json:"start_seconds"`
	EndSeconds      float64 `json:"end_seconds"`
	Description     string  `json:"description"`
	Subject         string  `json:"subject,omitempty"`
	Action          string  `json:"action,omitempty"`
	Style           string  `json:"style,omitempty"`
	Composition     string  `json:"composition,omitempty"`
	Lighting        string  `json:"lighting,omitempty"`
	CameraMotion    string  `json:"camera_motion,omitempty"`
	Dialogue        string  `json:"dialogue,omitempty"`
	Audio           string  `json:"audio,omitempty"`
	ContainsBrand   bool    `json:"contains_brand"`
	ContainsProduct bool    `json:"contains_product"`
}

// CompetitorShots is the ordered timeline persisted on a competitor ad row.
type CompetitorShots []CompetitorShot
