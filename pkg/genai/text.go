package genai

import (
	"context"
	"fmt"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// TextClient talks to the creative text service that turns a competitor shot
// timeline into branded segment prompts.
type TextClient struct {
	http *httpClient
}

// NewTextClient builds a text service client. Pass a nil doer to use a
// default HTTP client with the configured text timeout.
func NewTextClient(cfg config.GenAIConfig, doer Doer) (*TextClient, error) {
	hc, err := newHTTPClient("genai-text", cfg.TextBaseURL, cfg.TextAPIKey, cfg.TextTimeout, doer)
	if err != nil {
		return nil, err
	}
	return &TextClient{http: hc}, nil
}

// StoryboardRequest carries everything the text service needs to write
// segment prompts.
type StoryboardRequest struct {
	CompetitorShots        types.CompetitorShots `json:"competitor_shots"`
	BrandName              string                `json:"brand_name,omitempty"`
	BrandTone              string                `json:"brand_tone,omitempty"`
	ProductName            string                `json:"product_name,omitempty"`
	ProductDescription     string                `json:"product_description,omitempty"`
	SegmentCount           int                   `json:"segment_count"`
	SegmentDurationSeconds int                   `json:"segment_duration_seconds"`
	Language               string                `json:"language"`
	AspectRatio            string                `json:"aspect_ratio"`
}

type storyboardResponse struct {
	Segments []types.SegmentPrompt `json:"segments"`
}

// GenerateStoryboard requests a full set of segment prompts. Structural
// validation of the result belongs to the caller.
func (c *TextClient) GenerateStoryboard(ctx context.Context, req StoryboardRequest) ([]types.SegmentPrompt, error) {
	if req.SegmentCount <= 0 {
		return nil, fmt.Errorf("segment count must be positive")
	}

	var resp storyboardResponse
	if err := c.http.postJSON(ctx, "/v1/storyboards", req, &resp); err != nil {
		return nil, err
	}
	return resp.Segments, nil
}
