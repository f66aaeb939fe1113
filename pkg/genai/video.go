package genai

import (
	"context"
	"fmt"
	"net/url"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
)

// VideoClient talks to the clip generation service. Each supported model has
// its own request shape upstream, so submission translates the neutral
// request into the model-specific payload.
type VideoClient struct {
	http *httpClient
}

func NewVideoClient(cfg config.GenAIConfig, doer Doer) (*VideoClient, error) {
	hc, err := newHTTPClient("genai-video", cfg.VideoBaseURL, cfg.VideoAPIKey, cfg.HTTPTimeout, doer)
	if err != nil {
		return nil, err
	}
	return &VideoClient{http: hc}, nil
}

// ClipRequest is the model-neutral description of one clip job.
// FirstFrameURL anchors the clip start; LastFrameURL (optional) anchors the
// end for continuity with the next segment.
type ClipRequest struct {
	Model           enums.VideoModel
	Prompt          string
	FirstFrameURL   string
	LastFrameURL    string
	DurationSeconds int
	AspectRatio     string
}

type klingPayload struct {
	Prompt      string `json:"prompt"`
	Image       string `json:"image"`
	ImageTail   string `json:"image_tail,omitempty"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
}

type viduPayload struct {
	Prompt      string   `json:"prompt"`
	Keyframes   []string `json:"keyframes"`
	Duration    int      `json:"duration"`
	AspectRatio string   `json:"aspect_ratio"`
}

// SubmitClip starts a clip job and returns the provider handle.
func (c *VideoClient) SubmitClip(ctx context.Context, req ClipRequest) (string, error) {
	if req.FirstFrameURL == "" {
		return "", fmt.Errorf("first frame url is required")
	}
	if !req.Model.IsValid() {
		return "", fmt.Errorf("unsupported video model %q", req.Model)
	}

	var payload any
	switch req.Model {
	case enums.VideoModelKling:
		payload = klingPayload{
			Prompt:      req.Prompt,
			Image:       req.FirstFrameURL,
			ImageTail:   req.LastFrameURL,
			Duration:    req.DurationSeconds,
			AspectRatio: req.AspectRatio,
		}
	case enums.VideoModelVidu:
		keyframes := []string{req.FirstFrameURL}
		if req.LastFrameURL != "" {
			keyframes = append(keyframes, req.LastFrameURL)
		}
		payload = viduPayload{
			Prompt:      req.Prompt,
			Keyframes:   keyframes,
			Duration:    req.DurationSeconds,
			AspectRatio: req.AspectRatio,
		}
	}

	var resp submitResponse
	path := fmt.Sprintf("/v1/videos/%s/generations", req.Model)
	if err := c.http.postJSON(ctx, path, payload, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("genai-video: empty task id in response")
	}
	return resp.TaskID, nil
}

// PollClip fetches the current state of a clip job.
func (c *VideoClient) PollClip(ctx context.Context, model enums.VideoModel, handle string) (*JobStatus, error) {
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}

	var resp jobStatusResponse
	path := fmt.Sprintf("/v1/videos/%s/generations/%s", model, url.PathEscape(handle))
	if err := c.http.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return mapJobStatus(handle, resp), nil
}
