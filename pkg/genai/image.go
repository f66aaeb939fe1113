package genai

import (
	"context"
	"fmt"
	"net/url"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
)

// ImageClient talks to the keyframe image service. Both text-to-image and
// image-to-image jobs are asynchronous: submission returns a handle that is
// polled until the job resolves.
type ImageClient struct {
	http *httpClient
}

func NewImageClient(cfg config.GenAIConfig, doer Doer) (*ImageClient, error) {
	hc, err := newHTTPClient("genai-image", cfg.ImageBaseURL, cfg.ImageAPIKey, cfg.HTTPTimeout, doer)
	if err != nil {
		return nil, err
	}
	return &ImageClient{http: hc}, nil
}

// FrameRequest describes one keyframe job. ReferenceImageURLs empty means
// pure text-to-image; otherwise the provider runs image-to-image against the
// references.
type FrameRequest struct {
	Prompt             string   `json:"prompt"`
	ReferenceImageURLs []string `json:"reference_image_urls,omitempty"`
	AspectRatio        string   `json:"aspect_ratio"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type jobStatusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SubmitFrame starts a keyframe job and returns the provider handle.
func (c *ImageClient) SubmitFrame(ctx context.Context, req FrameRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	path := "/v1/images/text-to-image"
	if len(req.ReferenceImageURLs) > 0 {
		path = "/v1/images/image-to-image"
	}

	var resp submitResponse
	if err := c.http.postJSON(ctx, path, req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("genai-image: empty task id in response")
	}
	return resp.TaskID, nil
}

// PollFrame fetches the current state of a keyframe job.
func (c *ImageClient) PollFrame(ctx context.Context, handle string) (*JobStatus, error) {
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}

	var resp jobStatusResponse
	if err := c.http.getJSON(ctx, "/v1/images/tasks/"+url.PathEscape(handle), &resp); err != nil {
		return nil, err
	}
	return mapJobStatus(handle, resp), nil
}

func mapJobStatus(handle string, resp jobStatusResponse) *JobStatus {
	status := &JobStatus{Handle: handle}
	switch resp.Status {
	case "completed", "succeeded":
		status.State = JobStateSucceeded
		status.URL = resp.Result
	case "failed":
		status.State = JobStateFailed
		status.Message = resp.Error
		if status.Message == "" {
			status.Message = resp.Result
		}
	case "processing", "running":
		status.State = JobStateProcessing
	default:
		status.State = JobStatePending
	}
	return status
}
