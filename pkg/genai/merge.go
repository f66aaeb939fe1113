package genai

import (
	"context"
	"fmt"
	"net/url"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
)

// MergeClient talks to the media service that concatenates finished segment
// clips into the final deliverable.
type MergeClient struct {
	http *httpClient
}

func NewMergeClient(cfg config.GenAIConfig, doer Doer) (*MergeClient, error) {
	hc, err := newHTTPClient("genai-merge", cfg.MergeBaseURL, cfg.MergeAPIKey, cfg.HTTPTimeout, doer)
	if err != nil {
		return nil, err
	}
	return &MergeClient{http: hc}, nil
}

type mergeRequest struct {
	VideoURLs []string `json:"video_urls"`
}

// SubmitMerge starts a merge job over the ordered clip URLs.
func (c *MergeClient) SubmitMerge(ctx context.Context, videoURLs []string) (string, error) {
	if len(videoURLs) == 0 {
		return "", fmt.Errorf("at least one video url is required")
	}
	for i, u := range videoURLs {
		if u == "" {
			return "", fmt.Errorf("video url at position %d is empty", i)
		}
	}

	var resp submitResponse
	if err := c.http.postJSON(ctx, "/v1/merges", mergeRequest{VideoURLs: videoURLs}, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("genai-merge: empty task id in response")
	}
	return resp.TaskID, nil
}

// PollMerge fetches the current state of a merge job.
func (c *MergeClient) PollMerge(ctx context.Context, handle string) (*JobStatus, error) {
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}

	var resp jobStatusResponse
	if err := c.http.getJSON(ctx, "/v1/merges/"+url.PathEscape(handle), &resp); err != nil {
		return nil, err
	}
	return mapJobStatus(handle, resp), nil
}
