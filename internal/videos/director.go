package videos

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// VideoService is the slice of the video client the director needs.
type VideoService interface {
	SubmitClip(ctx context.Context, req genai.ClipRequest) (string, error)
	PollClip(ctx context.Context, model enums.VideoModel, handle string) (*genai.JobStatus, error)
}

// Director turns an approved segment into a clip job submission.
type Director struct {
	videos VideoService
	logg   *logger.Logger
}

type Params struct {
	Videos VideoService
	Logger *logger.Logger
}

func New(params Params) (*Director, error) {
	if params.Videos == nil {
		return nil, fmt.Errorf("video service is required")
	}
	return &Director{videos: params.Videos, logg: params.Logger}, nil
}

// Request describes one clip job.
type Request struct {
	Model           enums.VideoModel
	Prompt          types.SegmentPrompt
	AspectRatio     string
	DurationSeconds int

	FirstFrameURL string
	// ClosingFrameURL anchors the end when set; otherwise the next
	// segment's opening frame is the fallback anchor.
	ClosingFrameURL     string
	NextOpeningFrameURL string
}

// ResolveEndAnchor picks the end-anchor frame: the segment's own closing
// frame first, then the next segment's opening frame, else empty for
// single-frame mode.
func ResolveEndAnchor(closingFrameURL, nextOpeningFrameURL string) string {
	if closingFrameURL != "" {
		return closingFrameURL
	}
	return nextOpeningFrameURL
}

// Submit resolves the end anchor and submits the clip job, returning the
// opaque task handle.
func (d *Director) Submit(ctx context.Context, req Request) (string, error) {
	if req.FirstFrameURL == "" {
		return "", fmt.Errorf("first frame url is required")
	}

	endAnchor := ResolveEndAnchor(req.ClosingFrameURL, req.NextOpeningFrameURL)

	handle, err := d.videos.SubmitClip(ctx, genai.ClipRequest{
		Model:           req.Model,
		Prompt:          motionText(req.Prompt),
		FirstFrameURL:   req.FirstFrameURL,
		LastFrameURL:    endAnchor,
		DurationSeconds: req.DurationSeconds,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		return "", fmt.Errorf("submitting clip job: %w", err)
	}

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"model":        string(req.Model),
			"task_handle":  handle,
			"single_frame": endAnchor == "",
		})
		d.logg.Info(logCtx, "clip job submitted")
	}
	return handle, nil
}

// Poll fetches the current state of a clip job.
func (d *Director) Poll(ctx context.Context, model enums.VideoModel, handle string) (*genai.JobStatus, error) {
	return d.videos.PollClip(ctx, model, handle)
}

// motionText flattens the segment prompt into a motion-oriented generation
// prompt built from its shot sub-beats.
func motionText(prompt types.SegmentPrompt) string {
	parts := []string{prompt.FirstFrameDescription}
	for _, shot := range prompt.Shots {
		beat := []string{}
		if v := strings.TrimSpace(shot.Action); v != "" {
			beat = append(beat, v)
		}
		if v := strings.TrimSpace(shot.CameraMotion); v != "" {
			beat = append(beat, "camera "+v)
		}
		if v := strings.TrimSpace(shot.Dialogue); v != "" {
			beat = append(beat, "dialogue: "+v)
		}
		if v := strings.TrimSpace(shot.Audio); v != "" {
			beat = append(beat, "audio: "+v)
		}
		if len(beat) > 0 {
			parts = append(parts, strings.Join(beat, ", "))
		}
	}
	return strings.Join(parts, ". ")
}
