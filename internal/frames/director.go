package frames

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// ImageService is the slice of the image client the director needs.
type ImageService interface {
	SubmitFrame(ctx context.Context, req genai.FrameRequest) (string, error)
	PollFrame(ctx context.Context, handle string) (*genai.JobStatus, error)
}

// Director decides how each keyframe is synthesized and submits the job.
// Routing priority: continuation > brand image-to-image > product
// image-to-image > text-to-image. Competitor clone mode bypasses the
// brand/product heuristics entirely.
type Director struct {
	images ImageService
	logg   *logger.Logger
}

type Params struct {
	Images ImageService
	Logger *logger.Logger
}

func New(params Params) (*Director, error) {
	if params.Images == nil {
		return nil, fmt.Errorf("image service is required")
	}
	return &Director{images: params.Images, logg: params.Logger}, nil
}

// Request describes one (segment, frameType) keyframe job with every
// reference the routing rules may draw on.
type Request struct {
	Prompt      types.SegmentPrompt
	FrameType   enums.FrameType
	AspectRatio string

	// PrevOpeningFrameURL enables continuation routing for opening frames.
	PrevOpeningFrameURL string

	BrandReferenceURLs   []string
	ProductReferenceURLs []string

	// CloneMode recreates the competitor shot faithfully from its own
	// reference instead of fitting to brand/product assets.
	CloneMode         bool
	CloneReferenceURL string
}

// Submit routes the request and submits the image job, returning the opaque
// task handle. It never blocks on job completion.
func (d *Director) Submit(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt.FirstFrameDescription) == "" {
		return "", fmt.Errorf("frame description is required")
	}

	frameReq := genai.FrameRequest{
		Prompt:      promptText(req.Prompt),
		AspectRatio: req.AspectRatio,
	}

	switch {
	case req.CloneMode:
		// Faithful recreation: description only, plus the competitor
		// reference when one exists.
		frameReq.Prompt = req.Prompt.FirstFrameDescription
		if req.CloneReferenceURL != "" {
			frameReq.ReferenceImageURLs = []string{req.CloneReferenceURL}
		}

	case req.FrameType == enums.FrameTypeFirst &&
		req.Prompt.IsContinuationFromPrev &&
		req.PrevOpeningFrameURL != "":
		refs := []string{req.PrevOpeningFrameURL}
		if req.Prompt.ContainsBrand {
			refs = append(refs, req.BrandReferenceURLs...)
		}
		if req.Prompt.ContainsProduct {
			refs = append(refs, req.ProductReferenceURLs...)
		}
		frameReq.ReferenceImageURLs = refs

	case req.Prompt.ContainsBrand && len(req.BrandReferenceURLs) > 0:
		frameReq.ReferenceImageURLs = req.BrandReferenceURLs

	case req.Prompt.ContainsProduct && len(req.ProductReferenceURLs) > 0:
		frameReq.ReferenceImageURLs = req.ProductReferenceURLs
	}

	handle, err := d.images.SubmitFrame(ctx, frameReq)
	if err != nil {
		return "", fmt.Errorf("submitting %s frame job: %w", req.FrameType, err)
	}

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"frame_type":  string(req.FrameType),
			"task_handle": handle,
			"references":  len(frameReq.ReferenceImageURLs),
		})
		d.logg.Info(logCtx, "frame job submitted")
	}
	return handle, nil
}

// Poll fetches the current state of a frame job.
func (d *Director) Poll(ctx context.Context, handle string) (*genai.JobStatus, error) {
	return d.images.PollFrame(ctx, handle)
}

// promptText flattens the segment prompt into one generation prompt: the
// frame description followed by the distinct stylistic fields of its shots.
func promptText(prompt types.SegmentPrompt) string {
	parts := []string{prompt.FirstFrameDescription}
	seen := map[string]bool{}
	appendPart := func(label, value string) {
		v := strings.TrimSpace(value)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		parts = append(parts, label+": "+v)
	}
	for _, shot := range prompt.Shots {
		appendPart("Style", shot.Style)
		appendPart("Composition", shot.Composition)
		appendPart("Lighting", shot.Lighting)
	}
	return strings.Join(parts, ". ")
}
