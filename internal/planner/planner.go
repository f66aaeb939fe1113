package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

const (
	maxStoryboardAttempts  = 5
	storyboardBackoffStep  = 2 * time.Second
	minFrameDescriptionLen = 20
)

// ErrPlanningFailed marks a fatal planning error: the storyboard service
// exhausted its attempts without producing a valid plan. The orchestrator
// fails the project and refunds on this error.
var ErrPlanningFailed = errors.New("planning failed")

// TextService is the slice of the generative text client the planner needs.
type TextService interface {
	GenerateStoryboard(ctx context.Context, req genai.StoryboardRequest) ([]types.SegmentPrompt, error)
}

// Planner derives the ordered segment prompts for a project.
type Planner struct {
	text  TextService
	logg  *logger.Logger
	sleep func(time.Duration)
}

type Params struct {
	Text   TextService
	Logger *logger.Logger
}

func New(params Params) *Planner {
	return &Planner{
		text:  params.Text,
		logg:  params.Logger,
		sleep: time.Sleep,
	}
}

// PlanRequest carries everything needed to derive a plan at admission.
type PlanRequest struct {
	SegmentCount           int
	SegmentDurationSeconds int
	Language               string
	AspectRatio            string
	BrandName              string
	BrandTone              string
	ProductName            string
	ProductDescription     string
	CompetitorShots        types.CompetitorShots
}

// BuildPlan derives the segment prompts. Competitor timelines with enough
// shots are mapped directly; short or missing timelines fall through to the
// storyboard service, and generic defaults are the last resort when no text
// service is wired.
func (p *Planner) BuildPlan(ctx context.Context, req PlanRequest) ([]types.SegmentPrompt, error) {
	if req.SegmentCount <= 0 {
		return nil, fmt.Errorf("segment count must be positive")
	}

	shotCount := len(req.CompetitorShots)
	switch {
	case shotCount == req.SegmentCount:
		return MapShots(req.CompetitorShots, req.SegmentDurationSeconds), nil
	case shotCount > req.SegmentCount:
		return CompressShots(req.CompetitorShots, req.SegmentCount, req.SegmentDurationSeconds), nil
	}

	if p.text == nil {
		return DefaultPlan(req.SegmentCount, req.SegmentDurationSeconds, req.ProductName), nil
	}
	return p.generateStoryboard(ctx, req)
}

// RebuildFromShots re-derives a plan without touching the text service. The
// recovery path uses it when segment rows are lost but the competitor
// timeline is still readable.
func RebuildFromShots(shots types.CompetitorShots, segmentCount, segmentDurationSeconds int, productName string) []types.SegmentPrompt {
	switch {
	case len(shots) == 0 || len(shots) < segmentCount:
		return DefaultPlan(segmentCount, segmentDurationSeconds, productName)
	case len(shots) == segmentCount:
		return MapShots(shots, segmentDurationSeconds)
	default:
		return CompressShots(shots, segmentCount, segmentDurationSeconds)
	}
}

func (p *Planner) generateStoryboard(ctx context.Context, req PlanRequest) ([]types.SegmentPrompt, error) {
	storyboardReq := genai.StoryboardRequest{
		CompetitorShots:        req.CompetitorShots,
		BrandName:              req.BrandName,
		BrandTone:              req.BrandTone,
		ProductName:            req.ProductName,
		ProductDescription:     req.ProductDescription,
		SegmentCount:           req.SegmentCount,
		SegmentDurationSeconds: req.SegmentDurationSeconds,
		Language:               req.Language,
		AspectRatio:            req.AspectRatio,
	}

	var lastErr error
	for attempt := 1; attempt <= maxStoryboardAttempts; attempt++ {
		prompts, err := p.text.GenerateStoryboard(ctx, storyboardReq)
		if err == nil {
			err = ValidateStoryboard(prompts, req.SegmentCount)
			if err == nil {
				return normalizePrompts(prompts, req.SegmentDurationSeconds), nil
			}
		}
		lastErr = err

		if p.logg != nil {
			logCtx := p.logg.WithField(ctx, "attempt", attempt)
			p.logg.Warn(logCtx, "storyboard generation attempt failed")
		}
		if attempt < maxStoryboardAttempts {
			p.sleep(time.Duration(attempt) * storyboardBackoffStep)
		}
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrPlanningFailed, maxStoryboardAttempts, lastErr)
}

// ValidateStoryboard checks the structural contract of a storyboard response.
func ValidateStoryboard(prompts []types.SegmentPrompt, segmentCount int) error {
	if len(prompts) != segmentCount {
		return fmt.Errorf("storyboard returned %d segments, expected %d", len(prompts), segmentCount)
	}
	for i, prompt := range prompts {
		desc := strings.TrimSpace(prompt.FirstFrameDescription)
		if len([]rune(desc)) < minFrameDescriptionLen {
			return fmt.Errorf("segment %d first frame description too short (%d chars)", i, len([]rune(desc)))
		}
	}
	return nil
}

// DefaultPlan synthesizes a generic hero-product plan so no segment is ever
// left without a usable prompt.
func DefaultPlan(segmentCount, segmentDurationSeconds int, productName string) []types.SegmentPrompt {
	subject := strings.TrimSpace(productName)
	if subject == "" {
		subject = "the featured product"
	}

	descriptions := []string{
		"Cinematic hero shot of %s on a clean studio backdrop, soft key light, shallow depth of field",
		"Close-up detail shot of %s highlighting texture and craftsmanship, slow push-in",
		"Lifestyle shot of %s in everyday use, natural light, warm tones",
		"Dynamic angle on %s with bold contrasting background, dramatic rim light",
	}

	prompts := make([]types.SegmentPrompt, 0, segmentCount)
	for i := 0; i < segmentCount; i++ {
		template := descriptions[i%len(descriptions)]
		desc := fmt.Sprintf(template, subject)
		prompts = append(prompts, types.SegmentPrompt{
			Index:                 i,
			FirstFrameDescription: desc,
			ContainsProduct:       true,
			DurationSeconds:       float64(segmentDurationSeconds),
			Shots: []types.Shot{{
				StartSeconds: 0,
				EndSeconds:   float64(segmentDurationSeconds),
				Subject:      subject,
				Action:       "slow reveal",
				Style:        "polished commercial",
			}},
		})
	}
	return prompts
}

func normalizePrompts(prompts []types.SegmentPrompt, segmentDurationSeconds int) []types.SegmentPrompt {
	out := make([]types.SegmentPrompt, len(prompts))
	copy(out, prompts)
	for i := range out {
		out[i].Index = i
		if out[i].DurationSeconds <= 0 {
			out[i].DurationSeconds = float64(segmentDurationSeconds)
		}
	}
	return out
}
