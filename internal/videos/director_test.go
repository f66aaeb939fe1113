package videos

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

type fakeVideoService struct {
	lastReq   genai.ClipRequest
	submitErr error
}

func (f *fakeVideoService) SubmitClip(_ context.Context, req genai.ClipRequest) (string, error) {
	f.lastReq = req
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "clip-1", nil
}

func (f *fakeVideoService) PollClip(_ context.Context, _ enums.VideoModel, handle string) (*genai.JobStatus, error) {
	return &genai.JobStatus{Handle: handle, State: genai.JobStateProcessing}, nil
}

func TestResolveEndAnchor(t *testing.T) {
	if got := ResolveEndAnchor("closing", "next"); got != "closing" {
		t.Fatalf("closing frame must win, got %q", got)
	}
	if got := ResolveEndAnchor("", "next"); got != "next" {
		t.Fatalf("next opening frame is the fallback, got %q", got)
	}
	if got := ResolveEndAnchor("", ""); got != "" {
		t.Fatalf("expected single-frame mode, got %q", got)
	}
}

func TestSubmitUsesResolvedAnchor(t *testing.T) {
	videos := &fakeVideoService{}
	d, err := New(Params{Videos: videos})
	if err != nil {
		t.Fatalf("new director: %v", err)
	}

	handle, err := d.Submit(context.Background(), Request{
		Model:               enums.VideoModelKling,
		Prompt:              types.SegmentPrompt{FirstFrameDescription: "hero shot"},
		AspectRatio:         "16:9",
		DurationSeconds:     5,
		FirstFrameURL:       "https://cdn.example.com/first.png",
		NextOpeningFrameURL: "https://cdn.example.com/next.png",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != "clip-1" {
		t.Fatalf("unexpected handle %s", handle)
	}
	if videos.lastReq.LastFrameURL != "https://cdn.example.com/next.png" {
		t.Fatalf("expected next opening frame anchor, got %q", videos.lastReq.LastFrameURL)
	}
}

func TestSubmitSingleFrameMode(t *testing.T) {
	videos := &fakeVideoService{}
	d, _ := New(Params{Videos: videos})

	_, err := d.Submit(context.Background(), Request{
		Model:           enums.VideoModelVidu,
		Prompt:          types.SegmentPrompt{FirstFrameDescription: "hero shot"},
		DurationSeconds: 5,
		FirstFrameURL:   "https://cdn.example.com/first.png",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if videos.lastReq.LastFrameURL != "" {
		t.Fatalf("expected no end anchor, got %q", videos.lastReq.LastFrameURL)
	}
}

func TestSubmitRequiresFirstFrame(t *testing.T) {
	videos := &fakeVideoService{}
	d, _ := New(Params{Videos: videos})

	_, err := d.Submit(context.Background(), Request{Model: enums.VideoModelKling})
	if err == nil {
		t.Fatal("expected error without first frame")
	}
}

func TestSubmitPropagatesFailure(t *testing.T) {
	videos := &fakeVideoService{submitErr: errors.New("provider down")}
	d, _ := New(Params{Videos: videos})

	_, err := d.Submit(context.Background(), Request{
		Model:         enums.VideoModelKling,
		Prompt:        types.SegmentPrompt{FirstFrameDescription: "hero shot"},
		FirstFrameURL: "https://cdn.example.com/first.png",
	})
	if err == nil {
		t.Fatal("expected submission error to propagate")
	}
}

func TestMotionTextBuildsFromShots(t *testing.T) {
	prompt := types.SegmentPrompt{
		FirstFrameDescription: "product on table",
		Shots: []types.Shot{{
			Action:       "slow reveal",
			CameraMotion: "dolly in",
			Dialogue:     "introducing the new lamp",
		}},
	}

	text := motionText(prompt)
	for _, want := range []string{"product on table", "slow reveal", "camera dolly in", "dialogue: introducing"} {
		if !strings.Contains(text, want) {
			t.Errorf("motion text missing %q: %q", want, text)
		}
	}
}
