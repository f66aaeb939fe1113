package frames

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

type fakeImageService struct {
	lastReq   genai.FrameRequest
	handle    string
	submitErr error
}

func (f *fakeImageService) SubmitFrame(_ context.Context, req genai.FrameRequest) (string, error) {
	f.lastReq = req
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.handle == "" {
		return "task-1", nil
	}
	return f.handle, nil
}

func (f *fakeImageService) PollFrame(_ context.Context, handle string) (*genai.JobStatus, error) {
	return &genai.JobStatus{Handle: handle, State: genai.JobStatePending}, nil
}

func testPrompt() types.SegmentPrompt {
	return types.SegmentPrompt{
		Index:                 1,
		FirstFrameDescription: "A wide shot of the product on a wooden table",
		Shots: []types.Shot{{
			Style:    "warm commercial",
			Lighting: "golden hour",
		}},
	}
}

func TestSubmitContinuationTakesPriority(t *testing.T) {
	images := &fakeImageService{}
	d, err := New(Params{Images: images})
	if err != nil {
		t.Fatalf("new director: %v", err)
	}

	prompt := testPrompt()
	prompt.IsContinuationFromPrev = true
	prompt.ContainsBrand = true

	handle, err := d.Submit(context.Background(), Request{
		Prompt:              prompt,
		FrameType:           enums.FrameTypeFirst,
		AspectRatio:         "16:9",
		PrevOpeningFrameURL: "https://cdn.example.com/prev.png",
		BrandReferenceURLs:  []string{"https://cdn.example.com/brand.png"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != "task-1" {
		t.Fatalf("unexpected handle %s", handle)
	}

	refs := images.lastReq.ReferenceImageURLs
	if len(refs) != 2 {
		t.Fatalf("expected prev + brand references, got %v", refs)
	}
	if refs[0] != "https://cdn.example.com/prev.png" {
		t.Fatalf("previous opening frame must lead the references, got %v", refs)
	}
}

func TestSubmitBrandBeforeProduct(t *testing.T) {
	images := &fakeImageService{}
	d, _ := New(Params{Images: images})

	prompt := testPrompt()
	prompt.ContainsBrand = true
	prompt.ContainsProduct = true

	_, err := d.Submit(context.Background(), Request{
		Prompt:               prompt,
		FrameType:            enums.FrameTypeFirst,
		AspectRatio:          "16:9",
		BrandReferenceURLs:   []string{"https://cdn.example.com/brand.png"},
		ProductReferenceURLs: []string{"https://cdn.example.com/product.png"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	refs := images.lastReq.ReferenceImageURLs
	if len(refs) != 1 || refs[0] != "https://cdn.example.com/brand.png" {
		t.Fatalf("expected brand reference only, got %v", refs)
	}
}

func TestSubmitProductFallback(t *testing.T) {
	images := &fakeImageService{}
	d, _ := New(Params{Images: images})

	prompt := testPrompt()
	prompt.ContainsBrand = true // flagged, but no brand asset available
	prompt.ContainsProduct = true

	_, err := d.Submit(context.Background(), Request{
		Prompt:               prompt,
		FrameType:            enums.FrameTypeFirst,
		AspectRatio:          "16:9",
		ProductReferenceURLs: []string{"https://cdn.example.com/product.png"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	refs := images.lastReq.ReferenceImageURLs
	if len(refs) != 1 || refs[0] != "https://cdn.example.com/product.png" {
		t.Fatalf("expected product reference, got %v", refs)
	}
}

func TestSubmitTextOnlyWithoutAssets(t *testing.T) {
	images := &fakeImageService{}
	d, _ := New(Params{Images: images})

	prompt := testPrompt()
	prompt.ContainsBrand = true
	prompt.ContainsProduct = true

	_, err := d.Submit(context.Background(), Request{
		Prompt:      prompt,
		FrameType:   enums.FrameTypeFirst,
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(images.lastReq.ReferenceImageURLs) != 0 {
		t.Fatalf("expected text-to-image, got references %v", images.lastReq.ReferenceImageURLs)
	}
	if images.lastReq.Prompt == "" {
		t.Fatal("expected non-empty prompt text")
	}
}

func TestSubmitCloneModeShortCircuits(t *testing.T) {
	images := &fakeImageService{}
	d, _ := New(Params{Images: images})

	prompt := testPrompt()
	prompt.ContainsBrand = true

	_, err := d.Submit(context.Background(), Request{
		Prompt:             prompt,
		FrameType:          enums.FrameTypeFirst,
		AspectRatio:        "16:9",
		CloneMode:          true,
		CloneReferenceURL:  "https://cdn.example.com/competitor.png",
		BrandReferenceURLs: []string{"https://cdn.example.com/brand.png"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	refs := images.lastReq.ReferenceImageURLs
	if len(refs) != 1 || refs[0] != "https://cdn.example.com/competitor.png" {
		t.Fatalf("clone mode must use the competitor reference only, got %v", refs)
	}
	if images.lastReq.Prompt != prompt.FirstFrameDescription {
		t.Fatalf("clone mode must use the raw description, got %q", images.lastReq.Prompt)
	}
}

func TestSubmitPropagatesFailure(t *testing.T) {
	images := &fakeImageService{submitErr: errors.New("provider down")}
	d, _ := New(Params{Images: images})

	_, err := d.Submit(context.Background(), Request{
		Prompt:      testPrompt(),
		FrameType:   enums.FrameTypeFirst,
		AspectRatio: "16:9",
	})
	if err == nil {
		t.Fatal("expected submission error to propagate")
	}
}

func TestSubmitRejectsEmptyDescription(t *testing.T) {
	images := &fakeImageService{}
	d, _ := New(Params{Images: images})

	_, err := d.Submit(context.Background(), Request{
		Prompt:    types.SegmentPrompt{},
		FrameType: enums.FrameTypeFirst,
	})
	if err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestPromptTextIncludesShotStyling(t *testing.T) {
	text := promptText(testPrompt())
	for _, want := range []string{"wooden table", "Style: warm commercial", "Lighting: golden hour"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt text missing %q: %q", want, text)
		}
	}
}
