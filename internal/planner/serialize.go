package planner

import (
	"encoding/json"
	"fmt"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// currentPlanSchema is the version written for new plans. Version 1 rows
// (the legacy {"prompts": [...]} container) are still readable.
const currentPlanSchema = 2

type planEnvelope struct {
	SchemaVersion int                   `json:"schema_version"`
	Segments      []types.SegmentPrompt `json:"segments"`
}

type legacyPlanContainer struct {
	Prompts []types.SegmentPrompt `json:"prompts"`
}

// EncodePlan serializes a plan with the current schema version.
func EncodePlan(prompts []types.SegmentPrompt) (json.RawMessage, error) {
	if len(prompts) == 0 {
		return nil, fmt.Errorf("plan has no segments")
	}
	raw, err := json.Marshal(planEnvelope{
		SchemaVersion: currentPlanSchema,
		Segments:      prompts,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}
	return raw, nil
}

// DecodePlan rehydrates a persisted plan. All known historical shapes are
// normalized here, once, at read time: the versioned envelope, the legacy
// prompt container, and a bare prompt array.
func DecodePlan(raw json.RawMessage) ([]types.SegmentPrompt, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("plan is empty")
	}

	var envelope planEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.SchemaVersion >= 2 {
		if len(envelope.Segments) == 0 {
			return nil, fmt.Errorf("plan v%d has no segments", envelope.SchemaVersion)
		}
		return reindex(envelope.Segments), nil
	}

	var legacy legacyPlanContainer
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy.Prompts) > 0 {
		return reindex(legacy.Prompts), nil
	}

	var bare []types.SegmentPrompt
	if err := json.Unmarshal(raw, &bare); err == nil && len(bare) > 0 {
		return reindex(bare), nil
	}

	return nil, fmt.Errorf("unrecognized plan shape")
}

// reindex forces contiguous zero-based indexes; legacy rows carried
// unreliable index fields.
func reindex(prompts []types.SegmentPrompt) []types.SegmentPrompt {
	out := make([]types.SegmentPrompt, len(prompts))
	copy(out, prompts)
	for i := range out {
		out[i].Index = i
	}
	return out
}
