package planner

import (
	"strings"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// maxMergedFieldRunes bounds each merged text field after compression so
// large shot-to-segment ratios cannot produce unbounded prompts.
const maxMergedFieldRunes = 2000

// MapShots converts a competitor timeline with exactly one shot per segment
// into segment prompts.
func MapShots(shots types.CompetitorShots, segmentDurationSeconds int) []types.SegmentPrompt {
	prompts := make([]types.SegmentPrompt, 0, len(shots))
	for i, shot := range shots {
		prompts = append(prompts, promptFromShots(i, []types.CompetitorShot{shot}, segmentDurationSeconds))
	}
	return prompts
}

// CompressShots partitions a longer competitor timeline into segmentCount
// buckets by index ratio and merges each bucket into one prompt. Index-based
// partitioning keeps the spread even regardless of shot durations.
func CompressShots(shots types.CompetitorShots, segmentCount, segmentDurationSeconds int) []types.SegmentPrompt {
	buckets := make([][]types.CompetitorShot, segmentCount)
	for i, shot := range shots {
		bucket := i * segmentCount / len(shots)
		buckets[bucket] = append(buckets[bucket], shot)
	}

	prompts := make([]types.SegmentPrompt, 0, segmentCount)
	for i, bucket := range buckets {
		prompts = append(prompts, promptFromShots(i, bucket, segmentDurationSeconds))
	}
	return prompts
}

func promptFromShots(index int, bucket []types.CompetitorShot, segmentDurationSeconds int) types.SegmentPrompt {
	prompt := types.SegmentPrompt{
		Index:           index,
		DurationSeconds: bucketDuration(bucket, segmentDurationSeconds),
	}
	if len(bucket) == 0 {
		return prompt
	}

	prompt.FirstFrameDescription = clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Description }))

	shot := types.Shot{
		StartSeconds: 0,
		EndSeconds:   prompt.DurationSeconds,
		Subject:      clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Subject })),
		Action:       clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Action })),
		Style:        clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Style })),
		Composition:  clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Composition })),
		Lighting:     clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Lighting })),
		CameraMotion: clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.CameraMotion })),
		Dialogue:     clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Dialogue })),
		Audio:        clampField(joinField(bucket, func(s types.CompetitorShot) string { return s.Audio })),
	}
	prompt.Shots = []types.Shot{shot}

	for _, s := range bucket {
		prompt.ContainsBrand = prompt.ContainsBrand || s.ContainsBrand
		prompt.ContainsProduct = prompt.ContainsProduct || s.ContainsProduct
	}
	return prompt
}

func joinField(bucket []types.CompetitorShot, get func(types.CompetitorShot) string) string {
	parts := make([]string, 0, len(bucket))
	for _, shot := range bucket {
		if v := strings.TrimSpace(get(shot)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

// bucketDuration spans from the first shot's start to the last shot's end.
// Empty buckets and broken timestamps fall back to the nominal segment
// length.
func bucketDuration(bucket []types.CompetitorShot, segmentDurationSeconds int) float64 {
	if len(bucket) > 0 {
		if span := bucket[len(bucket)-1].EndSeconds - bucket[0].StartSeconds; span > 0 {
			return span
		}
	}
	return float64(segmentDurationSeconds)
}

func clampField(value string) string {
	runes := []rune(value)
	if len(runes) <= maxMergedFieldRunes {
		return value
	}
	return string(runes[:maxMergedFieldRunes]) + "…"
}
