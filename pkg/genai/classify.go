package genai

import "strings"

// Provider failure strings arrive with internal details (queue names, worker
// hosts, stack fragments). The persisted error message must stay presentable,
// so failures are classified and sanitized before they touch segment rows.

var retryableMarkers = []string{
	"timeout",
	"timed out",
	"temporarily unavailable",
	"service unavailable",
	"internal error",
	"try again",
	"rate limit",
	"capacity",
	"overloaded",
}

var nonRetryableMarkers = []string{
	"content policy",
	"policy violation",
	"unsafe content",
	"invalid prompt",
	"prompt rejected",
	"unsupported aspect ratio",
	"invalid image",
	"nsfw",
}

// IsRetryableFailure reports whether a terminal provider failure is worth
// resubmitting. Unknown failure strings default to retryable so a flaky
// provider does not burn a segment permanently on the first pass.
func IsRetryableFailure(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// SanitizeFailure maps a raw provider failure string to a message safe to
// persist and show to the owner.
func SanitizeFailure(message string) string {
	lower := strings.ToLower(message)
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(lower, marker) {
			return "generation rejected by the content filter"
		}
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(lower, marker) {
			return "generation service was temporarily unavailable"
		}
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "generation failed"
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return "generation failed: " + trimmed
}
