package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-triggers/pkg/core"
)

const (
	// MaxJobTypeNameLength is the maximum length for registered job types
	MaxJobTypeNameLength = 255

	// MaxCalendarNameLength is the maximum length for calendar names
	MaxCalendarNameLength = 200

	// MaxWorkers is the hard limit for scheduler worker goroutines
	MaxWorkers = 1000

	// MaxBatchSize is the hard limit for triggers acquired per poll
	MaxBatchSize = 1000

	// MaxErrorMessageLength is the maximum length of a job error in logs and events
	MaxErrorMessageLength = 4096
)

// validName matches alphanumeric, hyphens, underscores, and dots
var validName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateJobTypeName validates the name a job implementation is registered under.
func ValidateJobTypeName(name string) error {
	if name == "" {
		return core.ErrInvalidJobTypeName
	}
	if len(name) > MaxJobTypeNameLength {
		return core.ErrJobTypeNameTooLong
	}
	if !validName.MatchString(name) {
		return core.ErrInvalidJobTypeName
	}
	return nil
}

// ValidateCalendarName validates a calendar name. Calendar names are stored
// with triggers, so they share the trigger store's column limit.
func ValidateCalendarName(name string) error {
	if name == "" || len(name) > MaxCalendarNameLength || !validName.MatchString(name) {
		return core.ErrInvalidCalendarName
	}
	return nil
}

// SanitizeErrorMessage drops control characters and truncates msg.
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	var sanitized strings.Builder
	sanitized.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()
	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}
	return result
}

func clamp(n, hi int) int {
	return min(max(n, 1), hi)
}

// ClampWorkers ensures the worker count is within [1, MaxWorkers].
func ClampWorkers(n int) int { return clamp(n, MaxWorkers) }

// ClampBatchSize ensures the batch size is within [1, MaxBatchSize].
func ClampBatchSize(n int) int { return clamp(n, MaxBatchSize) }
