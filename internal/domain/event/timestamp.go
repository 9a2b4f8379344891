package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/mindseye/internal/domain"
)

// Accepted ISO-8601 layouts, tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp to an absolute instant.
// Returns an error wrapping domain.ErrInvalidTimestamp on failure.
func ParseTimestamp(s string) (time.Time, error) {
	return parseField("timestamp", s)
}

func parseField(field, s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, domain.NewTimestampError(field, s, fmt.Errorf("empty value"))
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewTimestampError(field, s, nil)
}

// ParseBound parses a time-range bound, naming it in the error.
func ParseBound(name, s string) (time.Time, error) {
	return parseField(name, s)
}
