package collector

import (
	"strconv"
	"strings"
	"time"
)

// Value coercion for loosely-typed controller payloads. Every attribute
// arrives as a string; none of these helpers ever fail loudly.

// parseFloat returns the parsed value, or nil for empty or non-numeric
// input.
func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseInt returns the parsed value, or nil for empty or non-numeric input.
func parseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

// parseTimestamp parses an ISO-8601 string; a trailing literal Z parses as
// UTC. Returns nil for empty, "never", "unspecified", or unparsable input.
func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "never", "unspecified":
		return nil
	}
	// RFC3339Nano covers both the Z and numeric-offset forms, with or
	// without fractional seconds; the bare layout covers zone-less input.
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// usageFromIdle derives usage percentage from an idle fraction:
// clamp(100 - idle, 0, 100).
func usageFromIdle(idle *float64) *float64 {
	if idle == nil {
		return nil
	}
	return clampPercent(100 - *idle)
}

// usageFromUsedTotal derives usage percentage from used/total counters;
// nil when total is absent or not positive.
func usageFromUsedTotal(used, total *float64) *float64 {
	if used == nil || total == nil || *total <= 0 {
		return nil
	}
	return clampPercent(*used / *total * 100)
}

func clampPercent(v float64) *float64 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return &v
}
