package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// Estimate describes how long a paced dispatch is expected to take.
type Estimate struct {
	Recipients int           `json:"recipients"`
	Batches    int           `json:"batches"`
	Duration   time.Duration `json:"-"`
	Text       string        `json:"estimated_duration"`
}

// EstimateFor computes batches = ceil(n/size) and duration = (batches-1)*delay.
func EstimateFor(n, size int, delay time.Duration) Estimate {
	if size < 1 {
		size = 1
	}
	batches := (n + size - 1) / size
	var d time.Duration
	if batches > 1 {
		d = time.Duration(batches-1) * delay
	}
	return Estimate{
		Recipients: n,
		Batches:    batches,
		Duration:   d,
		Text:       FormatDuration(d),
	}
}

// FormatDuration renders d as "<n> ms" below one second, otherwise as
// "[H h ][M min ]S s". Minutes are always shown once hours are.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}

	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d h", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%d min", minutes))
	}
	parts = append(parts, fmt.Sprintf("%d s", seconds))
	return strings.Join(parts, " ")
}
