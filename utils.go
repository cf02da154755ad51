package launchtest

import (
	"fmt"
	"time"
)

// formatDuration renders a duration with millisecond precision for tables.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}
