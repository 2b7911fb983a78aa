package library

import "strings"

const (
	StatusWatching  = "Watching"
	StatusReading   = "Reading"
	StatusPlanned   = "Planned"
	StatusCompleted = "Completed"
)

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "watching":
		return StatusWatching
	case "reading":
		return StatusReading
	case "planned", "plan to watch", "plan to read", "plan_to_read", "plan_to_watch":
		return StatusPlanned
	case "completed", "done":
		return StatusCompleted
	default:
		return ""
	}
}
