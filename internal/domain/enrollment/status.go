package enrollment

import "strings"

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// NormalizeStatus maps whatever the remote API sent onto the known statuses.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "awaiting_approval":
		return StatusPending
	case "active", "approved":
		return StatusActive
	case "rejected", "declined":
		return StatusRejected
	case "completed", "complete":
		return StatusCompleted
	default:
		return StatusNone
	}
}
