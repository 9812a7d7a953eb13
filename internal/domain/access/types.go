package access

import (
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/pricing"
)

type Action string

const (
	ActionGoToLearning     Action = "go_to_learning"
	ActionInstructor       Action = "instructor"
	ActionAwaitingApproval Action = "awaiting_approval"
	ActionPay              Action = "pay"
)

type Decision struct {
	Action   Action         `json:"action"`
	Disabled bool           `json:"disabled"`
	Label    string         `json:"label"`
	Quote    *pricing.Quote `json:"quote,omitempty"`
}

// Viewer is whoever is looking at the course page.
type Viewer struct {
	UserID string
	Role   string
}

func (v Viewer) Teaches(c *courses.Course) bool {
	return c != nil && v.UserID != "" && string(c.InstructorID) == v.UserID
}
