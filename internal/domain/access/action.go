package access

import (
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/pricing"
	"enrollment-gateway/internal/domain/tiers"
)

// SelectAction picks the single action shown for the selected tier.
// First match wins:
//  1. access already covers the selected tier
//  2. the viewer teaches the course
//  3. an enrollment is awaiting approval
//  4. pay (enroll or upgrade)
func SelectAction(c *courses.Course, st enrollment.State, selected tiers.Tier, viewer Viewer) Decision {
	if st.GrantsAccess() && st.Package.Rank() >= selected.Rank() {
		return Decision{Action: ActionGoToLearning, Label: "Go to Learning"}
	}

	if viewer.Teaches(c) {
		return Decision{Action: ActionInstructor, Disabled: true, Label: "Instructor"}
	}

	if st.Status == enrollment.StatusPending {
		return Decision{Action: ActionAwaitingApproval, Disabled: true, Label: "Awaiting Approval"}
	}

	q := pricing.Resolve(c, st, selected)
	label := "Enroll Now"
	if st.Active() {
		label = "Upgrade to " + selected.Title()
	}
	return Decision{Action: ActionPay, Label: label, Quote: &q}
}

// Preselect suggests the tier above the current one for learners who already
// have access. It is only a default highlight.
func Preselect(st enrollment.State) tiers.Tier {
	if st.GrantsAccess() {
		return tiers.Next(st.Package)
	}
	return tiers.Basic
}
