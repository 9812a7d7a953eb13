package access

import (
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/pricing"
	"enrollment-gateway/internal/domain/tiers"
)

type TierOption struct {
	Tier     tiers.Tier    `json:"tier"`
	Features []string      `json:"features"`
	Eligible bool          `json:"eligible"`
	Quote    pricing.Quote `json:"quote"`
}

// Offer is everything a course page needs to render the enrollment panel.
type Offer struct {
	CourseID    courses.RefID    `json:"course_id"`
	Enrollment  enrollment.State `json:"enrollment"`
	Preselected tiers.Tier       `json:"preselected"`
	Selected    tiers.Tier       `json:"selected"`
	Options     []TierOption     `json:"options"`
	Decision    Decision         `json:"decision"`
}

// ComputeOffer builds the offer for selected, or for the preselected tier
// when selected is empty.
func ComputeOffer(c *courses.Course, st enrollment.State, selected tiers.Tier, viewer Viewer) Offer {
	pre := Preselect(st)
	if !selected.Valid() {
		selected = pre
	}

	var current tiers.Tier
	if st.Active() {
		current = st.Package
	}

	offer := Offer{
		Enrollment:  st,
		Preselected: pre,
		Selected:    selected,
		Options:     make([]TierOption, 0, len(tiers.Order)),
		Decision:    SelectAction(c, st, selected, viewer),
	}
	if c != nil {
		offer.CourseID = c.ID
	}

	for _, t := range tiers.Order {
		if !c.HasPackage(t) {
			continue
		}
		pkg, _ := c.Packages.For(t)
		offer.Options = append(offer.Options, TierOption{
			Tier:     t,
			Features: pkg.Features,
			Eligible: tiers.IsUpgradeable(current, t),
			Quote:    pricing.Resolve(c, st, t),
		})
	}
	return offer
}
