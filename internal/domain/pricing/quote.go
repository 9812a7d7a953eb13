package pricing

import (
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"
)

type Quote struct {
	Target        tiers.Tier   `json:"target"`
	Price         money.Amount `json:"price"`
	IsUpgrade     bool         `json:"is_upgrade"`
	OriginalPrice money.Amount `json:"original_price"`
	Paid          money.Amount `json:"paid"`
}

// Resolve computes what the learner owes for target. Active enrollments are
// credited with what was already paid; everything else pays list price.
// Missing course or package data yields a zero, non-upgrade quote.
func Resolve(c *courses.Course, st enrollment.State, target tiers.Tier) Quote {
	q := Quote{Target: target}
	if !c.HasPackage(target) {
		return q
	}
	listPrice := c.PriceOf(target)

	if !st.Active() {
		q.Price = listPrice
		return q
	}

	current := st.Package
	if !current.Valid() {
		current = tiers.Basic
	}
	if target.Rank() <= current.Rank() {
		// not an upgrade; selection should have been gated before this
		q.Price = listPrice
		return q
	}

	paid := st.AmountPaid
	if paid <= 0 {
		// legacy records without a recorded amount: assume list price of the current tier
		paid = c.PriceOf(current)
	}

	q.Price = money.ClampedSub(listPrice, paid)
	q.IsUpgrade = true
	q.OriginalPrice = listPrice
	q.Paid = paid
	return q
}

// ResolveAll quotes every tier, lowest first.
func ResolveAll(c *courses.Course, st enrollment.State) []Quote {
	quotes := make([]Quote, 0, len(tiers.Order))
	for _, t := range tiers.Order {
		quotes = append(quotes, Resolve(c, st, t))
	}
	return quotes
}
