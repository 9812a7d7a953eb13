package tiers

import "strings"

type Tier string

// Tier constants (single source of truth)
const (
	Basic    Tier = "basic"
	Advanced Tier = "advanced"
	Premium  Tier = "premium"
)

// Order lists tiers from lowest to highest rank.
var Order = []Tier{Basic, Advanced, Premium}

// Rank is only meaningful for comparisons. Unknown tiers rank 0.
func (t Tier) Rank() int {
	switch t {
	case Basic:
		return 1
	case Advanced:
		return 2
	case Premium:
		return 3
	default:
		return 0
	}
}

func (t Tier) Valid() bool {
	return t.Rank() > 0
}

func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Parse normalizes a tier coming from a request or the remote API.
func Parse(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", false
	}
	return t, true
}

// IsUpgradeable reports whether picking target is a valid purchase from current.
// An empty current tier means a fresh enrollment, so every target qualifies.
func IsUpgradeable(current, target Tier) bool {
	if current == "" {
		return true
	}
	return target.Rank() > current.Rank()
}

// Next returns the tier suggested after t. Premium stays premium.
func Next(t Tier) Tier {
	switch t {
	case Basic:
		return Advanced
	case Advanced, Premium:
		return Premium
	default:
		return Basic
	}
}
