package enrollment

import (
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"
)

type State struct {
	IsEnrolled      bool         `json:"is_enrolled"`
	Package         tiers.Tier   `json:"package"`
	AmountPaid      money.Amount `json:"amount_paid"`
	Status          Status       `json:"status"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
}

// Read normalizes a possibly absent record. It never fails: no record means
// not enrolled, an unset package means basic, an unset amount means zero.
func Read(rec *Record) State {
	if rec == nil {
		return State{Package: tiers.Basic, Status: StatusNone}
	}

	pkg, ok := tiers.Parse(rec.Package)
	if !ok {
		pkg = tiers.Basic
	}

	st := State{
		IsEnrolled: true,
		Package:    pkg,
		AmountPaid: rec.AmountPaid,
		Status:     NormalizeStatus(rec.Status),
	}
	if st.AmountPaid < 0 {
		st.AmountPaid = 0
	}
	if rec.RejectionReason != nil {
		st.RejectionReason = *rec.RejectionReason
	}
	return st
}

// Active reports whether prior payment counts toward an upgrade. Pending and
// rejected enrollments are not paid for yet.
func (s State) Active() bool {
	return s.IsEnrolled && s.Status != StatusPending && s.Status != StatusRejected
}

// GrantsAccess reports whether the learner may open the course content.
func (s State) GrantsAccess() bool {
	return s.Status == StatusActive || s.Status == StatusCompleted
}
