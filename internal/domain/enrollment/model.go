package enrollment

import (
	"time"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"
)

// Record is the enrollment payload as the remote API sends it.
type Record struct {
	ID              courses.RefID `json:"id,omitempty"`
	CourseID        courses.RefID `json:"course_id,omitempty"`
	Package         string        `json:"package,omitempty"`
	AmountPaid      money.Amount  `json:"amount_paid"`
	Status          string        `json:"status,omitempty"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
}

// Snapshot is the cached enrollment state of one user for one course.
type Snapshot struct {
	ID              uint          `gorm:"primaryKey" json:"-"`
	UserID          string        `gorm:"not null;uniqueIndex:idx_snapshots_user_course" json:"-"`
	CourseID        courses.RefID `gorm:"type:varchar(64);not null;uniqueIndex:idx_snapshots_user_course" json:"course_id"`
	EnrollmentID    courses.RefID `gorm:"type:varchar(64);index" json:"enrollment_id,omitempty"`
	Enrolled        bool          `gorm:"not null;default:false" json:"-"`
	Package         tiers.Tier    `gorm:"type:varchar(20)" json:"package"`
	AmountPaid      money.Amount  `json:"amount_paid"`
	Status          Status        `gorm:"type:varchar(20);index" json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `json:"-"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// SnapshotOf captures rec for the given user and course. A nil record yields
// a snapshot in the "none" state.
func SnapshotOf(userID string, courseID courses.RefID, rec *Record) Snapshot {
	st := Read(rec)
	s := Snapshot{
		UserID:     userID,
		CourseID:   courseID,
		Enrolled:   st.IsEnrolled,
		Package:    st.Package,
		AmountPaid: st.AmountPaid,
		Status:     st.Status,
	}
	if rec != nil {
		s.EnrollmentID = rec.ID
		s.RejectionReason = rec.RejectionReason
	}
	return s
}

// Record turns the snapshot back into a payload. A snapshot in the "none"
// state means there is no enrollment, unless it was captured from an
// enrollment whose status was not recognised.
func (s Snapshot) Record() *Record {
	if !s.Enrolled && (s.Status == StatusNone || s.Status == "") {
		return nil
	}
	return &Record{
		ID:              s.EnrollmentID,
		CourseID:        s.CourseID,
		Package:         string(s.Package),
		AmountPaid:      s.AmountPaid,
		Status:          string(s.Status),
		RejectionReason: s.RejectionReason,
	}
}
