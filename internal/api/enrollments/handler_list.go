package enrollments

import (
	"net/http"
	"time"

	"enrollment-gateway/internal/api/apierror"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"

	"github.com/gin-gonic/gin"
)

type enrollmentDTO struct {
	CourseID     courses.RefID    `json:"course_id"`
	EnrollmentID courses.RefID    `json:"enrollment_id,omitempty"`
	State        enrollment.State `json:"state"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ListEnrollments returns the caller's cached enrollments, newest first.
func (h *Handler) ListEnrollments(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	snaps, err := h.cache.ListSnapshots(c.Request.Context(), userID)
	if err != nil {
		apierror.Internal(c, h.log, "Failed to load enrollments", err)
		return
	}

	out := make([]enrollmentDTO, 0, len(snaps))
	for _, s := range snaps {
		rec := s.Record()
		if rec == nil {
			continue
		}
		out = append(out, enrollmentDTO{
			CourseID:     s.CourseID,
			EnrollmentID: s.EnrollmentID,
			State:        h.sanitizeState(enrollment.Read(rec)),
			UpdatedAt:    s.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
