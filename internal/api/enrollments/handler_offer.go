package enrollments

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"enrollment-gateway/internal/api/apierror"
	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/domain/access"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/tiers"
	"enrollment-gateway/internal/metrics"

	"github.com/gin-gonic/gin"
)

// GetOffer returns the enrollment panel for a course: every tier with its
// quote and eligibility, plus the single action for the selected tier.
func (h *Handler) GetOffer(c *gin.Context) {
	userID := c.GetString("user_id")
	courseID := courses.RefID(strings.TrimSpace(c.Param("id")))
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing course id"})
		return
	}

	var selected tiers.Tier
	if raw := c.Query("package"); raw != "" {
		t, ok := tiers.Parse(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown package"})
			return
		}
		selected = t
	}

	ctx := c.Request.Context()
	p := h.dial(middleware.SessionFrom(c))

	course, err := h.course(ctx, p, courseID)
	if err != nil {
		apierror.Upstream(c, h.log, err)
		return
	}

	st, err := h.enrollmentState(ctx, p, userID, courseID)
	if err != nil {
		apierror.Upstream(c, h.log, err)
		return
	}

	viewer := access.Viewer{UserID: userID, Role: c.GetString("role")}
	offer := access.ComputeOffer(course, h.sanitizeState(st), selected, viewer)
	metrics.OffersComputed.WithLabelValues(string(offer.Decision.Action)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"course": course,
		"offer":  offer,
	})
}

// course prefers the live platform copy and falls back to the synced
// catalogue when the platform is unreachable.
func (h *Handler) course(ctx context.Context, p Platform, id courses.RefID) (*courses.Course, error) {
	course, err := p.GetCourse(ctx, id)
	if err == nil {
		return course, nil
	}
	if !unavailable(err) {
		return nil, err
	}

	cached, cacheErr := h.cache.GetCourse(ctx, id)
	if cacheErr != nil || cached == nil {
		return nil, err
	}
	h.log.Warn("serving cached course", slog.String("course_id", string(id)), slog.Any("error", err))
	return cached, nil
}

// enrollmentState falls back to the cached snapshot when the platform cannot
// answer, including when a newer request for the same course cancelled this one.
func (h *Handler) enrollmentState(ctx context.Context, p Platform, userID string, courseID courses.RefID) (enrollment.State, error) {
	rec, err := h.syncEnrollment(ctx, p, userID, courseID, false)
	if err == nil {
		return enrollment.Read(rec), nil
	}
	if !unavailable(err) {
		return enrollment.State{}, err
	}

	snap, cacheErr := h.cache.GetSnapshot(ctx, userID, courseID)
	if cacheErr != nil || snap == nil {
		return enrollment.State{}, err
	}
	h.log.Warn("serving cached enrollment",
		slog.String("user_id", userID),
		slog.String("course_id", string(courseID)),
		slog.Any("error", err),
	)
	return enrollment.Read(snap.Record()), nil
}
