package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"enrollment-gateway/internal/api/apierror"
	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/infra/store"
	"enrollment-gateway/internal/infra/upstream"
	"enrollment-gateway/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const maxReasonLength = 1000

// Platform is the part of the platform API the admin endpoints use.
type Platform interface {
	ApproveEnrollment(ctx context.Context, id courses.RefID) (*enrollment.Record, error)
	RejectEnrollment(ctx context.Context, id courses.RefID, reason string) (*enrollment.Record, error)
	ListCourses(ctx context.Context) ([]courses.Course, error)
}

type Dialer func(*upstream.Session) Platform

type Catalog interface {
	store.SnapshotStore
	FindSnapshotByEnrollmentID(ctx context.Context, id courses.RefID) (*enrollment.Snapshot, error)
	ListCourses(ctx context.Context) ([]courses.Course, error)
	UpsertCourses(ctx context.Context, list []courses.Course) error
}

type Handler struct {
	dial    Dialer
	catalog Catalog
	log     *slog.Logger
}

func NewHandler(dial Dialer, catalog Catalog, log *slog.Logger) *Handler {
	return &Handler{dial: dial, catalog: catalog, log: log}
}

func (h *Handler) ApproveEnrollment(c *gin.Context) {
	h.moderate(c, enrollment.StatusActive, nil,
		func(ctx context.Context, p Platform, id courses.RefID) (*enrollment.Record, error) {
			return p.ApproveEnrollment(ctx, id)
		})
}

func (h *Handler) RejectEnrollment(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rejection reason is required"})
		return
	}
	if len(reason) > maxReasonLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rejection reason is too long"})
		return
	}

	h.moderate(c, enrollment.StatusRejected, &reason,
		func(ctx context.Context, p Platform, id courses.RefID) (*enrollment.Record, error) {
			return p.RejectEnrollment(ctx, id, reason)
		})
}

// moderate applies an admin decision. When the learner's snapshot is cached
// it is updated ahead of the platform call and rolled back if the call fails.
func (h *Handler) moderate(
	c *gin.Context,
	status enrollment.Status,
	reason *string,
	call func(ctx context.Context, p Platform, id courses.RefID) (*enrollment.Record, error),
) {
	decision := string(status)
	id := courses.RefID(strings.TrimSpace(c.Param("id")))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing enrollment id"})
		return
	}

	ctx := c.Request.Context()
	p := h.dial(middleware.SessionFrom(c))
	apply := func(ctx context.Context) (*enrollment.Record, error) { return call(ctx, p, id) }

	snap, err := h.catalog.FindSnapshotByEnrollmentID(ctx, id)
	if err != nil {
		apierror.Internal(c, h.log, "Failed to load enrollment", err)
		return
	}

	if snap == nil {
		rec, err := apply(ctx)
		if err != nil {
			metrics.Moderations.WithLabelValues(decision, "failed").Inc()
			apierror.Upstream(c, h.log, err)
			return
		}
		metrics.Moderations.WithLabelValues(decision, "ok").Inc()
		st := enrollment.Read(rec)
		if rec == nil {
			st = enrollment.State{IsEnrolled: true, Status: status}
		}
		c.JSON(http.StatusOK, gin.H{"enrollment_id": id, "enrollment": st})
		return
	}

	next := *snap
	next.Status = status
	next.RejectionReason = reason

	var callErr error
	final, err := store.Optimistic(ctx, h.catalog, next, func(ctx context.Context) (*enrollment.Record, error) {
		var rec *enrollment.Record
		rec, callErr = apply(ctx)
		return rec, callErr
	})
	if errors.Is(err, store.ErrCacheWrite) {
		h.log.Warn("enrollment moderated but not cached",
			slog.String("enrollment_id", string(id)),
			slog.Any("error", err),
		)
		err = nil
	}
	if err != nil {
		metrics.Moderations.WithLabelValues(decision, "failed").Inc()
		if callErr != nil {
			apierror.Upstream(c, h.log, err)
			return
		}
		apierror.Internal(c, h.log, "Failed to update enrollment", err)
		return
	}
	metrics.Moderations.WithLabelValues(decision, "ok").Inc()

	h.log.Info("enrollment moderated",
		slog.String("enrollment_id", string(id)),
		slog.String("decision", decision),
		slog.String("admin", c.GetString("email")),
		slog.String("trace_id", c.GetString("trace_id")),
	)
	c.JSON(http.StatusOK, gin.H{"enrollment_id": id, "enrollment": enrollment.Read(final.Record())})
}
