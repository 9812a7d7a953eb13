package admin

import (
	"log/slog"
	"net/http"
	"time"

	"enrollment-gateway/internal/api/apierror"
	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/domain/courses"

	"github.com/gin-gonic/gin"
)

// SyncCourses re-fetches the platform catalogue and merges it into the local
// cache. Courses the platform no longer lists are kept.
func (h *Handler) SyncCourses(c *gin.Context) {
	ctx := c.Request.Context()
	p := h.dial(middleware.SessionFrom(c))

	fetched, err := p.ListCourses(ctx)
	if err != nil {
		apierror.Upstream(c, h.log, err)
		return
	}

	existing, err := h.catalog.ListCourses(ctx)
	if err != nil {
		apierror.Internal(c, h.log, "Failed to load cached courses", err)
		return
	}

	now := time.Now().UTC()
	for i := range fetched {
		fetched[i].SyncedAt = now
	}
	merged, created, updated := courses.MergeCatalog(existing, fetched)

	if err := h.catalog.UpsertCourses(ctx, merged); err != nil {
		apierror.Internal(c, h.log, "Failed to save courses", err)
		return
	}

	h.log.Info("course catalogue synced",
		slog.Int("fetched", len(fetched)),
		slog.Int("created", created),
		slog.Int("updated", updated),
	)
	c.JSON(http.StatusOK, gin.H{
		"synced":  created + updated,
		"created": created,
		"updated": updated,
		"skipped": len(fetched) - created - updated,
		"total":   len(merged),
	})
}

// ListCourses returns the cached catalogue.
func (h *Handler) ListCourses(c *gin.Context) {
	list, err := h.catalog.ListCourses(c.Request.Context())
	if err != nil {
		apierror.Internal(c, h.log, "Failed to load courses", err)
		return
	}
	type courseDTO struct {
		courses.Course
		SyncedAt time.Time `json:"synced_at"`
	}
	out := make([]courseDTO, 0, len(list))
	for _, co := range list {
		out = append(out, courseDTO{Course: co, SyncedAt: co.SyncedAt})
	}
	c.JSON(http.StatusOK, out)
}
