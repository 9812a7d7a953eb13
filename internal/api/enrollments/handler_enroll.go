package enrollments

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"enrollment-gateway/internal/api/apierror"
	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/domain/access"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/tiers"
	"enrollment-gateway/internal/infra/store"
	"enrollment-gateway/internal/infra/upstream"
	"enrollment-gateway/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const maxReceiptSize = 10 << 20

// Enroll submits a receipt for the selected package. Only the pay action may
// submit; the cached snapshot turns pending right away and is rolled back if
// the platform refuses.
func (h *Handler) Enroll(c *gin.Context) {
	userID := c.GetString("user_id")
	courseID := courses.RefID(strings.TrimSpace(c.Param("id")))
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing course id"})
		return
	}

	tier, ok := tiers.Parse(c.PostForm("package"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid package"})
		return
	}

	fh, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required"})
		return
	}
	if fh.Size > maxReceiptSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Receipt file is too large"})
		return
	}
	data, err := readReceipt(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read receipt"})
		return
	}

	ctx := c.Request.Context()
	p := h.dial(middleware.SessionFrom(c))

	course, err := p.GetCourse(ctx, courseID)
	if err != nil {
		apierror.Upstream(c, h.log, err)
		return
	}
	if !course.HasPackage(tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Package not offered for this course"})
		return
	}

	// The decision is made on fresh state, never on the cache, and a newer
	// offer fetch must not cancel it.
	rec, err := p.GetEnrollment(ctx, courseID)
	if err != nil {
		apierror.Upstream(c, h.log, err)
		return
	}
	st := enrollment.Read(rec)

	decision := access.SelectAction(course, st, tier, access.Viewer{UserID: userID, Role: c.GetString("role")})
	if decision.Action != access.ActionPay {
		metrics.EnrollSubmissions.WithLabelValues("refused").Inc()
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Enrollment not allowed",
			"action": decision.Action,
			"label":  decision.Label,
		})
		return
	}
	if st.Active() && !tiers.IsUpgradeable(st.Package, tier) {
		metrics.EnrollSubmissions.WithLabelValues("refused").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "Only upgrades to a higher package are allowed"})
		return
	}

	pending := &enrollment.Record{
		CourseID:   courseID,
		Package:    string(tier),
		AmountPaid: st.AmountPaid,
		Status:     string(enrollment.StatusPending),
	}
	if rec != nil {
		pending.ID = rec.ID
	}
	receipt := upstream.Receipt{Filename: fh.Filename, Data: data}

	var callErr error
	snap, err := store.Optimistic(ctx, h.cache, enrollment.SnapshotOf(userID, courseID, pending),
		func(ctx context.Context) (*enrollment.Record, error) {
			var rec *enrollment.Record
			rec, callErr = p.Enroll(ctx, courseID, tier, receipt)
			return rec, callErr
		})
	if errors.Is(err, store.ErrCacheWrite) {
		h.log.Warn("enrollment submitted but not cached",
			slog.String("user_id", userID),
			slog.String("course_id", string(courseID)),
			slog.Any("error", err),
		)
		err = nil
	}
	if err != nil {
		metrics.EnrollSubmissions.WithLabelValues("failed").Inc()
		if callErr != nil {
			apierror.Upstream(c, h.log, err)
			return
		}
		apierror.Internal(c, h.log, "Failed to record enrollment", err)
		return
	}
	metrics.EnrollSubmissions.WithLabelValues("submitted").Inc()

	state := enrollment.Read(snap.Record())
	fresh, err := h.syncEnrollment(ctx, p, userID, courseID, true)
	switch {
	case err != nil:
		h.log.Warn("enrollment re-fetch failed", slog.String("course_id", string(courseID)), slog.Any("error", err))
	case fresh != nil:
		state = enrollment.Read(fresh)
	}

	c.JSON(http.StatusCreated, gin.H{
		"enrollment": h.sanitizeState(state),
		"quote":      decision.Quote,
	})
}

func readReceipt(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxReceiptSize))
}
