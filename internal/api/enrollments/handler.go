package enrollments

import (
	"context"
	"log/slog"
	"time"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/tiers"
	"enrollment-gateway/internal/infra/latest"
	"enrollment-gateway/internal/infra/store"
	"enrollment-gateway/internal/infra/upstream"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

// Platform is the part of the platform API the learner endpoints use.
type Platform interface {
	GetCourse(ctx context.Context, id courses.RefID) (*courses.Course, error)
	GetEnrollment(ctx context.Context, courseID courses.RefID) (*enrollment.Record, error)
	Enroll(ctx context.Context, courseID courses.RefID, tier tiers.Tier, receipt upstream.Receipt) (*enrollment.Record, error)
}

// Dialer binds a Platform to the caller's session.
type Dialer func(*upstream.Session) Platform

type Cache interface {
	store.SnapshotStore
	ListSnapshots(ctx context.Context, userID string) ([]enrollment.Snapshot, error)
	GetCourse(ctx context.Context, id courses.RefID) (*courses.Course, error)
}

type Handler struct {
	dial    Dialer
	cache   Cache
	tracker *latest.Tracker
	policy  *bluemonday.Policy
	log     *slog.Logger
	now     func() time.Time
}

// pendingGrace is how long a freshly submitted enrollment is trusted over a
// platform answer that does not list it yet.
const pendingGrace = 2 * time.Minute

func NewHandler(dial Dialer, cache Cache, tracker *latest.Tracker, log *slog.Logger) *Handler {
	return &Handler{
		dial:    dial,
		cache:   cache,
		tracker: tracker,
		policy:  bluemonday.StrictPolicy(),
		log:     log,
		now:     time.Now,
	}
}

// syncEnrollment fetches the caller's enrollment and caches it, unless a newer
// fetch for the same course started meanwhile. The platform may not list a
// submission it has only just accepted: with merge set a missing enrollment
// leaves the cache alone, and without it a pending snapshot younger than
// pendingGrace is kept and returned.
func (h *Handler) syncEnrollment(ctx context.Context, p Platform, userID string, courseID courses.RefID, merge bool) (*enrollment.Record, error) {
	fetchCtx, ticket := h.tracker.Begin(ctx, userID+":"+string(courseID))
	defer ticket.Done()

	rec, err := p.GetEnrollment(fetchCtx, courseID)
	if err != nil {
		return nil, err
	}

	applied := ticket.Apply(func() {
		var err error
		switch {
		case rec != nil:
			snap := enrollment.SnapshotOf(userID, courseID, rec)
			err = h.cache.SaveSnapshot(ctx, &snap)
		case !merge:
			var prev *enrollment.Snapshot
			prev, err = h.cache.GetSnapshot(ctx, userID, courseID)
			if err == nil && prev != nil && prev.Status == enrollment.StatusPending &&
				h.now().Sub(prev.UpdatedAt) < pendingGrace {
				rec = prev.Record()
				return
			}
			if err == nil {
				err = h.cache.DeleteSnapshot(ctx, userID, courseID)
			}
		}
		if err != nil {
			h.log.Warn("enrollment cache write failed",
				slog.String("user_id", userID),
				slog.String("course_id", string(courseID)),
				slog.Any("error", err),
			)
		}
	})
	if !applied {
		h.log.Debug("dropped superseded enrollment fetch", slog.String("course_id", string(courseID)))
	}
	return rec, nil
}

func (h *Handler) sanitizeState(st enrollment.State) enrollment.State {
	if st.RejectionReason != "" {
		st.RejectionReason = h.policy.Sanitize(st.RejectionReason)
	}
	return st
}

// unavailable reports whether the platform failed to answer, as opposed to
// answering with a refusal.
func unavailable(err error) bool {
	if errors.Is(err, upstream.ErrLoginRequired) || errors.Is(err, upstream.ErrNotFound) {
		return false
	}
	code := upstream.StatusOf(err)
	return code == 0 || code >= 500
}
