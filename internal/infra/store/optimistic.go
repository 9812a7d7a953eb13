package store

import (
	"context"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"

	"github.com/pkg/errors"
)

// ErrCacheWrite means the remote call succeeded but its answer could not be
// cached. Optimistic still returns the answer alongside it.
var ErrCacheWrite = errors.New("store: cache write failed after remote call")

type SnapshotStore interface {
	GetSnapshot(ctx context.Context, userID string, courseID courses.RefID) (*enrollment.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *enrollment.Snapshot) error
	DeleteSnapshot(ctx context.Context, userID string, courseID courses.RefID) error
}

// Optimistic stores next before call runs. When call succeeds its record
// replaces next (a nil record means the server accepted next as is); when it
// fails the previous snapshot is put back, or next is removed if there was none.
func Optimistic(
	ctx context.Context,
	st SnapshotStore,
	next enrollment.Snapshot,
	call func(ctx context.Context) (*enrollment.Record, error),
) (*enrollment.Snapshot, error) {
	prev, err := st.GetSnapshot(ctx, next.UserID, next.CourseID)
	if err != nil {
		return nil, err
	}
	if err := st.SaveSnapshot(ctx, &next); err != nil {
		return nil, err
	}

	rec, callErr := call(ctx)
	if callErr != nil {
		if rbErr := rollback(context.WithoutCancel(ctx), st, prev, next); rbErr != nil {
			return nil, errors.Wrapf(callErr, "rollback failed (%v)", rbErr)
		}
		return nil, callErr
	}

	final := next
	if rec != nil {
		final = enrollment.SnapshotOf(next.UserID, next.CourseID, rec)
		final.ID = next.ID
		if final.EnrollmentID == "" {
			final.EnrollmentID = next.EnrollmentID
		}
	}
	if err := st.SaveSnapshot(ctx, &final); err != nil {
		return &final, errors.Wrapf(ErrCacheWrite, "%v", err)
	}
	return &final, nil
}

func rollback(ctx context.Context, st SnapshotStore, prev *enrollment.Snapshot, next enrollment.Snapshot) error {
	if prev == nil {
		return st.DeleteSnapshot(ctx, next.UserID, next.CourseID)
	}
	restored := *prev
	return st.SaveSnapshot(ctx, &restored)
}
