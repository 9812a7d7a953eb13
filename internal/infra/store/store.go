package store

import (
	"context"
	"time"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store caches the course catalogue and per-user enrollment snapshots.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetSnapshot returns nil when nothing is cached for the pair.
func (s *Store) GetSnapshot(ctx context.Context, userID string, courseID courses.RefID) (*enrollment.Snapshot, error) {
	var snap enrollment.Snapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	return &snap, nil
}

func (s *Store) FindSnapshotByEnrollmentID(ctx context.Context, enrollmentID courses.RefID) (*enrollment.Snapshot, error) {
	var snap enrollment.Snapshot
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("updated_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot by enrollment")
	}
	return &snap, nil
}

// SaveSnapshot upserts on (user_id, course_id).
func (s *Store) SaveSnapshot(ctx context.Context, snap *enrollment.Snapshot) error {
	snap.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"enrollment_id", "enrolled", "package", "amount_paid", "status", "rejection_reason", "updated_at",
			}),
		}).
		Create(snap).Error
	return errors.Wrap(err, "save snapshot")
}

func (s *Store) DeleteSnapshot(ctx context.Context, userID string, courseID courses.RefID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&enrollment.Snapshot{}).Error
	return errors.Wrap(err, "delete snapshot")
}

func (s *Store) ListSnapshots(ctx context.Context, userID string) ([]enrollment.Snapshot, error) {
	var snaps []enrollment.Snapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&snaps).Error
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	return snaps, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]courses.Course, error) {
	var list []courses.Course
	if err := s.db.WithContext(ctx).Order("title ASC").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "list courses")
	}
	return list, nil
}

// GetCourse returns nil when the course was never synced.
func (s *Store) GetCourse(ctx context.Context, id courses.RefID) (*courses.Course, error) {
	var c courses.Course
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load course")
	}
	return &c, nil
}

// UpsertCourses writes the whole batch in one transaction.
func (s *Store) UpsertCourses(ctx context.Context, list []courses.Course) error {
	if len(list) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).CreateInBatches(list, 100).Error
	})
	return errors.Wrap(err, "upsert courses")
}
