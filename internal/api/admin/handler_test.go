package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"enrollment-gateway/internal/app/http/middleware"
	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"
	"enrollment-gateway/internal/infra/upstream"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePlatform struct {
	approveErr error
	approved   []courses.RefID
	rejected   map[courses.RefID]string
	catalogue  []courses.Course
}

func (f *fakePlatform) ApproveEnrollment(_ context.Context, id courses.RefID) (*enrollment.Record, error) {
	f.approved = append(f.approved, id)
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return &enrollment.Record{ID: id, Package: "advanced", AmountPaid: money.FromMajor(250), Status: "approved"}, nil
}

func (f *fakePlatform) RejectEnrollment(_ context.Context, id courses.RefID, reason string) (*enrollment.Record, error) {
	if f.rejected == nil {
		f.rejected = map[courses.RefID]string{}
	}
	f.rejected[id] = reason
	return nil, nil
}

func (f *fakePlatform) ListCourses(context.Context) ([]courses.Course, error) {
	return append([]courses.Course(nil), f.catalogue...), nil
}

type memCatalog struct {
	mu       sync.Mutex
	snaps    map[string]enrollment.Snapshot
	courses  []courses.Course
	saves    int
	failSave int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{snaps: map[string]enrollment.Snapshot{}}
}

func (m *memCatalog) GetSnapshot(_ context.Context, userID string, courseID courses.RefID) (*enrollment.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[userID+"|"+string(courseID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memCatalog) SaveSnapshot(_ context.Context, snap *enrollment.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saves == m.failSave {
		return errors.New("database is gone")
	}
	m.snaps[snap.UserID+"|"+string(snap.CourseID)] = *snap
	return nil
}

func (m *memCatalog) DeleteSnapshot(_ context.Context, userID string, courseID courses.RefID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, userID+"|"+string(courseID))
	return nil
}

func (m *memCatalog) FindSnapshotByEnrollmentID(_ context.Context, id courses.RefID) (*enrollment.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snaps {
		if s.EnrollmentID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) ListCourses(context.Context) ([]courses.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]courses.Course(nil), m.courses...), nil
}

func (m *memCatalog) UpsertCourses(_ context.Context, list []courses.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses = append([]courses.Course(nil), list...)
	return nil
}

func newTestRouter(f *fakePlatform, cat *memCatalog) *gin.Engine {
	h := NewHandler(func(*upstream.Session) Platform { return f }, cat,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.Use(middleware.UpstreamSession(nil))
	admin := r.Group("/admin")
	admin.Use(middleware.SanitizeAndCleanInputMiddleware())
	admin.POST("/enrollments/:id/approve", h.ApproveEnrollment)
	admin.POST("/enrollments/:id/reject", h.RejectEnrollment)
	admin.POST("/sync-courses", h.SyncCourses)
	admin.GET("/courses", h.ListCourses)
	return r
}

func pendingSnapshot() *enrollment.Snapshot {
	return &enrollment.Snapshot{
		UserID:       "u1",
		CourseID:     "c1",
		EnrollmentID: "e1",
		Package:      tiers.Advanced,
		AmountPaid:   money.FromMajor(100),
		Status:       enrollment.StatusPending,
	}
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApproveUpdatesCachedSnapshot(t *testing.T) {
	f := &fakePlatform{}
	cat := newMemCatalog()
	require.NoError(t, cat.SaveSnapshot(context.Background(), pendingSnapshot()))

	w := post(newTestRouter(f, cat), "/admin/enrollments/e1/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []courses.RefID{"e1"}, f.approved)

	snap, _ := cat.GetSnapshot(context.Background(), "u1", "c1")
	require.NotNil(t, snap)
	assert.Equal(t, enrollment.StatusActive, snap.Status)
	assert.Equal(t, money.FromMajor(250), snap.AmountPaid)
}

func TestApproveRollsBackOnFailure(t *testing.T) {
	f := &fakePlatform{approveErr: &upstream.APIError{StatusCode: http.StatusConflict, Message: "already approved"}}
	cat := newMemCatalog()
	require.NoError(t, cat.SaveSnapshot(context.Background(), pendingSnapshot()))

	w := post(newTestRouter(f, cat), "/admin/enrollments/e1/approve", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	snap, _ := cat.GetSnapshot(context.Background(), "u1", "c1")
	require.NotNil(t, snap)
	assert.Equal(t, enrollment.StatusPending, snap.Status)
}

func TestApproveSucceedsWhenCachingAnswerFails(t *testing.T) {
	f := &fakePlatform{}
	cat := newMemCatalog()
	cat.failSave = 3 // setup, optimistic write, then the platform's answer
	require.NoError(t, cat.SaveSnapshot(context.Background(), pendingSnapshot()))

	w := post(newTestRouter(f, cat), "/admin/enrollments/e1/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []courses.RefID{"e1"}, f.approved)
	assert.Contains(t, w.Body.String(), "e1")
}

func TestApproveWithoutCachedSnapshot(t *testing.T) {
	f := &fakePlatform{}
	w := post(newTestRouter(f, newMemCatalog()), "/admin/enrollments/e7/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []courses.RefID{"e7"}, f.approved)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
}

func TestRejectSanitizesReason(t *testing.T) {
	f := &fakePlatform{}
	cat := newMemCatalog()
	require.NoError(t, cat.SaveSnapshot(context.Background(), pendingSnapshot()))

	w := post(newTestRouter(f, cat), "/admin/enrollments/e1/reject", `{"reason":"<img src=x onerror=alert(1)>Amount does not match"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Amount does not match", f.rejected["e1"])

	snap, _ := cat.GetSnapshot(context.Background(), "u1", "c1")
	require.NotNil(t, snap)
	assert.Equal(t, enrollment.StatusRejected, snap.Status)
	require.NotNil(t, snap.RejectionReason)
	assert.Equal(t, "Amount does not match", *snap.RejectionReason)
}

func TestRejectRequiresReason(t *testing.T) {
	f := &fakePlatform{}
	r := newTestRouter(f, newMemCatalog())

	assert.Equal(t, http.StatusBadRequest, post(r, "/admin/enrollments/e1/reject", `{"reason":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/admin/enrollments/e1/reject", `{"reason":"<b></b>"}`).Code)
	assert.Empty(t, f.rejected)
}

func TestSyncCoursesKeepsUnlistedCourses(t *testing.T) {
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cat := newMemCatalog()
	cat.courses = []courses.Course{
		{ID: "c1", Title: "Old title", SyncedAt: old},
		{ID: "c2", Title: "Retired", SyncedAt: old},
	}
	f := &fakePlatform{catalogue: []courses.Course{
		{ID: "c1", Title: "New title"},
		{ID: "c3", Title: "Brand new"},
		{Title: "no id"},
	}}

	w := post(newTestRouter(f, cat), "/admin/sync-courses", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body["created"])
	assert.Equal(t, 1, body["updated"])
	assert.Equal(t, 1, body["skipped"])
	assert.Equal(t, 3, body["total"])

	require.Len(t, cat.courses, 3)
	assert.Equal(t, "New title", cat.courses[0].Title)
	assert.True(t, cat.courses[0].SyncedAt.After(old))
	assert.Equal(t, "Retired", cat.courses[1].Title)
	assert.Equal(t, old, cat.courses[1].SyncedAt)
	assert.Equal(t, courses.RefID("c3"), cat.courses[2].ID)

	w = httptest.NewRecorder()
	newTestRouter(f, cat).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/courses", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"synced_at"`)
}
