package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	"github.com/noah-isme/tutoring-center-api/internal/middleware"
	"github.com/noah-isme/tutoring-center-api/internal/models"
	"github.com/noah-isme/tutoring-center-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
)

type fakeStatsService struct {
	snapshot *dto.StudentSnapshotResponse
	cacheHit bool
	err      error
	gotID    string
}

func (f *fakeStatsService) StudentSnapshot(_ context.Context, studentID string) (*dto.StudentSnapshotResponse, bool, error) {
	f.gotID = studentID
	return f.snapshot, f.cacheHit, f.err
}

type fakeExportService struct {
	result *service.ExportResult
	err    error
	gotReq service.ExportRequest
}

func (f *fakeExportService) Generate(_ context.Context, req service.ExportRequest) (*service.ExportResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func newStatsRouter(h *StatsHandler, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	router.GET("/students/:id/stats", h.Snapshot)
	router.GET("/students/:id/stats/export", h.Export)
	return router
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "usr-1", Role: models.RoleAdmin}
}

func TestSnapshotReturnsEnvelope(t *testing.T) {
	stats := &fakeStatsService{
		snapshot: &dto.StudentSnapshotResponse{AttendanceRate: 90, ClassMastery: 75},
		cacheHit: true,
	}
	router := newStatsRouter(NewStatsHandler(stats, nil), adminClaims())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", stats.gotID)

	var body struct {
		Data dto.StudentSnapshotResponse `json:"data"`
		Meta map[string]interface{}      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 90, body.Data.AttendanceRate)
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Contains(t, body.Meta, "processing_time_ms")
}

func TestSnapshotRequiresClaims(t *testing.T) {
	stats := &fakeStatsService{snapshot: &dto.StudentSnapshotResponse{}}
	router := newStatsRouter(NewStatsHandler(stats, nil), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, stats.gotID)
}

func TestSnapshotStudentReadsOwnStatsOnly(t *testing.T) {
	stats := &fakeStatsService{snapshot: &dto.StudentSnapshotResponse{}}
	claims := &models.JWTClaims{UserID: "usr-2", Role: models.RoleStudent, StudentID: "stu-1"}
	router := newStatsRouter(NewStatsHandler(stats, nil), claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/students/stu-other/stats", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSnapshotMapsServiceErrors(t *testing.T) {
	stats := &fakeStatsService{err: appErrors.Clone(appErrors.ErrServiceUnavailable, "load attendance")}
	router := newStatsRouter(NewStatsHandler(stats, nil), adminClaims())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, body.Error.Code)
}

func TestExportStreamsDocument(t *testing.T) {
	export := &fakeExportService{
		result: &service.ExportResult{
			ContentType: "text/csv",
			Filename:    "performance-stu-1.csv",
			Data:        []byte("section,bucket\n"),
		},
	}
	router := newStatsRouter(NewStatsHandler(&fakeStatsService{}, export), adminClaims())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats/export?format=CSV", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportRequest{StudentID: "stu-1", Format: "csv"}, export.gotReq)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "performance-stu-1.csv")
	assert.Equal(t, "section,bucket\n", w.Body.String())
}

func TestExportDefaultsToCSV(t *testing.T) {
	export := &fakeExportService{result: &service.ExportResult{ContentType: "text/csv", Filename: "x.csv"}}
	router := newStatsRouter(NewStatsHandler(&fakeStatsService{}, export), adminClaims())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/stats/export", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", export.gotReq.Format)
}
