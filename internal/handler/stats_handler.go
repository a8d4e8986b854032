package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	"github.com/noah-isme/tutoring-center-api/internal/middleware"
	"github.com/noah-isme/tutoring-center-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/response"
)

type statsService interface {
	StudentSnapshot(ctx context.Context, studentID string) (*dto.StudentSnapshotResponse, bool, error)
}

type exportService interface {
	Generate(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
}

// StatsHandler wires the performance snapshot engine to HTTP endpoints.
type StatsHandler struct {
	stats  statsService
	export exportService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(stats statsService, export exportService) *StatsHandler {
	return &StatsHandler{stats: stats, export: export}
}

// Snapshot godoc
// @Summary Student performance snapshot
// @Tags Stats
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/stats [get]
func (h *StatsHandler) Snapshot(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID, err := authorizedStudentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	snapshot, cacheHit, err := h.stats.StudentSnapshot(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, snapshot, meta)
}

// Export godoc
// @Summary Download a student's performance report
// @Tags Stats
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /students/{id}/stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID, err := authorizedStudentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))

	result, err := h.export.Generate(c.Request.Context(), service.ExportRequest{
		StudentID: studentID,
		Format:    format,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
