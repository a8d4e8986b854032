package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-center-api/internal/models"
	"github.com/noah-isme/tutoring-center-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/response"
)

// ReportHandler exposes the asynchronous report pipeline over HTTP.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create godoc
// @Summary Queue a performance report for background rendering
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 202 {object} response.Envelope
// @Router /students/{id}/stats/reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	studentID, err := authorizedStudentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))

	job, err := h.reports.Enqueue(c.Request.Context(), studentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// Status godoc
// @Summary Report job status, with a download token once finished
// @Tags Reports
// @Produce json
// @Param id path string true "Report job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	job, err := h.reports.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeJob(c, job); err != nil {
		response.Error(c, err)
		return
	}

	payload := gin.H{"report": job}
	if job.Status == service.ReportStatusDone {
		token, expiresAt, err := h.reports.DownloadToken(job.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		payload["download"] = gin.H{
			"token":     token,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		}
	}
	response.OK(c, payload)
}

// Download godoc
// @Summary Download a finished report using its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, job, err := h.reports.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read report file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filenameOf(job.File)+`"`)
	c.Data(http.StatusOK, job.ContentType, data)
}

func (h *ReportHandler) authorizeJob(c *gin.Context, job *service.ReportJob) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleStudent && claims.StudentID != job.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own reports")
	}
	return nil
}

func filenameOf(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
