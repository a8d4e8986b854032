package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/export"
)

type snapshotProvider interface {
	StudentSnapshot(ctx context.Context, studentID string) (*dto.StudentSnapshotResponse, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportRequest describes one snapshot export.
type ExportRequest struct {
	StudentID string `validate:"required"`
	Format    string `validate:"required,oneof=csv pdf"`
}

// ExportResult carries the rendered document.
type ExportResult struct {
	ContentType string
	Filename    string
	Data        []byte
}

// ExportService renders a student snapshot's history and recent results as a
// downloadable document.
type ExportService struct {
	stats     snapshotProvider
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stats snapshotProvider, validate *validator.Validate, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{stats: stats, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Generate computes the snapshot and renders it in the requested format.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	snapshot, _, err := s.stats.StudentSnapshot(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	dataset := snapshotDataset(snapshot)
	switch req.Format {
	case "pdf":
		data, err := s.pdf.Render(dataset, fmt.Sprintf("performance report %s", req.StudentID))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return &ExportResult{
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("performance-%s.pdf", req.StudentID),
			Data:        data,
		}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return &ExportResult{
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("performance-%s.csv", req.StudentID),
			Data:        data,
		}, nil
	}
}

func snapshotDataset(snapshot *dto.StudentSnapshotResponse) export.Dataset {
	headers := []string{"section", "bucket", "present", "absent", "rate", "classMastery", "assignmentRate", "weeklyWrittenRate"}
	rows := make([]map[string]string, 0, 1+len(snapshot.YearlyData)+len(snapshot.MonthlyData)+len(snapshot.DailyData))

	rows = append(rows, map[string]string{
		"section":           "headline",
		"bucket":            snapshot.EnrollmentDate,
		"present":           "",
		"absent":            "",
		"rate":              strconv.Itoa(snapshot.AttendanceRate),
		"classMastery":      strconv.Itoa(snapshot.ClassMastery),
		"assignmentRate":    strconv.Itoa(snapshot.AssignmentRate),
		"weeklyWrittenRate": strconv.Itoa(snapshot.WeeklyWrittenRate),
	})

	appendSeries := func(section string, buckets []dto.HistoryBucket) {
		for _, bucket := range buckets {
			rows = append(rows, map[string]string{
				"section":           section,
				"bucket":            bucket.BucketLabel,
				"present":           strconv.Itoa(bucket.Present),
				"absent":            strconv.Itoa(bucket.Absent),
				"rate":              strconv.Itoa(bucket.Rate),
				"classMastery":      strconv.Itoa(bucket.ClassMastery),
				"assignmentRate":    strconv.Itoa(bucket.AssignmentRate),
				"weeklyWrittenRate": strconv.Itoa(bucket.WeeklyWrittenRate),
			})
		}
	}
	appendSeries("yearly", snapshot.YearlyData)
	appendSeries("monthly", snapshot.MonthlyData)
	appendSeries("daily", snapshot.DailyData)

	return export.Dataset{Headers: headers, Rows: rows}
}
