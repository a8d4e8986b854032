package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/jobs"
	"github.com/noah-isme/tutoring-center-api/pkg/storage"
)

// Report job lifecycle states.
const (
	ReportStatusQueued     = "queued"
	ReportStatusProcessing = "processing"
	ReportStatusDone       = "done"
	ReportStatusFailed     = "failed"
)

type reportExporter interface {
	Generate(ctx context.Context, req ExportRequest) (*ExportResult, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportJob tracks one asynchronous report request.
type ReportJob struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	File        string     `json:"-"`
	ContentType string     `json:"-"`
	Error       string     `json:"error,omitempty"`
	RequestedAt time.Time  `json:"requestedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ReportService generates snapshot reports in the background. Requests are
// queued, rendered by a worker pool and stored on disk; finished documents
// are fetched through short-lived signed tokens instead of a second JWT
// round trip.
type ReportService struct {
	exporter  reportExporter
	store     reportStore
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	logger    *zap.Logger
	retention time.Duration

	mu       sync.RWMutex
	jobsByID map[string]*ReportJob
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Exporter  reportExporter
	Store     reportStore
	Signer    *storage.SignedURLSigner
	Logger    *zap.Logger
	Workers   int
	Retention time.Duration
}

// NewReportService constructs a ReportService with its worker queue.
func NewReportService(params ReportServiceParams) *ReportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := params.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	s := &ReportService{
		exporter:  params.Exporter,
		store:     params.Store,
		signer:    params.Signer,
		logger:    logger,
		retention: retention,
		jobsByID:  make(map[string]*ReportJob),
	}
	s.queue = jobs.NewQueue("reports", s.process, jobs.QueueConfig{
		Workers: params.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the worker pool.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers a new report request and schedules it for rendering.
func (s *ReportService) Enqueue(_ context.Context, studentID, format string) (*ReportJob, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &ReportJob{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Format:      format,
		Status:      ReportStatusQueued,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobsByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
		s.mu.Lock()
		delete(s.jobsByID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "report queue unavailable")
	}
	return s.snapshotJob(job.ID), nil
}

// Status returns the current state of a report job.
func (s *ReportService) Status(jobID string) (*ReportJob, error) {
	job := s.snapshotJob(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return job, nil
}

// DownloadToken issues a signed token for a finished report.
func (s *ReportService) DownloadToken(jobID string) (string, time.Time, error) {
	job := s.snapshotJob(jobID)
	if job == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if job.Status != ReportStatusDone {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("report is %s", job.Status))
	}
	token, expiresAt, err := s.signer.Generate(job.ID, job.File)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download token")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a download token and opens the stored document.
func (s *ReportService) OpenByToken(token string) (*os.File, *ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	job := s.snapshotJob(jobID)
	if job == nil || job.File != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file missing")
	}
	return file, job, nil
}

// Cleanup drops expired report files and forgets their jobs.
func (s *ReportService) Cleanup() error {
	deleted, err := s.store.CleanupOlderThan(s.retention)
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		return nil
	}
	removed := make(map[string]struct{}, len(deleted))
	for _, name := range deleted {
		removed[name] = struct{}{}
	}
	s.mu.Lock()
	for id, job := range s.jobsByID {
		if _, gone := removed[job.File]; gone {
			delete(s.jobsByID, id)
		}
	}
	s.mu.Unlock()
	s.logger.Info("expired reports removed", zap.Int("count", len(deleted)))
	return nil
}

func (s *ReportService) process(ctx context.Context, queued jobs.Job) error {
	s.setStatus(queued.ID, ReportStatusProcessing, "")

	job := s.snapshotJob(queued.ID)
	if job == nil {
		return fmt.Errorf("report job %s unknown", queued.ID)
	}

	result, err := s.exporter.Generate(ctx, ExportRequest{StudentID: job.StudentID, Format: job.Format})
	if err != nil {
		s.setStatus(queued.ID, ReportStatusFailed, err.Error())
		return fmt.Errorf("render report %s: %w", queued.ID, err)
	}

	filename := fmt.Sprintf("%s/%s", job.StudentID, result.Filename)
	if _, err := s.store.Save(filename, result.Data); err != nil {
		s.setStatus(queued.ID, ReportStatusFailed, err.Error())
		return fmt.Errorf("store report %s: %w", queued.ID, err)
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if tracked, ok := s.jobsByID[queued.ID]; ok {
		tracked.Status = ReportStatusDone
		tracked.File = filename
		tracked.ContentType = result.ContentType
		tracked.Error = ""
		tracked.CompletedAt = &now
	}
	s.mu.Unlock()
	return nil
}

func (s *ReportService) setStatus(jobID, status, errMsg string) {
	s.mu.Lock()
	if job, ok := s.jobsByID[jobID]; ok {
		job.Status = status
		job.Error = errMsg
		if status == ReportStatusFailed {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}
	}
	s.mu.Unlock()
}

func (s *ReportService) snapshotJob(jobID string) *ReportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobsByID[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}
