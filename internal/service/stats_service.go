package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	"github.com/noah-isme/tutoring-center-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/timeutil"
)

// StatsRepository describes the persistence layer required by StatsService.
// All reads happen fresh per request; the engine holds no state between
// invocations.
type StatsRepository interface {
	Student(ctx context.Context, studentID string) (*models.Student, error)
	ActiveGroupIDs(ctx context.Context, studentID string) ([]string, error)
	AttendanceHistory(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	SchedulesOn(ctx context.Context, groupIDs []string, day time.Time) ([]models.ClassSchedule, error)
	TestResults(ctx context.Context, studentID string) ([]models.TestResultRecord, error)
	WrittenWorkResults(ctx context.Context, studentID string) ([]models.WrittenWorkResultRecord, error)
	OutstandingDebt(ctx context.Context, studentID string) (float64, error)
}

// StatsServiceConfig tunes snapshot computation.
type StatsServiceConfig struct {
	ClassDuration     time.Duration
	RecentResultLimit int
	MonthlyWindowDays int
	CacheTTL          time.Duration
}

// StatsService computes student performance snapshots: the four headline
// metrics, three time-bucketed history series and the recent results feed.
type StatsService struct {
	repo    StatsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     StatsServiceConfig
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Repo    StatsRepository
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  StatsServiceConfig
}

// NewStatsService constructs a StatsService with sane defaults.
func NewStatsService(params StatsServiceParams) *StatsService {
	cfg := params.Config
	if cfg.ClassDuration <= 0 {
		cfg.ClassDuration = 3 * time.Hour
	}
	if cfg.RecentResultLimit <= 0 {
		cfg.RecentResultLimit = defaultRecentResultLimit
	}
	if cfg.MonthlyWindowDays <= 0 {
		cfg.MonthlyWindowDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// StudentSnapshot returns the performance snapshot for one student. The
// boolean indicates whether the payload originated from cache.
func (s *StatsService) StudentSnapshot(ctx context.Context, studentID string) (*dto.StudentSnapshotResponse, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}

	now := s.now().UTC()
	cacheKey := fmt.Sprintf("stats:student:%s:%s", studentID, timeutil.DayKey(now))
	if s.cache != nil {
		var cached dto.StudentSnapshotResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	snapshot, err := s.compose(ctx, studentID, now)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSnapshot(time.Since(start))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, snapshot, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return snapshot, false, nil
}

// compose performs the single fetch-and-aggregate pass. Any store failure
// fails the whole snapshot; partial results are never returned.
func (s *StatsService) compose(ctx context.Context, studentID string, now time.Time) (*dto.StudentSnapshotResponse, error) {
	student, err := s.fetchStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	groupIDs, err := timedFetch(s.metrics, "active_enrollments", func() ([]string, error) {
		return s.repo.ActiveGroupIDs(ctx, studentID)
	})
	if err != nil {
		return nil, storeError(err, "load enrollments")
	}
	activeGroups := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		activeGroups[id] = struct{}{}
	}

	history, err := timedFetch(s.metrics, "attendance_history", func() ([]models.AttendanceRecord, error) {
		return s.repo.AttendanceHistory(ctx, studentID)
	})
	if err != nil {
		return nil, storeError(err, "load attendance")
	}
	tests, err := timedFetch(s.metrics, "test_results", func() ([]models.TestResultRecord, error) {
		return s.repo.TestResults(ctx, studentID)
	})
	if err != nil {
		return nil, storeError(err, "load test results")
	}
	writtens, err := timedFetch(s.metrics, "written_work_results", func() ([]models.WrittenWorkResultRecord, error) {
		return s.repo.WrittenWorkResults(ctx, studentID)
	})
	if err != nil {
		return nil, storeError(err, "load written work results")
	}

	today := timeutil.StartOfDay(now)
	yesterday := timeutil.DaysAgo(now, 1)
	schedulesToday, err := s.repo.SchedulesOn(ctx, groupIDs, today)
	if err != nil {
		return nil, storeError(err, "load today's schedules")
	}
	schedulesYesterday, err := s.repo.SchedulesOn(ctx, groupIDs, yesterday)
	if err != nil {
		return nil, storeError(err, "load yesterday's schedules")
	}

	debt, err := s.repo.OutstandingDebt(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "load payments")
	}

	attendance := resolveAttendance(history, schedulesToday, schedulesYesterday, activeGroups, now, s.cfg.ClassDuration)
	enrollmentDate := resolveEnrollmentDate(history, student.CreatedAt)

	yearly := buildHistorySeries(history, tests, writtens, seriesWindow{
		from: timeutil.StartOfDay(enrollmentDate),
		to:   today,
		key:  timeutil.MonthKey,
	})
	monthly := buildHistorySeries(history, tests, writtens, seriesWindow{
		from: timeutil.DaysAgo(now, s.cfg.MonthlyWindowDays-1),
		to:   today,
		key:  timeutil.DayKey,
	})
	daily := buildHistorySeries(history, tests, writtens, seriesWindow{
		from: today,
		to:   today,
		key:  timeutil.DayKey,
	})

	return &dto.StudentSnapshotResponse{
		AttendanceRate:    attendance.rate,
		ClassMastery:      testMasteryRate(tests, models.TestTypeDaily, activeGroups, attendance.attended),
		AssignmentRate:    testMasteryRate(tests, models.TestTypeHomework, activeGroups, attendance.attended),
		WeeklyWrittenRate: latestWrittenMastery(writtens, activeGroups),
		Level:             student.Level,
		TotalScore:        student.TotalScore,
		MasteryLevel:      student.MasteryLevel,
		Debt:              debt,
		EnrollmentDate:    timeutil.DayKey(enrollmentDate),
		YearlyData:        yearly,
		MonthlyData:       monthly,
		DailyData:         daily,
		RecentResults:     buildRecentResults(tests, writtens, s.cfg.RecentResultLimit),
	}, nil
}

func (s *StatsService) fetchStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.repo.Student(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// timedFetch wraps a repository fetch with query duration instrumentation.
func timedFetch[T any](metrics *MetricsService, label string, fetch func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fetch()
	if metrics != nil {
		metrics.ObserveDBQuery(label, time.Since(start))
	}
	return result, err
}

// resolveEnrollmentDate is the earliest attendance date, or the account
// creation date when no attendance exists yet.
func resolveEnrollmentDate(history []models.AttendanceRecord, createdAt time.Time) time.Time {
	earliest := time.Time{}
	for _, rec := range history {
		if earliest.IsZero() || rec.Date.Before(earliest) {
			earliest = rec.Date
		}
	}
	if earliest.IsZero() {
		return createdAt
	}
	return earliest
}

func storeError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, msg)
}
