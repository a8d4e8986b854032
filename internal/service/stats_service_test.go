package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-center-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
	"github.com/noah-isme/tutoring-center-api/pkg/timeutil"
)

type fakeStatsRepo struct {
	student   *models.Student
	groups    []string
	history   []models.AttendanceRecord
	schedules map[string][]models.ClassSchedule
	tests     []models.TestResultRecord
	writtens  []models.WrittenWorkResultRecord
	debt      float64
	err       error
}

func (f *fakeStatsRepo) Student(context.Context, string) (*models.Student, error) {
	return f.student, f.err
}

func (f *fakeStatsRepo) ActiveGroupIDs(context.Context, string) ([]string, error) {
	return f.groups, f.err
}

func (f *fakeStatsRepo) AttendanceHistory(context.Context, string) ([]models.AttendanceRecord, error) {
	return f.history, f.err
}

func (f *fakeStatsRepo) SchedulesOn(_ context.Context, _ []string, day time.Time) ([]models.ClassSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.schedules[timeutil.DayKey(day)], nil
}

func (f *fakeStatsRepo) TestResults(context.Context, string) ([]models.TestResultRecord, error) {
	return f.tests, f.err
}

func (f *fakeStatsRepo) WrittenWorkResults(context.Context, string) ([]models.WrittenWorkResultRecord, error) {
	return f.writtens, f.err
}

func (f *fakeStatsRepo) OutstandingDebt(context.Context, string) (float64, error) {
	return f.debt, f.err
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.store == nil {
		s.store = map[string][]byte{}
	}
	s.store[key] = raw
	return nil
}

func snapshotFixtureRepo() *fakeStatsRepo {
	today := dayAt(2024, 5, 14)
	february := dayAt(2024, 2, 10)

	scheduleToday := models.ClassSchedule{ID: "sch-today", GroupID: "grp-1", Date: today, Times: []string{"15:00"}}

	recToday := models.AttendanceRecord{
		Attendance: models.Attendance{
			ID: "att-today", StudentID: "stu-1", GroupID: "grp-1",
			ClassScheduleID: strPtr("sch-today"), Date: today, IsPresent: true,
			ArrivalTime: timePtr(today.Add(16*time.Hour + 30*time.Minute)),
		},
		Schedule: &scheduleToday,
	}
	recFebruary := models.AttendanceRecord{
		Attendance: models.Attendance{
			ID: "att-feb", StudentID: "stu-1", GroupID: "grp-1",
			ClassScheduleID: strPtr("sch-feb"), Date: february, IsPresent: true,
		},
		Schedule: &models.ClassSchedule{ID: "sch-feb", GroupID: "grp-1", Date: february, Times: []string{"15:00"}},
	}

	homework := homeworkResult("hw", 10, 20, nil)
	homework.CreatedAt = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	homework.Test.Date = dayAt(2024, 3, 5)

	dailyAttended := testResult("attended", models.TestTypeDaily, 15, 20, strPtr("sch-feb"))
	dailyAttended.CreatedAt = time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC)
	dailyAttended.Test.Date = february

	dailyMissed := testResult("missed", models.TestTypeDaily, 20, 20, strPtr("sch-missed"))
	dailyMissed.CreatedAt = time.Date(2024, 2, 12, 18, 0, 0, 0, time.UTC)
	dailyMissed.Test.Date = dayAt(2024, 2, 12)

	written := writtenResult("essay", floatPtr(80), time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), dayAt(2024, 4, 1))

	return &fakeStatsRepo{
		student: &models.Student{
			ID: "stu-1", FullName: "Aliya T", Level: 3, TotalScore: 1500,
			MasteryLevel: 68, CreatedAt: dayAt(2024, 1, 1),
		},
		groups:  []string{"grp-1"},
		history: []models.AttendanceRecord{recToday, recFebruary},
		schedules: map[string][]models.ClassSchedule{
			"2024-05-14": {scheduleToday},
		},
		tests:    []models.TestResultRecord{homework, dailyAttended, dailyMissed},
		writtens: []models.WrittenWorkResultRecord{written},
		debt:     120.5,
	}
}

func newTestStatsService(repo StatsRepository, cacheRepo CacheRepository) *StatsService {
	var cacheSvc *CacheService
	if cacheRepo != nil {
		cacheSvc = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	svc := NewStatsService(StatsServiceParams{
		Repo:   repo,
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2024, 5, 14, 20, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudentSnapshotComposesHeadlineMetrics(t *testing.T) {
	svc := newTestStatsService(snapshotFixtureRepo(), nil)

	snapshot, cacheHit, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)

	// 16:30 arrival into a 15:00-18:00 window decays to 50.
	assert.Equal(t, 50, snapshot.AttendanceRate)
	// Only the attended pinned daily test counts: 15/20.
	assert.Equal(t, 75, snapshot.ClassMastery)
	assert.Equal(t, 50, snapshot.AssignmentRate)
	assert.Equal(t, 80, snapshot.WeeklyWrittenRate)

	assert.Equal(t, 3, snapshot.Level)
	assert.Equal(t, 1500, snapshot.TotalScore)
	assert.Equal(t, 68, snapshot.MasteryLevel)
	assert.Equal(t, 120.5, snapshot.Debt)
	assert.Equal(t, "2024-02-10", snapshot.EnrollmentDate)
}

func TestStudentSnapshotHistorySeries(t *testing.T) {
	svc := newTestStatsService(snapshotFixtureRepo(), nil)

	snapshot, _, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)

	february := bucketByLabel(t, snapshot.YearlyData, "2024-02")
	// History skips the attendance gate: both daily tests count, 35/40.
	assert.Equal(t, 88, february.ClassMastery)
	assert.Equal(t, 1, february.Present)

	april := bucketByLabel(t, snapshot.YearlyData, "2024-04")
	assert.Equal(t, 80, april.WeeklyWrittenRate)

	require.Len(t, snapshot.DailyData, 1)
	assert.Equal(t, "2024-05-14", snapshot.DailyData[0].BucketLabel)
	assert.Equal(t, 100, snapshot.DailyData[0].Rate)

	today := bucketByLabel(t, snapshot.MonthlyData, "2024-05-14")
	assert.Equal(t, 1, today.Present)

	require.Len(t, snapshot.RecentResults, 4)
	assert.Equal(t, "written_work", snapshot.RecentResults[0].Type)
}

func TestStudentSnapshotWrittenMasteryIgnoresAttendance(t *testing.T) {
	repo := snapshotFixtureRepo()
	svc := newTestStatsService(repo, nil)
	before, _, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)

	for i := range repo.history {
		repo.history[i].IsPresent = false
	}
	after, _, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)

	assert.Equal(t, before.WeeklyWrittenRate, after.WeeklyWrittenRate)
	assert.NotEqual(t, before.ClassMastery, after.ClassMastery)
}

func TestStudentSnapshotCaches(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	svc := newTestStatsService(snapshotFixtureRepo(), cacheRepo)

	first, cacheHit, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)

	second, cacheHit, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, first, second)
}

func TestStudentSnapshotUnknownStudent(t *testing.T) {
	svc := newTestStatsService(&fakeStatsRepo{}, nil)

	_, _, err := svc.StudentSnapshot(context.Background(), "stu-missing")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentSnapshotStoreFailureIsUnavailable(t *testing.T) {
	repo := snapshotFixtureRepo()
	repo.err = errors.New("connection refused")
	svc := newTestStatsService(repo, nil)

	_, _, err := svc.StudentSnapshot(context.Background(), "stu-1")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Status, appErr.Status)
}

func TestStudentSnapshotRequiresID(t *testing.T) {
	svc := newTestStatsService(&fakeStatsRepo{}, nil)

	_, _, err := svc.StudentSnapshot(context.Background(), "")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentSnapshotNoEnrollmentsDefaults(t *testing.T) {
	repo := snapshotFixtureRepo()
	repo.groups = nil
	svc := newTestStatsService(repo, nil)

	snapshot, _, err := svc.StudentSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.AttendanceRate)
	assert.Equal(t, 0, snapshot.ClassMastery)
	assert.Equal(t, 0, snapshot.AssignmentRate)
	assert.Equal(t, 0, snapshot.WeeklyWrittenRate)
}
