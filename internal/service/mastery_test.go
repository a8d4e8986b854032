package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutoring-center-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func homeworkResult(id string, correct, total int, scheduleID *string) models.TestResultRecord {
	return testResult(id, models.TestTypeHomework, correct, total, scheduleID)
}

func testResult(id string, testType models.TestType, correct, total int, scheduleID *string) models.TestResultRecord {
	return models.TestResultRecord{
		TestResult: models.TestResult{
			ID:             id,
			TestID:         "test-" + id,
			StudentID:      "stu-1",
			CorrectAnswers: correct,
			CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Test: models.Test{
			ID:              "test-" + id,
			GroupID:         "grp-1",
			ClassScheduleID: scheduleID,
			Date:            dayAt(2024, 3, 1),
			Type:            testType,
			TotalQuestions:  total,
			Title:           "quiz " + id,
		},
		GroupName: "Group One",
	}
}

func writtenResult(id string, mastery *float64, createdAt, workDate time.Time) models.WrittenWorkResultRecord {
	return models.WrittenWorkResultRecord{
		WrittenWorkResult: models.WrittenWorkResult{
			ID:            id,
			WrittenWorkID: "work-" + id,
			StudentID:     "stu-1",
			MasteryLevel:  mastery,
			CreatedAt:     createdAt,
		},
		Work: models.WrittenWork{
			ID:             "work-" + id,
			GroupID:        "grp-1",
			Date:           workDate,
			TotalQuestions: 30,
			Title:          "essay " + id,
		},
		GroupName: "Group One",
	}
}

var activeGroupOne = map[string]struct{}{"grp-1": {}}

func TestTestMasteryRateSumsAcrossUnscheduledTests(t *testing.T) {
	results := []models.TestResultRecord{
		homeworkResult("a", 10, 20, nil),
		homeworkResult("b", 15, 20, nil),
	}

	rate := testMasteryRate(results, models.TestTypeHomework, activeGroupOne, nil)
	assert.Equal(t, 63, rate)
}

func TestTestMasteryRateEmptyDenominatorIsZero(t *testing.T) {
	assert.Equal(t, 0, testMasteryRate(nil, models.TestTypeHomework, activeGroupOne, nil))

	zeroQuestions := []models.TestResultRecord{homeworkResult("a", 0, 0, nil)}
	assert.Equal(t, 0, testMasteryRate(zeroQuestions, models.TestTypeHomework, activeGroupOne, nil))
}

func TestTestMasteryRateFiltersByType(t *testing.T) {
	results := []models.TestResultRecord{
		homeworkResult("hw", 5, 10, nil),
		testResult("daily", models.TestTypeDaily, 9, 10, nil),
	}

	assert.Equal(t, 50, testMasteryRate(results, models.TestTypeHomework, activeGroupOne, nil))
	assert.Equal(t, 90, testMasteryRate(results, models.TestTypeDaily, activeGroupOne, nil))
}

func TestTestMasteryRateGatesPinnedTestsByAttendance(t *testing.T) {
	results := []models.TestResultRecord{
		homeworkResult("attended", 10, 10, strPtr("sch-1")),
		homeworkResult("missed", 0, 10, strPtr("sch-2")),
		homeworkResult("unpinned", 5, 10, nil),
	}
	attended := map[string]struct{}{"sch-1": {}}

	// 15 correct over 20 questions: the missed occurrence is excluded,
	// the unpinned test always counts.
	assert.Equal(t, 75, testMasteryRate(results, models.TestTypeHomework, activeGroupOne, attended))
}

func TestTestMasteryRateIgnoresInactiveGroups(t *testing.T) {
	foreign := homeworkResult("x", 10, 10, nil)
	foreign.Test.GroupID = "grp-historic"

	assert.Equal(t, 0, testMasteryRate([]models.TestResultRecord{foreign}, models.TestTypeHomework, activeGroupOne, nil))
}

func TestLatestWrittenMasteryPicksMostRecent(t *testing.T) {
	results := []models.WrittenWorkResultRecord{
		writtenResult("old", floatPtr(40), time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 1, 1)),
		writtenResult("new", floatPtr(75), time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 2, 1)),
	}

	assert.Equal(t, 75, latestWrittenMastery(results, activeGroupOne))
}

func TestLatestWrittenMasteryMonotoneUnderNewerInsert(t *testing.T) {
	results := []models.WrittenWorkResultRecord{
		writtenResult("a", floatPtr(90), time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 1, 1)),
	}
	assert.Equal(t, 90, latestWrittenMastery(results, activeGroupOne))

	results = append(results, writtenResult("b", floatPtr(55), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 3, 1)))
	assert.Equal(t, 55, latestWrittenMastery(results, activeGroupOne))
}

func TestLatestWrittenMasteryTieBreaksOnWorkDate(t *testing.T) {
	createdAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	results := []models.WrittenWorkResultRecord{
		writtenResult("earlier-work", floatPtr(30), createdAt, dayAt(2024, 1, 20)),
		writtenResult("later-work", floatPtr(60), createdAt, dayAt(2024, 1, 28)),
	}

	assert.Equal(t, 60, latestWrittenMastery(results, activeGroupOne))
}

func TestLatestWrittenMasterySkipsUngradedAndInactive(t *testing.T) {
	ungraded := writtenResult("ungraded", nil, time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 4, 1))
	foreign := writtenResult("foreign", floatPtr(99), time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 5, 1))
	foreign.Work.GroupID = "grp-historic"
	graded := writtenResult("graded", floatPtr(42.6), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), dayAt(2024, 3, 1))

	assert.Equal(t, 43, latestWrittenMastery([]models.WrittenWorkResultRecord{ungraded, foreign, graded}, activeGroupOne))
	assert.Equal(t, 0, latestWrittenMastery([]models.WrittenWorkResultRecord{ungraded}, activeGroupOne))
}
