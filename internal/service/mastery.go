package service

import (
	"math"

	"github.com/noah-isme/tutoring-center-api/internal/models"
)

// testMasteryRate sums correct answers over total questions for one test
// type across active groups. Tests pinned to a class occurrence only count
// when the student attended that occurrence; unpinned tests always count.
func testMasteryRate(results []models.TestResultRecord, testType models.TestType, activeGroups, attended map[string]struct{}) int {
	var correct, total int
	for _, result := range results {
		if result.Test.Type != testType {
			continue
		}
		if _, ok := activeGroups[result.Test.GroupID]; !ok {
			continue
		}
		if result.Test.ClassScheduleID != nil {
			if _, ok := attended[*result.Test.ClassScheduleID]; !ok {
				continue
			}
		}
		correct += result.CorrectAnswers
		total += result.Test.TotalQuestions
	}
	return pctOf(correct, total)
}

// latestWrittenMastery selects the most recent graded written-work result in
// an active group and returns its mastery level. The value is sticky: it is
// a last-known competence reading, so it deliberately ignores the
// attended-occurrence gate and persists until a newer result supersedes it.
// Ties on createdAt break on the underlying work's date.
func latestWrittenMastery(results []models.WrittenWorkResultRecord, activeGroups map[string]struct{}) int {
	var latest *models.WrittenWorkResultRecord
	for i := range results {
		result := &results[i]
		if result.MasteryLevel == nil {
			continue
		}
		if _, ok := activeGroups[result.Work.GroupID]; !ok {
			continue
		}
		if latest == nil ||
			result.CreatedAt.After(latest.CreatedAt) ||
			(result.CreatedAt.Equal(latest.CreatedAt) && result.Work.Date.After(latest.Work.Date)) {
			latest = result
		}
	}
	if latest == nil {
		return 0
	}
	return clampPct(int(math.Round(*latest.MasteryLevel)))
}
