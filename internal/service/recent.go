package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	"github.com/noah-isme/tutoring-center-api/internal/models"
	"github.com/noah-isme/tutoring-center-api/pkg/timeutil"
)

const defaultRecentResultLimit = 10

// buildRecentResults merges test and written-work results into one
// reverse-chronological feed capped at limit entries.
func buildRecentResults(tests []models.TestResultRecord, writtens []models.WrittenWorkResultRecord, limit int) []dto.RecentResult {
	if limit <= 0 {
		limit = defaultRecentResultLimit
	}

	type entry struct {
		createdAt time.Time
		result    dto.RecentResult
	}
	entries := make([]entry, 0, len(tests)+len(writtens))

	for _, result := range tests {
		typeLabel := "daily test"
		if result.Test.Type == models.TestTypeHomework {
			typeLabel = "homework"
		}
		entries = append(entries, entry{
			createdAt: result.CreatedAt,
			result: dto.RecentResult{
				Type:           string(result.Test.Type),
				TypeLabel:      typeLabel,
				Date:           timeutil.DayKey(result.Test.Date),
				CreatedAt:      result.CreatedAt.UTC().Format(time.RFC3339),
				CorrectAnswers: result.CorrectAnswers,
				TotalQuestions: result.Test.TotalQuestions,
				Percentage:     pctOf(result.CorrectAnswers, result.Test.TotalQuestions),
				GroupName:      result.GroupName,
				Title:          result.Test.Title,
			},
		})
	}

	for _, result := range writtens {
		percentage := 0
		if result.MasteryLevel != nil {
			percentage = clampPct(int(math.Round(*result.MasteryLevel)))
		}
		entries = append(entries, entry{
			createdAt: result.CreatedAt,
			result: dto.RecentResult{
				Type:           "written_work",
				TypeLabel:      "written work",
				Date:           timeutil.DayKey(result.Work.Date),
				CreatedAt:      result.CreatedAt.UTC().Format(time.RFC3339),
				CorrectAnswers: result.CorrectAnswers,
				TotalQuestions: result.Work.TotalQuestions,
				Percentage:     percentage,
				GroupName:      result.GroupName,
				Title:          result.Work.Title,
			},
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.After(entries[j].createdAt)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	results := make([]dto.RecentResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, e.result)
	}
	return results
}
