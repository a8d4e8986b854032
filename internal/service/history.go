package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/tutoring-center-api/internal/dto"
	"github.com/noah-isme/tutoring-center-api/internal/models"
	"github.com/noah-isme/tutoring-center-api/pkg/timeutil"
)

// seriesWindow defines one historical series: an inclusive day range and the
// bucket key derivation.
type seriesWindow struct {
	from time.Time
	to   time.Time
	key  func(time.Time) string
}

type historyAccum struct {
	present         int
	absent          int
	dailyCorrect    int
	dailyTotal      int
	homeworkCorrect int
	homeworkTotal   int
	writtenSum      float64
	writtenCount    int
}

// buildHistorySeries buckets the three record streams independently over the
// window, merges them on the union of bucket keys and emits the buckets in
// ascending key order. Attendance buckets by the attendance date, test
// results by the test's date and written-work results by the work's date.
//
// Unlike the headline snapshot values, history buckets include every
// in-window record without the attended-occurrence gate. Dashboards depend
// on the existing numbers, so the asymmetry is kept.
func buildHistorySeries(history []models.AttendanceRecord, tests []models.TestResultRecord, writtens []models.WrittenWorkResultRecord, window seriesWindow) []dto.HistoryBucket {
	buckets := make(map[string]*historyAccum)

	inWindow := func(t time.Time) bool {
		day := timeutil.StartOfDay(t)
		return !day.Before(window.from) && !day.After(window.to)
	}
	bucketFor := func(t time.Time) *historyAccum {
		key := window.key(t)
		accum, ok := buckets[key]
		if !ok {
			accum = &historyAccum{}
			buckets[key] = accum
		}
		return accum
	}

	for _, rec := range history {
		if !inWindow(rec.Date) {
			continue
		}
		accum := bucketFor(rec.Date)
		if rec.IsPresent {
			accum.present++
		} else {
			accum.absent++
		}
	}

	for _, result := range tests {
		if !inWindow(result.Test.Date) {
			continue
		}
		accum := bucketFor(result.Test.Date)
		switch result.Test.Type {
		case models.TestTypeDaily:
			accum.dailyCorrect += result.CorrectAnswers
			accum.dailyTotal += result.Test.TotalQuestions
		case models.TestTypeHomework:
			accum.homeworkCorrect += result.CorrectAnswers
			accum.homeworkTotal += result.Test.TotalQuestions
		}
	}

	for _, result := range writtens {
		if result.MasteryLevel == nil || !inWindow(result.Work.Date) {
			continue
		}
		accum := bucketFor(result.Work.Date)
		accum.writtenSum += *result.MasteryLevel
		accum.writtenCount++
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make([]dto.HistoryBucket, 0, len(keys))
	for _, key := range keys {
		accum := buckets[key]
		bucket := dto.HistoryBucket{
			BucketLabel:    key,
			Present:        accum.present,
			Absent:         accum.absent,
			Rate:           pctOf(accum.present, accum.present+accum.absent),
			ClassMastery:   pctOf(accum.dailyCorrect, accum.dailyTotal),
			AssignmentRate: pctOf(accum.homeworkCorrect, accum.homeworkTotal),
		}
		if accum.writtenCount > 0 {
			bucket.WeeklyWrittenRate = clampPct(int(math.Round(accum.writtenSum / float64(accum.writtenCount))))
		}
		series = append(series, bucket)
	}
	return series
}
