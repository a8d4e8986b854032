package dto

// HistoryBucket is one time bucket of the yearly, monthly or daily series.
// A bucket exists when at least one record fell inside it; missing streams
// report zero.
type HistoryBucket struct {
	BucketLabel       string `json:"bucketLabel"`
	Present           int    `json:"present"`
	Absent            int    `json:"absent"`
	Rate              int    `json:"rate"`
	ClassMastery      int    `json:"classMastery"`
	AssignmentRate    int    `json:"assignmentRate"`
	WeeklyWrittenRate int    `json:"weeklyWrittenRate"`
}

// RecentResult is one entry of the reverse-chronological results feed.
type RecentResult struct {
	Type           string `json:"type"`
	TypeLabel      string `json:"typeLabel"`
	Date           string `json:"date"`
	CreatedAt      string `json:"createdAt"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     int    `json:"percentage"`
	GroupName      string `json:"groupName"`
	Title          string `json:"title"`
}

// StudentSnapshotResponse is the dashboard payload for one student.
type StudentSnapshotResponse struct {
	AttendanceRate    int             `json:"attendanceRate"`
	ClassMastery      int             `json:"classMastery"`
	AssignmentRate    int             `json:"assignmentRate"`
	WeeklyWrittenRate int             `json:"weeklyWrittenRate"`
	Level             int             `json:"level"`
	TotalScore        int             `json:"totalScore"`
	MasteryLevel      int             `json:"masteryLevel"`
	Debt              float64         `json:"debt"`
	EnrollmentDate    string          `json:"enrollmentDate"`
	YearlyData        []HistoryBucket `json:"yearlyData"`
	MonthlyData       []HistoryBucket `json:"monthlyData"`
	DailyData         []HistoryBucket `json:"dailyData"`
	RecentResults     []RecentResult  `json:"recentResults"`
}
