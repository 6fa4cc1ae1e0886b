package player

import (
	"course-player-backend/internal/content"
)

const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

// Percentage computes whole-course completion as an integer 0..100, rounded
// half up. A course with zero items reports 0.
func Percentage(course content.Course, completed *CompletionSet) int {
	total := course.TotalItems()
	if total == 0 {
		return 0
	}
	count := completed.Count()
	if count > total {
		count = total
	}
	return (100*count + total/2) / total
}

// ProgressState buckets a percentage for display: not started, in progress,
// or completed.
func ProgressState(percentage int) string {
	switch {
	case percentage >= 100:
		return ProgressCompleted
	case percentage > 0:
		return ProgressInProgress
	default:
		return ProgressNotStarted
	}
}
