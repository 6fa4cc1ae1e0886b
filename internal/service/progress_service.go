package service

import (
	"context"
	"strings"

	"course-player-backend/internal/content"
	"course-player-backend/internal/models"
	"course-player-backend/internal/player"
	"course-player-backend/internal/repository"
	"course-player-backend/pkg/cache"
	"course-player-backend/pkg/logger"
)

// CourseProgress is the aggregated view served to course lists and the
// player header.
type CourseProgress struct {
	Percentage     int    `json:"percentage"`
	State          string `json:"state"`
	CompletedCount int    `json:"completed_count"`
	TotalItems     int    `json:"total_items"`
}

// ProgressService persists completion events and aggregates course
// progress. It is the player's ProgressReporter.
type ProgressService struct {
	progressRepo repository.ProgressRepository
	courses      *CourseService
	cache        *cache.Cache
}

var _ player.ProgressReporter = (*ProgressService)(nil)

func NewProgressService(progressRepo repository.ProgressRepository, courses *CourseService, cacheClient *cache.Cache) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		courses:      courses,
		cache:        cacheClient,
	}
}

// ReportLectureComplete records a completed item. Unknown identifiers are
// rejected so a malformed client cannot inflate stored progress.
func (s *ProgressService) ReportLectureComplete(ctx context.Context, userID, courseID uint, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return newValidationError("item id is required")
	}

	tree, err := s.courses.bareTree(courseID)
	if err != nil {
		return err
	}
	if !treeContains(tree.Chapters, itemID) {
		return newValidationError("item %q does not belong to this course", itemID)
	}

	completion := &models.LectureCompletion{
		UserID:   userID,
		CourseID: courseID,
		ItemID:   itemID,
	}
	if err := s.progressRepo.MarkComplete(completion); err != nil {
		return err
	}

	s.invalidateProgress(courseID, userID)
	return nil
}

// UnmarkComplete removes a stored completion, the persistence half of the
// player's optimistic rollback.
func (s *ProgressService) UnmarkComplete(ctx context.Context, userID, courseID uint, itemID string) error {
	if err := s.progressRepo.Unmark(userID, courseID, itemID); err != nil {
		return err
	}
	s.invalidateProgress(courseID, userID)
	return nil
}

// FetchCourseProgress computes the authoritative percentage: completed items
// that still exist in the tree over the tree's total, rounded half up. Zero
// items reports zero.
func (s *ProgressService) FetchCourseProgress(ctx context.Context, userID, courseID uint) (int, error) {
	if s.cache != nil {
		if percentage, err := s.cache.GetCachedProgress(courseID, userID); err == nil {
			return percentage, nil
		}
	}

	progress, err := s.Summary(ctx, userID, courseID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.CacheProgress(courseID, userID, progress.Percentage); err != nil {
			logger.Warn("Failed to cache progress", map[string]interface{}{
				"course_id": courseID,
				"user_id":   userID,
				"error":     err,
			})
		}
	}

	return progress.Percentage, nil
}

func (s *ProgressService) Summary(ctx context.Context, userID, courseID uint) (CourseProgress, error) {
	tree, err := s.courses.bareTree(courseID)
	if err != nil {
		return CourseProgress{}, err
	}

	itemIDs, err := s.progressRepo.ListItemIDs(userID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}

	// Completions referencing items removed by a re-import do not count.
	completed := 0
	for _, id := range itemIDs {
		if treeContains(tree.Chapters, id) {
			completed++
		}
	}

	total := tree.TotalItems()
	percentage := 0
	if total > 0 {
		if completed > total {
			completed = total
		}
		percentage = (100*completed + total/2) / total
	}

	return CourseProgress{
		Percentage:     percentage,
		State:          player.ProgressState(percentage),
		CompletedCount: completed,
		TotalItems:     total,
	}, nil
}

func (s *ProgressService) ResetCourse(ctx context.Context, userID, courseID uint) error {
	if err := s.progressRepo.ResetCourse(userID, courseID); err != nil {
		return err
	}
	s.invalidateProgress(courseID, userID)
	return nil
}

func (s *ProgressService) invalidateProgress(courseID, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProgress(courseID, userID); err != nil {
		logger.Warn("Failed to invalidate progress cache", map[string]interface{}{
			"course_id": courseID,
			"user_id":   userID,
			"error":     err,
		})
	}
}

func treeContains(chapters []content.Chapter, itemID string) bool {
	for _, chapter := range chapters {
		for _, item := range chapter.Items {
			if item.ID != "" && item.ID == itemID {
				return true
			}
		}
	}
	return false
}
