package service

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"course-player-backend/internal/content"
	"course-player-backend/internal/models"
	"course-player-backend/internal/player"
	"course-player-backend/internal/repository"
	"course-player-backend/pkg/logger"
)

// QuizService grades submissions against the stored answer key and keeps
// the attempt history. It is the player's QuizGrader.
type QuizService struct {
	resultRepo repository.QuizResultRepository
	courses    *CourseService
	progress   *ProgressService
}

var _ player.QuizGrader = (*QuizService)(nil)

func NewQuizService(resultRepo repository.QuizResultRepository, courses *CourseService, progress *ProgressService) *QuizService {
	return &QuizService{
		resultRepo: resultRepo,
		courses:    courses,
		progress:   progress,
	}
}

// SubmitQuizAnswers scores one option index per question, in question order.
// The score is rounded half up; only answering every question correctly
// reaches 100. A perfect score also records the quiz as a completed item so
// stored progress agrees with the player.
func (s *QuizService) SubmitQuizAnswers(ctx context.Context, userID, courseID uint, quizID string, answers []int) (player.GradeResult, error) {
	quiz, err := s.findQuiz(courseID, quizID)
	if err != nil {
		return player.GradeResult{}, err
	}

	questions := quiz.Questions
	if len(questions) == 0 {
		return player.GradeResult{}, newValidationError("quiz has no questions")
	}
	if len(answers) != len(questions) {
		return player.GradeResult{}, newValidationError("expected %d answers, got %d", len(questions), len(answers))
	}

	correct := 0
	feedback := make([]player.QuestionFeedback, 0, len(questions))
	for idx, answer := range answers {
		if answer < 0 || answer >= len(questions[idx].Options) {
			return player.GradeResult{}, newValidationError("answer %d is out of range", idx+1)
		}
		right := answer == questions[idx].CorrectOption
		if right {
			correct++
		}
		feedback = append(feedback, player.QuestionFeedback{
			Correct:     right,
			Selected:    answer,
			Explanation: questions[idx].Explanation,
		})
	}

	total := len(questions)
	result := player.GradeResult{
		Score:        (100*correct + total/2) / total,
		CorrectCount: correct,
		TotalCount:   total,
		Questions:    feedback,
	}

	if err := s.saveResult(userID, courseID, quizID, answers, result); err != nil {
		return player.GradeResult{}, err
	}

	if result.Score == player.PerfectScore {
		if err := s.progress.ReportLectureComplete(ctx, userID, courseID, quizID); err != nil {
			logger.Error(err, "Failed to record quiz completion", map[string]interface{}{
				"quiz_id": quizID,
				"user_id": userID,
			})
		}
	}

	return result, nil
}

func (s *QuizService) findQuiz(courseID uint, quizID string) (content.Item, error) {
	tree, err := s.courses.bareTree(courseID)
	if err != nil {
		return content.Item{}, err
	}
	for _, chapter := range tree.Chapters {
		for _, item := range chapter.Items {
			if item.Kind == content.KindQuiz && item.ID == quizID {
				return item, nil
			}
		}
	}
	return content.Item{}, gorm.ErrRecordNotFound
}

func (s *QuizService) saveResult(userID, courseID uint, quizID string, answers []int, result player.GradeResult) error {
	numericID, ok := content.NumericID(quizID, "quiz")
	if !ok {
		return newValidationError("invalid quiz id %q", quizID)
	}

	encoded, err := json.Marshal(answers)
	if err != nil {
		return err
	}

	return s.resultRepo.Save(&models.QuizResult{
		QuizID:       numericID,
		CourseID:     courseID,
		UserID:       userID,
		Score:        result.Score,
		CorrectCount: result.CorrectCount,
		TotalCount:   result.TotalCount,
		Answers:      encoded,
	})
}

// BestResult returns the learner's highest-scoring attempt and attempt
// count for a quiz; nil result means no attempts yet.
func (s *QuizService) BestResult(quizID string, userID uint) (*models.QuizResult, int64, error) {
	numericID, ok := content.NumericID(quizID, "quiz")
	if !ok {
		return nil, 0, newValidationError("invalid quiz id %q", quizID)
	}
	return s.resultRepo.GetBestResult(numericID, userID)
}

func (s *QuizService) History(userID, courseID uint) ([]models.QuizResult, error) {
	return s.resultRepo.ListByUserAndCourse(userID, courseID)
}
