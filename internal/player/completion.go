package player

import (
	"course-player-backend/internal/content"
)

// CompletionSet tracks which item identifiers the learner has finished. It
// is a plain in-memory set; the owning session serializes access.
type CompletionSet struct {
	items map[string]struct{}
}

func NewCompletionSet() *CompletionSet {
	return &CompletionSet{items: make(map[string]struct{})}
}

// Seed replaces the set with the completion flags reported on the course
// tree. Called once per freshly loaded course.
func (s *CompletionSet) Seed(course content.Course) {
	s.items = make(map[string]struct{})
	for _, chapter := range course.Chapters {
		for _, item := range chapter.Items {
			if item.Completed && item.ID != "" {
				s.items[item.ID] = struct{}{}
			}
		}
	}
}

// MarkComplete inserts the identifier. Idempotent.
func (s *CompletionSet) MarkComplete(itemID string) {
	if itemID == "" {
		return
	}
	s.items[itemID] = struct{}{}
}

// Unmark removes the identifier. Only used to roll back an optimistic
// completion after the backing store rejected it.
func (s *CompletionSet) Unmark(itemID string) {
	delete(s.items, itemID)
}

func (s *CompletionSet) IsComplete(itemID string) bool {
	_, ok := s.items[itemID]
	return ok
}

func (s *CompletionSet) Count() int {
	return len(s.items)
}

// IDs returns the completed identifiers; order is unspecified.
func (s *CompletionSet) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return ids
}
