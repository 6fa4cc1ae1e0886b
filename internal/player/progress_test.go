package player

import (
	"testing"

	"course-player-backend/internal/content"
)

func courseWithItems(n int) content.Course {
	items := make([]content.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, content.Item{ID: content.ItemIDForLecture(uint(i + 1)), Kind: content.KindLecture})
	}
	return content.Course{Chapters: []content.Chapter{{ID: "c", Items: items}}}
}

func TestPercentageZeroItems(t *testing.T) {
	if got := Percentage(content.Course{}, NewCompletionSet()); got != 0 {
		t.Fatalf("empty course should report 0, got %d", got)
	}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct {
		total     int
		completed int
		want      int
	}{
		{3, 1, 33},
		{3, 2, 67},
		{6, 1, 17},
		{8, 1, 13},
		{200, 1, 1},
		{7, 7, 100},
	}

	for _, tc := range cases {
		course := courseWithItems(tc.total)
		set := NewCompletionSet()
		for i := 0; i < tc.completed; i++ {
			set.MarkComplete(content.ItemIDForLecture(uint(i + 1)))
		}
		if got := Percentage(course, set); got != tc.want {
			t.Errorf("%d/%d: expected %d, got %d", tc.completed, tc.total, tc.want, got)
		}
	}
}

func TestProgressState(t *testing.T) {
	if ProgressState(0) != ProgressNotStarted {
		t.Errorf("0 should be not started")
	}
	if ProgressState(1) != ProgressInProgress || ProgressState(99) != ProgressInProgress {
		t.Errorf("interior values should be in progress")
	}
	if ProgressState(100) != ProgressCompleted {
		t.Errorf("100 should be completed")
	}
}

func TestCompletionSetSeedAndMarks(t *testing.T) {
	course := content.Course{Chapters: []content.Chapter{{
		Items: []content.Item{
			{ID: "a", Completed: true},
			{ID: "b"},
			{Completed: true}, // no id, never tracked
		},
	}}}

	set := NewCompletionSet()
	set.MarkComplete("stale")
	set.Seed(course)

	if set.Count() != 1 || !set.IsComplete("a") {
		t.Fatalf("seed should replace prior contents: %v", set.IDs())
	}

	set.MarkComplete("b")
	set.MarkComplete("b")
	if set.Count() != 2 {
		t.Fatalf("marking is idempotent, got %d", set.Count())
	}

	set.MarkComplete("")
	if set.Count() != 2 {
		t.Fatalf("empty ids must be ignored")
	}

	set.Unmark("b")
	if set.IsComplete("b") || set.Count() != 1 {
		t.Fatalf("unmark failed")
	}
}
