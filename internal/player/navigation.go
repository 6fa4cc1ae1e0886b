package player

import (
	"course-player-backend/internal/content"
)

// Navigator answers previous/next questions and computes position
// transitions over a normalized course tree. Chapters with zero items are
// skipped in both directions and are never a landing chapter. All
// transitions are defensive: an out-of-range request returns the input
// position unchanged.
type Navigator struct {
	course content.Course
}

func NewNavigator(course content.Course) *Navigator {
	return &Navigator{course: course}
}

func (n *Navigator) Course() content.Course {
	return n.course
}

// First resolves the starting position: the first item of the first chapter
// that contains at least one item, or NoPosition when no chapter has items.
func (n *Navigator) First() Position {
	for chapterIdx, chapter := range n.course.Chapters {
		if len(chapter.Items) > 0 {
			return Position{Chapter: chapterIdx, Item: 0}
		}
	}
	return NoPosition
}

// ItemAt returns the item the position references, if any.
func (n *Navigator) ItemAt(pos Position) (content.Item, bool) {
	if !n.inBounds(pos) {
		return content.Item{}, false
	}
	return n.course.Chapters[pos.Chapter].Items[pos.Item], true
}

func (n *Navigator) inBounds(pos Position) bool {
	if !pos.Valid() || pos.Chapter >= len(n.course.Chapters) {
		return false
	}
	return pos.Item < len(n.course.Chapters[pos.Chapter].Items)
}

func (n *Navigator) HasPrevious(pos Position) bool {
	if !n.inBounds(pos) {
		return false
	}
	if pos.Item > 0 {
		return true
	}
	for chapterIdx := pos.Chapter - 1; chapterIdx >= 0; chapterIdx-- {
		if len(n.course.Chapters[chapterIdx].Items) > 0 {
			return true
		}
	}
	return false
}

func (n *Navigator) HasNext(pos Position) bool {
	if !n.inBounds(pos) {
		return false
	}
	if pos.Item < len(n.course.Chapters[pos.Chapter].Items)-1 {
		return true
	}
	for chapterIdx := pos.Chapter + 1; chapterIdx < len(n.course.Chapters); chapterIdx++ {
		if len(n.course.Chapters[chapterIdx].Items) > 0 {
			return true
		}
	}
	return false
}

// Previous steps back one item, walking over empty chapters to land on the
// last item of the nearest earlier chapter with content. No-op when nothing
// precedes the position.
func (n *Navigator) Previous(pos Position) Position {
	if !n.inBounds(pos) {
		return pos
	}
	if pos.Item > 0 {
		return Position{Chapter: pos.Chapter, Item: pos.Item - 1}
	}
	for chapterIdx := pos.Chapter - 1; chapterIdx >= 0; chapterIdx-- {
		if count := len(n.course.Chapters[chapterIdx].Items); count > 0 {
			return Position{Chapter: chapterIdx, Item: count - 1}
		}
	}
	return pos
}

// Next steps forward one item, walking over empty chapters to land on the
// first item of the nearest later chapter with content. No-op when nothing
// follows the position.
func (n *Navigator) Next(pos Position) Position {
	if !n.inBounds(pos) {
		return pos
	}
	if pos.Item < len(n.course.Chapters[pos.Chapter].Items)-1 {
		return Position{Chapter: pos.Chapter, Item: pos.Item + 1}
	}
	for chapterIdx := pos.Chapter + 1; chapterIdx < len(n.course.Chapters); chapterIdx++ {
		if len(n.course.Chapters[chapterIdx].Items) > 0 {
			return Position{Chapter: chapterIdx, Item: 0}
		}
	}
	return pos
}

// SelectByID finds the first item whose identifier matches, scanning in tree
// order. Items without an identifier never match. A miss keeps the current
// position so a stale sidebar selection cannot move the player.
func (n *Navigator) SelectByID(itemID string, current Position) Position {
	if itemID == "" {
		return current
	}
	for chapterIdx, chapter := range n.course.Chapters {
		for itemIdx, item := range chapter.Items {
			if item.Selectable() && item.ID == itemID {
				return Position{Chapter: chapterIdx, Item: itemIdx}
			}
		}
	}
	return current
}
