package player

// Position points at the active content item as (chapter index, item index),
// both zero-based. The zero value is not meaningful; use NoPosition for the
// "nothing selected" state before the first item is chosen.
type Position struct {
	Chapter int `json:"chapter_index"`
	Item    int `json:"item_index"`
}

// NoPosition is the sentinel used before any item is selected, e.g. for a
// course with no playable items.
var NoPosition = Position{Chapter: -1, Item: -1}

func (p Position) Valid() bool {
	return p.Chapter >= 0 && p.Item >= 0
}
