package editor

// Selection is a position range with 0 <= From <= To <= document size.
// From == To is a caret.
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s Selection) IsCaret() bool { return s.From == s.To }

func (s Selection) clamp(max int) Selection {
	s.From = clamp(s.From, 0, max)
	s.To = clamp(s.To, s.From, max)
	return s
}

// Activity is what the local editor is currently doing. Exactly one
// value holds at a time; only the owning Session transitions it.
type Activity int

const (
	ActivityIdle Activity = iota
	ActivityTyping
	ActivitySelecting
	ActivityDragging
	ActivityResizing
)

func (a Activity) String() string {
	switch a {
	case ActivityIdle:
		return "idle"
	case ActivityTyping:
		return "typing"
	case ActivitySelecting:
		return "selecting"
	case ActivityDragging:
		return "dragging"
	case ActivityResizing:
		return "resizing"
	}
	return "unknown"
}
