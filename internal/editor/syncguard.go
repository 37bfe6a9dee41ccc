package editor

import (
	"strings"
	"time"
)

// GuardDecision explains what the sync guard did with a passive
// external replacement.
type GuardDecision string

const (
	GuardApply         GuardDecision = "apply"
	GuardSelectionHeld GuardDecision = "selection_held"
	GuardRecentTyping  GuardDecision = "recent_typing"
	GuardBusy          GuardDecision = "busy"
	GuardUnchanged     GuardDecision = "unchanged"
)

// DefaultQuietPeriod is how long after the last keystroke a passive
// replacement must wait.
const DefaultQuietPeriod = 1500 * time.Millisecond

// GuardInput is the editor state a replacement is judged against.
type GuardInput struct {
	Selection     Selection
	Activity      Activity
	LastKeystroke time.Time
	Current       string
	Incoming      string
	Now           time.Time
}

// SyncGuard arbitrates passive external content replacements. Local
// edits never pass through it, and authoritative replacements bypass it
// entirely. A suppressed candidate is not lost: the guard retains the
// single latest one so it can be re-offered once conditions clear.
type SyncGuard struct {
	quiet   time.Duration
	pending string
	held    bool
}

func NewSyncGuard(quiet time.Duration) *SyncGuard {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &SyncGuard{quiet: quiet}
}

// Evaluate judges a candidate without side effects. Apply requires a
// caret selection, a full quiet period since the last keystroke, an
// idle editor, and content that actually differs.
func (g *SyncGuard) Evaluate(in GuardInput) GuardDecision {
	if strings.TrimSpace(in.Incoming) == strings.TrimSpace(in.Current) {
		return GuardUnchanged
	}
	if !in.Selection.IsCaret() {
		return GuardSelectionHeld
	}
	switch in.Activity {
	case ActivityDragging, ActivityResizing, ActivitySelecting:
		return GuardBusy
	}
	// A Typing activity that outlived the quiet period is treated as
	// idle; the session settles it lazily.
	if !in.LastKeystroke.IsZero() && in.Now.Sub(in.LastKeystroke) < g.quiet {
		return GuardRecentTyping
	}
	return GuardApply
}

// Offer evaluates a candidate and, when it is suppressed for activity
// reasons, retains it (latest wins) for a later re-offer. Unchanged
// content is discarded outright.
func (g *SyncGuard) Offer(in GuardInput) GuardDecision {
	d := g.Evaluate(in)
	switch d {
	case GuardApply:
		g.held = false
		g.pending = ""
	case GuardUnchanged:
		// Nothing to re-offer.
	default:
		g.pending = in.Incoming
		g.held = true
	}
	return d
}

// Pending returns the retained suppressed candidate, if any.
func (g *SyncGuard) Pending() (string, bool) {
	return g.pending, g.held
}

// ClearPending drops the retained candidate, e.g. after it applied or
// was superseded by an authoritative replacement.
func (g *SyncGuard) ClearPending() {
	g.pending = ""
	g.held = false
}
