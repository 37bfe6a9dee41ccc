package editor

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Handle identifies which resize grip the pointer grabbed.
type Handle int

const (
	HandleNW Handle = iota
	HandleNE
	HandleSW
	HandleSE
	HandleN
	HandleS
	HandleE
	HandleW
)

var handleNames = map[string]Handle{
	"nw": HandleNW, "ne": HandleNE, "sw": HandleSW, "se": HandleSE,
	"n": HandleN, "s": HandleS, "e": HandleE, "w": HandleW,
}

// ParseHandle maps a wire name like "se" to a Handle.
func ParseHandle(name string) (Handle, error) {
	h, ok := handleNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown resize handle %q", name)
	}
	return h, nil
}

func (h Handle) isCorner() bool {
	return h == HandleNW || h == HandleNE || h == HandleSW || h == HandleSE
}

func (h Handle) horizontal() bool { return h == HandleE || h == HandleW }

const (
	// MinDimensionPx is the floor for both axes; prevents degenerate nodes.
	MinDimensionPx = 60

	// resizeThrottle bounds attribute transactions during fast pointer motion.
	resizeThrottle = 14 * time.Millisecond
)

// ResizeController turns pointer drag deltas into size-attribute
// transactions on a media block. Idle -> resizing -> Idle; a release
// ends the session with no separate commit, since every intermediate
// update is already a complete idempotent transaction.
type ResizeController struct {
	engine *Engine
	log    *slog.Logger

	active    bool
	pos       int
	handle    Handle
	origW     int
	origH     int
	ratio     float64
	lastApply time.Time

	pendingW    int
	pendingH    int
	havePending bool
}

func NewResizeController(engine *Engine, log *slog.Logger) *ResizeController {
	return &ResizeController{engine: engine, log: log}
}

func (rc *ResizeController) Active() bool { return rc.active }

// Start begins a resize session on the media block at pos. The current
// dimensions become the drag anchor.
func (rc *ResizeController) Start(pos int, handle Handle) error {
	b, start, _, ok := rc.engine.Doc().BlockAt(pos)
	if !ok || start != pos {
		return &StalePositionError{Op: "resize_start", Pos: pos, Size: rc.engine.Doc().Size()}
	}
	m, isMedia := b.(*Media)
	if !isMedia {
		return fmt.Errorf("resize_start: block at %d is not media", pos)
	}

	w, h := m.WidthPx, m.HeightPx
	if w <= 0 {
		w = MinDimensionPx
	}
	if h <= 0 {
		h = MinDimensionPx
	}
	ratio := m.AspectRatio
	if ratio <= 0 && h > 0 {
		ratio = float64(w) / float64(h)
	}
	if ratio <= 0 {
		ratio = 1
	}

	rc.active = true
	rc.pos = pos
	rc.handle = handle
	rc.origW = w
	rc.origH = h
	rc.ratio = ratio
	rc.lastApply = time.Time{}
	rc.havePending = false
	return nil
}

// Sample consumes one pointer-move delta relative to the drag start.
// Updates are throttled; a skipped sample is kept pending so the final
// geometry is never lost.
func (rc *ResizeController) Sample(dx, dy int) error {
	if !rc.active {
		return nil
	}

	w, h := rc.origW, rc.origH
	setHeight := true

	if rc.handle.isCorner() {
		wDelta := dx
		if rc.handle == HandleNW || rc.handle == HandleSW {
			wDelta = -dx
		}
		hDelta := dy
		if rc.handle == HandleNW || rc.handle == HandleNE {
			hDelta = -dy
		}
		delta := wDelta
		if abs(hDelta) > abs(wDelta) {
			delta = hDelta
		}
		w = rc.origW + delta
		if w < MinDimensionPx {
			w = MinDimensionPx
		}
		h = int(math.Round(float64(w) / rc.ratio))
		if h < MinDimensionPx {
			h = MinDimensionPx
		}
	} else if rc.handle.horizontal() {
		delta := dx
		if rc.handle == HandleW {
			delta = -dx
		}
		w = rc.origW + delta
		if w < MinDimensionPx {
			w = MinDimensionPx
		}
		setHeight = false
	} else {
		delta := dy
		if rc.handle == HandleN {
			delta = -dy
		}
		h = rc.origH + delta
		if h < MinDimensionPx {
			h = MinDimensionPx
		}
		// Width untouched for vertical edges.
		return rc.apply(0, h, false, true)
	}

	return rc.apply(w, h, true, setHeight)
}

func (rc *ResizeController) apply(w, h int, setW, setH bool) error {
	rc.pendingW, rc.pendingH = w, h
	rc.havePending = true
	if !rc.lastApply.IsZero() && time.Since(rc.lastApply) < resizeThrottle {
		return nil
	}
	return rc.flush(setW, setH)
}

func (rc *ResizeController) flush(setW, setH bool) error {
	if !rc.havePending {
		return nil
	}
	attrs := MediaAttrs{}
	if setW {
		w := rc.pendingW
		attrs.WidthPx = &w
	}
	if setH {
		h := rc.pendingH
		attrs.HeightPx = &h
	}
	rc.havePending = false
	rc.lastApply = time.Now()
	return rc.engine.SetAttributes(rc.pos, attrs)
}

// Release ends the session, applying any sample the throttle held back.
func (rc *ResizeController) Release() error {
	if !rc.active {
		return nil
	}
	var err error
	if rc.havePending {
		setH := rc.handle.isCorner() || !rc.handle.horizontal()
		setW := rc.handle.isCorner() || rc.handle.horizontal()
		err = rc.flush(setW, setH)
	}
	rc.active = false
	return err
}

// Cancel ends the session without applying pending samples. Updates
// already applied stand; they were valid transactions.
func (rc *ResizeController) Cancel() {
	rc.active = false
	rc.havePending = false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
