package editor

import (
	"fmt"
	"log/slog"
)

// dragEpsilon is how close (in positions) a drop may land to its source
// before it is treated as pointer jitter rather than an intentional move.
const dragEpsilon = 1

// DragController turns a pointer drop into a move transaction. The
// moved block keeps its attributes exactly; relocation never coerces
// size or alignment.
type DragController struct {
	engine *Engine
	log    *slog.Logger

	active bool
	src    Range
}

func NewDragController(engine *Engine, log *slog.Logger) *DragController {
	return &DragController{engine: engine, log: log}
}

func (dc *DragController) Active() bool { return dc.active }

// Start captures the dragged block's current range.
func (dc *DragController) Start(pos int) error {
	b, start, _, ok := dc.engine.Doc().BlockAt(pos)
	if !ok {
		return &StalePositionError{Op: "drag_start", Pos: pos, Size: dc.engine.Doc().Size()}
	}
	if _, isPara := b.(*Paragraph); !isPara {
		if _, isMedia := b.(*Media); !isMedia {
			return fmt.Errorf("drag_start: unmovable block at %d", pos)
		}
	}
	dc.active = true
	dc.src = Range{From: start, To: start + b.Size()}
	return nil
}

// Drop resolves the move. A target within epsilon of the source range is
// silently ignored; jitter must not produce accidental moves.
func (dc *DragController) Drop(target int) error {
	if !dc.active {
		return nil
	}
	dc.active = false

	if target >= dc.src.From-dragEpsilon && target <= dc.src.To+dragEpsilon {
		if dc.log != nil {
			dc.log.Debug("drop ignored near source", "target", target, "src_from", dc.src.From, "src_to", dc.src.To)
		}
		return nil
	}
	return dc.engine.Move(dc.src, target)
}

// Cancel abandons the drag session.
func (dc *DragController) Cancel() {
	dc.active = false
}
