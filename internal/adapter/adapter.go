// Package adapter translates native multi-touch events into the portable
// touch/pointer model and hands them to a downstream sink. It is pure
// boundary glue: no state survives a call, and the only decision it makes is
// the suppression answer returned to the platform.
package adapter

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tapwire/agent/internal/motion"
	"github.com/tapwire/agent/pkg/input"
)

// Transformer maps raw device coordinates into logical surface coordinates.
// Owned by the graphics layer; the adapter applies it exactly once per
// contact.
type Transformer interface {
	Transform(rawX, rawY float64) (x, y float64)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(rawX, rawY float64) (float64, float64)

func (f TransformerFunc) Transform(rawX, rawY float64) (float64, float64) {
	return f(rawX, rawY)
}

// Adapter converts one native event per HandleMotionEvent call. It is not
// safe for concurrent use; the platform delivers events on one goroutine and
// the adapter stays on it.
type Adapter struct {
	transform Transformer
	sink      input.Sink
	logger    *zap.Logger

	invalidIndex atomic.Uint64
}

// New creates an adapter that transforms coordinates with t and dispatches
// to sink.
func New(t Transformer, sink input.Sink, logger *zap.Logger) *Adapter {
	return &Adapter{
		transform: t,
		sink:      sink,
		logger:    logger.Named("adapter"),
	}
}

// HandleMotionEvent adapts one native event and reports whether the platform
// should suppress its own default handling of the gesture.
//
// The touch batch is dispatched before the derived pointer event, and both
// sink calls complete before the suppression flags are read back, so a
// synchronous consumer's SetPreventDefault is always honored.
func (a *Adapter) HandleMotionEvent(ev motion.Event) bool {
	flag := input.NewFlag()
	touches := a.parse(ev, flag)
	phase, index := motion.DecodeAction(ev.Action())

	switch phase {
	case motion.PhasePrimaryStart:
		a.sink.OnTouchStart(touches)
		pointer := derivePointer(touches[0])
		a.sink.OnPointerStart(pointer)
		return flag.Get() || pointer.PreventDefault()

	case motion.PhasePrimaryEnd:
		a.sink.OnTouchEnd(touches)
		pointer := derivePointer(touches[0])
		a.sink.OnPointerEnd(pointer)
		return flag.Get() || pointer.PreventDefault()

	case motion.PhaseSecondaryStart:
		changed, ok := a.changedTouch(touches, index, phase)
		if !ok {
			return flag.Get()
		}
		a.sink.OnTouchStart(changed)
		return flag.Get()

	case motion.PhaseSecondaryEnd:
		changed, ok := a.changedTouch(touches, index, phase)
		if !ok {
			return flag.Get()
		}
		a.sink.OnTouchEnd(changed)
		return flag.Get()

	case motion.PhaseMove:
		a.sink.OnTouchMove(touches)
		pointer := derivePointer(touches[0])
		a.sink.OnPointerDrag(pointer)
		return flag.Get() || pointer.PreventDefault()

	case motion.PhaseCancel, motion.PhaseOutside:
		// Abandoned or out-of-bounds gesture: nothing to report, nothing
		// to suppress.
		return false

	default:
		return false
	}
}

// parse decodes every active contact into a touch event sharing one
// suppression flag.
func (a *Adapter) parse(ev motion.Event, flag *input.Flag) []*input.TouchEvent {
	count := ev.PointerCount()
	time := ev.Time()
	touches := make([]*input.TouchEvent, count)
	for i := 0; i < count; i++ {
		x, y := a.transform.Transform(ev.X(i), ev.Y(i))
		touches[i] = input.NewTouchEvent(time, x, y, ev.PointerID(i), ev.Pressure(i), ev.Size(i), flag)
	}
	return touches
}

// changedTouch extracts the single contact named by the embedded index of a
// secondary phase. An out-of-range index means the platform handed us an
// event referencing a contact it did not include; the dispatch becomes a
// no-op instead of a panic.
func (a *Adapter) changedTouch(touches []*input.TouchEvent, index int, phase motion.Phase) ([]*input.TouchEvent, bool) {
	if index < 0 || index >= len(touches) {
		a.invalidIndex.Add(1)
		a.logger.Warn("embedded contact index out of range, dropping dispatch",
			zap.Stringer("phase", phase),
			zap.Int("index", index),
			zap.Int("pointerCount", len(touches)))
		return nil, false
	}
	return touches[index : index+1], true
}

// InvalidIndexDrops reports how many secondary dispatches were dropped for an
// out-of-range embedded index.
func (a *Adapter) InvalidIndexDrops() uint64 {
	return a.invalidIndex.Load()
}

func derivePointer(primary *input.TouchEvent) *input.PointerEvent {
	return input.NewPointerEvent(primary.Time, primary.X, primary.Y, true)
}
