package input

// PointerEvent is a single-pointer simplification derived from the primary
// contact of a touch gesture, for consumers that only understand one pointer.
// Its suppression flag is independent of the touch batch it was derived from;
// the adapter ORs both when answering the platform.
type PointerEvent struct {
	// Time is the device uptime of the native event, in milliseconds.
	Time int64

	// X, Y are the primary contact position in logical surface coordinates.
	X float64
	Y float64

	// FromTouch is true when the pointer was derived from a touch contact
	// rather than a mouse.
	FromTouch bool

	flag *Flag
}

// NewPointerEvent builds a derived pointer event with a fresh, independent
// suppression flag.
func NewPointerEvent(time int64, x, y float64, fromTouch bool) *PointerEvent {
	return &PointerEvent{
		Time:      time,
		X:         x,
		Y:         y,
		FromTouch: fromTouch,
		flag:      NewFlag(),
	}
}

// SetPreventDefault asks the platform to skip its default handling. Only
// affects this derived event, not the touch batch it came from.
func (e *PointerEvent) SetPreventDefault(prevent bool) {
	e.flag.Set(prevent)
}

// PreventDefault reports this event's suppression decision.
func (e *PointerEvent) PreventDefault() bool {
	return e.flag.Get()
}
