package input

// TouchEvent is one contact point of a multi-touch gesture, already mapped
// into logical surface coordinates. Events are transfer structures: they are
// created fresh for every native event delivery and must not be retained by
// consumers past the sink call that delivered them.
type TouchEvent struct {
	// Time is the device uptime of the native event, in milliseconds. All
	// events born from the same native event carry the same timestamp.
	Time int64

	// X, Y are the contact position in logical surface coordinates.
	X float64
	Y float64

	// ID identifies the contact for its whole lifetime. Assigned by the
	// platform; stable across down/move/up, reusable afterwards.
	ID int

	// Pressure and Size are normalized to the platform's calibration.
	Pressure float64
	Size     float64

	flag *Flag
}

// NewTouchEvent builds a touch event bound to the given shared suppression
// flag. The adapter allocates one flag per native event and passes it to
// every record it creates.
func NewTouchEvent(time int64, x, y float64, id int, pressure, size float64, flag *Flag) *TouchEvent {
	return &TouchEvent{
		Time:     time,
		X:        x,
		Y:        y,
		ID:       id,
		Pressure: pressure,
		Size:     size,
		flag:     flag,
	}
}

// SetPreventDefault asks the platform to skip its default handling of the
// gesture this contact belongs to. The decision is shared with every other
// contact from the same native event.
func (e *TouchEvent) SetPreventDefault(prevent bool) {
	e.flag.Set(prevent)
}

// PreventDefault reports the shared suppression decision.
func (e *TouchEvent) PreventDefault() bool {
	return e.flag.Get()
}
