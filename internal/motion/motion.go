// Package motion models the platform side of the input boundary: an opaque
// multi-touch event as the mobile view layer delivers it, with raw device
// coordinates and an action code that packs a gesture phase together with an
// optional contact index.
package motion

// Event is one native multi-touch notification. Index-based accessors cover
// the active contact range [0, PointerCount()); behavior outside that range
// is up to the implementation.
type Event interface {
	// Time is the device uptime at which the event occurred, in milliseconds.
	Time() int64

	// Action is the packed action code. Decode it with DecodeAction.
	Action() int

	// PointerCount is the number of active contacts, always >= 1 for a
	// well-formed event.
	PointerCount() int

	// X and Y are the raw device coordinates of contact i.
	X(i int) float64
	Y(i int) float64

	// Pressure is the normalized pressure of contact i.
	Pressure(i int) float64

	// Size is the normalized contact area of contact i.
	Size(i int) float64

	// PointerID is the stable identifier of contact i for its lifetime.
	PointerID(i int) int
}

// Pointer is one contact inside a Sample.
type Pointer struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
	Size     float64 `json:"size"`
}

// Sample is a concrete Event built by event sources (wire decoders, evdev)
// and tests.
type Sample struct {
	TimeMs     int64     `json:"time"`
	ActionCode int       `json:"action"`
	Pointers   []Pointer `json:"pointers"`
}

func (s *Sample) Time() int64            { return s.TimeMs }
func (s *Sample) Action() int            { return s.ActionCode }
func (s *Sample) PointerCount() int      { return len(s.Pointers) }
func (s *Sample) X(i int) float64        { return s.Pointers[i].X }
func (s *Sample) Y(i int) float64        { return s.Pointers[i].Y }
func (s *Sample) Pressure(i int) float64 { return s.Pointers[i].Pressure }
func (s *Sample) Size(i int) float64     { return s.Pointers[i].Size }
func (s *Sample) PointerID(i int) int    { return s.Pointers[i].ID }
