package input

// Sink receives adapted events from the touch adapter. Within one native
// event the adapter makes at most two calls: a touch batch call followed by
// an optional derived-pointer call, in that order, always on the delivering
// goroutine. Implementations that want to influence the adapter's suppression
// answer must set flags synchronously, before returning.
type Sink interface {
	// OnTouchStart delivers contacts that just touched down. For a primary
	// start this is the full active set; for a secondary start it is only
	// the newly-added contact.
	OnTouchStart(touches []*TouchEvent)

	// OnTouchEnd delivers contacts that just lifted, with the same
	// full-set/single-contact split as OnTouchStart.
	OnTouchEnd(touches []*TouchEvent)

	// OnTouchMove delivers the full active set after a position change.
	OnTouchMove(touches []*TouchEvent)

	// OnPointerStart delivers the derived primary pointer press.
	OnPointerStart(ev *PointerEvent)

	// OnPointerEnd delivers the derived primary pointer release.
	OnPointerEnd(ev *PointerEvent)

	// OnPointerDrag delivers a derived primary pointer move while down.
	OnPointerDrag(ev *PointerEvent)
}

// NopSink discards everything. Useful as a default and in tests.
type NopSink struct{}

func (NopSink) OnTouchStart([]*TouchEvent)   {}
func (NopSink) OnTouchEnd([]*TouchEvent)     {}
func (NopSink) OnTouchMove([]*TouchEvent)    {}
func (NopSink) OnPointerStart(*PointerEvent) {}
func (NopSink) OnPointerEnd(*PointerEvent)   {}
func (NopSink) OnPointerDrag(*PointerEvent)  {}
