package source

import "github.com/tapwire/agent/internal/motion"

// Kernel input ABI values used by the multitouch tracker. Kept out of the
// linux-only file so the frame logic can be tested on any platform.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnTouch = 0x14a

	absMTSlot       = 0x2f
	absMTTouchMajor = 0x30
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39
	absMTPressure   = 0x3a
)

const maxSlots = 10

// absRange is the device-reported range of one absolute axis.
type absRange struct {
	min int32
	max int32
}

func (r absRange) valid() bool {
	return r.max > r.min
}

// normalize maps a raw axis value to [0,1].
func (r absRange) normalize(v int32) float64 {
	if !r.valid() {
		return 0
	}
	n := float64(v-r.min) / float64(r.max-r.min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

type slotState struct {
	active     bool
	trackingID int32
	x          int32
	y          int32
	pressure   int32
	major      int32

	pendingDown bool
	pendingUp   bool
	moved       bool
}

// tracker turns a kernel multitouch protocol-B event stream into native
// motion events with the packed action encoding the adapter expects. One
// kernel frame (everything up to a SYN_REPORT) can yield several motion
// events: contact downs, one coalesced move, contact ups, in that order.
type tracker struct {
	deviceW float64
	deviceH float64
	xRange  absRange
	yRange  absRange
	pRange  absRange
	mRange  absRange

	currentSlot int
	slots       [maxSlots]slotState
}

func newTracker(deviceW, deviceH float64, x, y, pressure, major absRange) *tracker {
	return &tracker{
		deviceW: deviceW,
		deviceH: deviceH,
		xRange:  x,
		yRange:  y,
		pRange:  pressure,
		mRange:  major,
	}
}

// apply consumes one kernel event between SYN_REPORTs.
func (t *tracker) apply(typ, code uint16, value int32) {
	if typ != evAbs {
		// BTN_TOUCH duplicates what tracking ids already say under
		// protocol B.
		return
	}

	switch code {
	case absMTSlot:
		if value >= 0 && int(value) < maxSlots {
			t.currentSlot = int(value)
		}
		return
	case absMTTrackingID:
		slot := &t.slots[t.currentSlot]
		if value >= 0 {
			if !slot.active {
				slot.active = true
				slot.pendingDown = true
				slot.pendingUp = false
			}
			slot.trackingID = value
		} else if slot.active {
			slot.pendingUp = true
		}
		return
	}

	slot := &t.slots[t.currentSlot]
	switch code {
	case absMTPositionX:
		if slot.x != value {
			slot.x = value
			slot.moved = true
		}
	case absMTPositionY:
		if slot.y != value {
			slot.y = value
			slot.moved = true
		}
	case absMTPressure:
		slot.pressure = value
	case absMTTouchMajor:
		slot.major = value
	}
}

// commit closes a kernel frame and returns the motion events it produced.
// timeMs is the kernel timestamp of the SYN_REPORT.
func (t *tracker) commit(timeMs int64) []*motion.Sample {
	var events []*motion.Sample

	// Contacts currently on screen, in slot order. Lifting contacts stay
	// in the set until their up event is emitted, matching how the
	// platform reports a secondary up with the lifting contact included.
	onScreen := func() []int {
		var out []int
		for i := range t.slots {
			if t.slots[i].active {
				out = append(out, i)
			}
		}
		return out
	}

	// Downs first. Each down sees the set as of its own activation, so a
	// frame with two new contacts yields a primary start followed by a
	// secondary start.
	for i := range t.slots {
		if !t.slots[i].pendingDown {
			continue
		}
		t.slots[i].pendingDown = false
		t.slots[i].moved = false

		// Hide not-yet-announced contacts from this snapshot.
		snap, index := t.snapshot(onScreen(), i, func(s int) bool {
			return !t.slots[s].pendingDown
		})

		action := motion.ActionDown
		if len(snap) > 1 {
			action = motion.EncodeAction(motion.PhaseSecondaryStart, index)
		}
		events = append(events, &motion.Sample{TimeMs: timeMs, ActionCode: action, Pointers: snap})
	}

	// One coalesced move for any position change that was not part of a
	// down this frame.
	movedAny := false
	for i := range t.slots {
		if t.slots[i].active && t.slots[i].moved {
			movedAny = true
			t.slots[i].moved = false
		}
	}
	if movedAny {
		snap, _ := t.snapshot(onScreen(), -1, nil)
		if len(snap) > 0 {
			events = append(events, &motion.Sample{TimeMs: timeMs, ActionCode: motion.ActionMove, Pointers: snap})
		}
	}

	// Ups last. The lifting contact is still part of its own event.
	for i := range t.slots {
		if !t.slots[i].pendingUp {
			continue
		}
		snap, index := t.snapshot(onScreen(), i, nil)

		action := motion.ActionUp
		if len(snap) > 1 {
			action = motion.EncodeAction(motion.PhaseSecondaryEnd, index)
		}
		events = append(events, &motion.Sample{TimeMs: timeMs, ActionCode: action, Pointers: snap})

		t.slots[i].pendingUp = false
		t.slots[i].active = false
	}

	return events
}

// snapshot builds the pointer array for one event from the given slots,
// optionally filtered, and returns the array index of the changed slot.
func (t *tracker) snapshot(slots []int, changed int, include func(int) bool) ([]motion.Pointer, int) {
	pointers := make([]motion.Pointer, 0, len(slots))
	index := 0
	for _, s := range slots {
		if include != nil && !include(s) && s != changed {
			continue
		}
		if s == changed {
			index = len(pointers)
		}
		slot := &t.slots[s]
		pointers = append(pointers, motion.Pointer{
			ID:       int(slot.trackingID),
			X:        t.xRange.normalize(slot.x) * t.deviceW,
			Y:        t.yRange.normalize(slot.y) * t.deviceH,
			Pressure: t.contactPressure(slot),
			Size:     t.mRange.normalize(slot.major),
		})
	}
	return pointers, index
}

// contactPressure falls back to full pressure for devices that do not
// report the axis.
func (t *tracker) contactPressure(slot *slotState) float64 {
	if !t.pRange.valid() {
		return 1
	}
	return t.pRange.normalize(slot.pressure)
}
