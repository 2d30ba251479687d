package source

import (
	"testing"

	"github.com/tapwire/agent/internal/motion"
)

func newTestTracker() *tracker {
	// 0..999 raw axes mapped onto a 1000x2000 device, pressure 0..255,
	// touch major 0..100.
	return newTracker(1000, 2000,
		absRange{0, 999},
		absRange{0, 999},
		absRange{0, 255},
		absRange{0, 100},
	)
}

func TestTrackerSingleContactLifecycle(t *testing.T) {
	tr := newTestTracker()

	// Finger lands.
	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 41)
	tr.apply(evAbs, absMTPositionX, 100)
	tr.apply(evAbs, absMTPositionY, 200)
	tr.apply(evAbs, absMTPressure, 128)
	events := tr.commit(1000)

	if len(events) != 1 {
		t.Fatalf("down frame produced %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.ActionCode != motion.ActionDown {
		t.Fatalf("action = %#x, want ActionDown", ev.ActionCode)
	}
	if ev.TimeMs != 1000 {
		t.Fatalf("time = %d, want 1000", ev.TimeMs)
	}
	if len(ev.Pointers) != 1 || ev.Pointers[0].ID != 41 {
		t.Fatalf("pointers = %+v, want single id 41", ev.Pointers)
	}

	// Finger moves.
	tr.apply(evAbs, absMTPositionX, 150)
	events = tr.commit(1016)
	if len(events) != 1 || events[0].ActionCode != motion.ActionMove {
		t.Fatalf("move frame = %+v, want single ActionMove", events)
	}

	// Finger lifts.
	tr.apply(evAbs, absMTTrackingID, -1)
	events = tr.commit(1032)
	if len(events) != 1 {
		t.Fatalf("up frame produced %d events, want 1", len(events))
	}
	if events[0].ActionCode != motion.ActionUp {
		t.Fatalf("action = %#x, want ActionUp", events[0].ActionCode)
	}
	if len(events[0].Pointers) != 1 {
		t.Fatal("lifting contact must still be part of its up event")
	}

	// Nothing remains on screen.
	tr.apply(evAbs, absMTPositionX, 10)
	if events := tr.commit(1048); len(events) != 0 {
		t.Fatalf("stale slot produced events: %+v", events)
	}
}

func TestTrackerSecondaryDownAndUp(t *testing.T) {
	tr := newTestTracker()

	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 1)
	tr.apply(evAbs, absMTPositionX, 100)
	tr.apply(evAbs, absMTPositionY, 100)
	tr.commit(1)

	// Second finger lands in slot 1.
	tr.apply(evAbs, absMTSlot, 1)
	tr.apply(evAbs, absMTTrackingID, 2)
	tr.apply(evAbs, absMTPositionX, 500)
	tr.apply(evAbs, absMTPositionY, 500)
	events := tr.commit(2)

	if len(events) != 1 {
		t.Fatalf("secondary down frame produced %d events, want 1", len(events))
	}
	phase, index := motion.DecodeAction(events[0].ActionCode)
	if phase != motion.PhaseSecondaryStart {
		t.Fatalf("phase = %v, want secondary start", phase)
	}
	if index != 1 {
		t.Fatalf("embedded index = %d, want 1", index)
	}
	if len(events[0].Pointers) != 2 {
		t.Fatalf("pointer count = %d, want full set of 2", len(events[0].Pointers))
	}
	if events[0].Pointers[1].ID != 2 {
		t.Fatalf("pointer at embedded index has id %d, want 2", events[0].Pointers[1].ID)
	}

	// First finger (slot 0) lifts while slot 1 stays.
	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, -1)
	events = tr.commit(3)

	if len(events) != 1 {
		t.Fatalf("secondary up frame produced %d events, want 1", len(events))
	}
	phase, index = motion.DecodeAction(events[0].ActionCode)
	if phase != motion.PhaseSecondaryEnd || index != 0 {
		t.Fatalf("decoded (%v,%d), want secondary end at index 0", phase, index)
	}
	if len(events[0].Pointers) != 2 {
		t.Fatal("lifting contact must be included in the secondary up event")
	}

	// Last finger lifts: primary end with one contact.
	tr.apply(evAbs, absMTSlot, 1)
	tr.apply(evAbs, absMTTrackingID, -1)
	events = tr.commit(4)
	if len(events) != 1 || events[0].ActionCode != motion.ActionUp {
		t.Fatalf("final frame = %+v, want single ActionUp", events)
	}
}

func TestTrackerTwoDownsInOneFrame(t *testing.T) {
	tr := newTestTracker()

	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 1)
	tr.apply(evAbs, absMTPositionX, 10)
	tr.apply(evAbs, absMTSlot, 1)
	tr.apply(evAbs, absMTTrackingID, 2)
	tr.apply(evAbs, absMTPositionX, 20)
	events := tr.commit(1)

	if len(events) != 2 {
		t.Fatalf("frame produced %d events, want 2", len(events))
	}
	if events[0].ActionCode != motion.ActionDown {
		t.Fatalf("first event action = %#x, want ActionDown", events[0].ActionCode)
	}
	if len(events[0].Pointers) != 1 {
		t.Fatal("primary start must only announce the first contact")
	}
	phase, index := motion.DecodeAction(events[1].ActionCode)
	if phase != motion.PhaseSecondaryStart || index != 1 {
		t.Fatalf("second event decoded (%v,%d), want secondary start at 1", phase, index)
	}
	if len(events[1].Pointers) != 2 {
		t.Fatal("secondary start must carry both contacts")
	}
}

func TestTrackerMoveCoalescing(t *testing.T) {
	tr := newTestTracker()

	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 1)
	tr.apply(evAbs, absMTSlot, 1)
	tr.apply(evAbs, absMTTrackingID, 2)
	tr.commit(1)

	// Both fingers move in one frame: a single move event.
	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTPositionX, 300)
	tr.apply(evAbs, absMTSlot, 1)
	tr.apply(evAbs, absMTPositionY, 400)
	events := tr.commit(2)

	if len(events) != 1 || events[0].ActionCode != motion.ActionMove {
		t.Fatalf("frame = %+v, want single ActionMove", events)
	}
	if len(events[0].Pointers) != 2 {
		t.Fatalf("move carries %d pointers, want 2", len(events[0].Pointers))
	}

	// Re-reporting the same position is not a move.
	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTPositionX, 300)
	if events := tr.commit(3); len(events) != 0 {
		t.Fatalf("unchanged position produced events: %+v", events)
	}
}

func TestTrackerCoordinateScaling(t *testing.T) {
	tr := newTestTracker()

	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 1)
	tr.apply(evAbs, absMTPositionX, 999) // full scale
	tr.apply(evAbs, absMTPositionY, 0)
	tr.apply(evAbs, absMTPressure, 255)
	tr.apply(evAbs, absMTTouchMajor, 50)
	events := tr.commit(1)

	p := events[0].Pointers[0]
	if p.X != 1000 || p.Y != 0 {
		t.Fatalf("scaled position (%v,%v), want (1000,0)", p.X, p.Y)
	}
	if p.Pressure != 1 {
		t.Fatalf("pressure = %v, want 1", p.Pressure)
	}
	if p.Size != 0.5 {
		t.Fatalf("size = %v, want 0.5", p.Size)
	}
}

func TestTrackerDefaultsPressureWithoutAxis(t *testing.T) {
	tr := newTracker(100, 100, absRange{0, 99}, absRange{0, 99}, absRange{}, absRange{})

	tr.apply(evAbs, absMTSlot, 0)
	tr.apply(evAbs, absMTTrackingID, 1)
	events := tr.commit(1)

	if p := events[0].Pointers[0].Pressure; p != 1 {
		t.Fatalf("pressure = %v, want fallback 1", p)
	}
}

func TestTrackerIgnoresKeyEvents(t *testing.T) {
	tr := newTestTracker()
	tr.apply(evKey, btnTouch, 1)
	if events := tr.commit(1); len(events) != 0 {
		t.Fatalf("BTN_TOUCH alone produced events: %+v", events)
	}
}

func TestTrackerIgnoresOutOfRangeSlot(t *testing.T) {
	tr := newTestTracker()
	tr.apply(evAbs, absMTSlot, 99)
	tr.apply(evAbs, absMTTrackingID, 1)
	events := tr.commit(1)
	// The tracking id lands in the last selected valid slot (0), so this
	// still emits a down rather than corrupting memory.
	if len(events) != 1 || events[0].ActionCode != motion.ActionDown {
		t.Fatalf("frame = %+v, want single ActionDown", events)
	}
}
