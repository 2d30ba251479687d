package forward

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/tapwire/agent/pkg/input"
)

func TestEncodeTouches(t *testing.T) {
	flag := input.NewFlag()
	touches := []*input.TouchEvent{
		input.NewTouchEvent(99, 10, 20, 1, 0.5, 0.1, flag),
		input.NewTouchEvent(99, 30, 40, 2, 0.6, 0.2, flag),
	}

	var ev wireEvent
	if err := json.Unmarshal(encodeTouches("touchStart", touches), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "touchStart" {
		t.Fatalf("kind = %q, want touchStart", ev.Kind)
	}
	if ev.Time != 99 {
		t.Fatalf("time = %d, want 99", ev.Time)
	}
	if len(ev.Touches) != 2 {
		t.Fatalf("touches = %d, want 2", len(ev.Touches))
	}
	if ev.Touches[1].ID != 2 || ev.Touches[1].X != 30 || ev.Touches[1].Y != 40 {
		t.Fatalf("second touch = %+v", ev.Touches[1])
	}
}

func TestEncodePointer(t *testing.T) {
	var ev wireEvent
	data := encodePointer("pointerDrag", input.NewPointerEvent(7, 1.5, 2.5, true))
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "pointerDrag" || ev.Time != 7 || ev.X != 1.5 || ev.Y != 2.5 {
		t.Fatalf("event = %+v", ev)
	}
	if len(ev.Touches) != 0 {
		t.Fatal("pointer events must not carry a touch list")
	}
}

func TestParseICEServersDefault(t *testing.T) {
	servers := parseICEServers(nil)
	if len(servers) != 1 || len(servers[0].URLs) != 1 {
		t.Fatalf("servers = %+v, want single STUN default", servers)
	}
}

func TestParseICEServersConfigured(t *testing.T) {
	servers := parseICEServers([]string{"stun:stun.example.com:3478", "turn:turn.example.com"})
	if len(servers) != 1 {
		t.Fatalf("server entries = %d, want 1", len(servers))
	}
	if len(servers[0].URLs) != 2 {
		t.Fatalf("urls = %v, want both configured", servers[0].URLs)
	}
}

func TestHandleOfferBadSDPLeavesNoSession(t *testing.T) {
	m := NewManager(nil, zap.NewNop())

	if _, err := m.HandleOffer("session-1", "not an sdp"); err == nil {
		t.Fatal("malformed offer should fail")
	}
	// The session is registered before negotiation so mid-negotiation
	// state changes can tear it down; a failed negotiation must not leave
	// it behind.
	if n := m.SessionCount(); n != 0 {
		t.Fatalf("session count after failed offer = %d, want 0", n)
	}
}

func TestManagerBroadcastWithoutSessions(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	// Must be a safe no-op.
	m.OnTouchMove(nil)
	m.OnPointerDrag(input.NewPointerEvent(0, 0, 0, true))
	if m.SessionCount() != 0 {
		t.Fatalf("session count = %d, want 0", m.SessionCount())
	}
}
