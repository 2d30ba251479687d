// Package source produces native motion events for the adapter: a WebSocket
// control channel fed by the controller server, and on Linux a direct evdev
// multitouch reader.
package source

import (
	"encoding/json"
	"fmt"

	"github.com/tapwire/agent/internal/metrics"
	"github.com/tapwire/agent/internal/motion"
)

// Frame types on the control channel. Inbound frames carry native motion
// events and WebRTC signaling; outbound frames answer with suppression acks,
// session answers and periodic status.
const (
	frameMotion = "motion"
	frameOffer  = "offer"

	frameHello  = "hello"
	frameAck    = "ack"
	frameAnswer = "answer"
	frameStatus = "status"
	frameError  = "error"
)

// envelope is the minimal shape every frame shares.
type envelope struct {
	Type string `json:"type"`
}

// motionFrame is one native multi-touch event as the controller ships it.
type motionFrame struct {
	Type     string           `json:"type"`
	Seq      uint64           `json:"seq"`
	Time     int64            `json:"time"`
	Action   int              `json:"action"`
	Pointers []motion.Pointer `json:"pointers"`
}

func (f *motionFrame) sample() *motion.Sample {
	return &motion.Sample{
		TimeMs:     f.Time,
		ActionCode: f.Action,
		Pointers:   f.Pointers,
	}
}

func (f *motionFrame) validate() error {
	if len(f.Pointers) == 0 {
		return fmt.Errorf("motion frame %d has no pointers", f.Seq)
	}
	return nil
}

// offerFrame starts a WebRTC forwarding session.
type offerFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	SDP       string `json:"sdp"`
}

type helloFrame struct {
	Type       string `json:"type"`
	AgentID    string `json:"agentId"`
	DeviceName string `json:"deviceName"`
	Version    string `json:"version"`
	SurfaceW   int    `json:"surfaceW"`
	SurfaceH   int    `json:"surfaceH"`
}

type ackFrame struct {
	Type     string `json:"type"`
	Seq      uint64 `json:"seq"`
	Suppress bool   `json:"suppress"`
}

type answerFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	SDP       string `json:"sdp"`
}

type statusFrame struct {
	Type    string           `json:"type"`
	Metrics metrics.Snapshot `json:"metrics"`
}

type errorFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

func marshalFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All frame types marshal cleanly; an error here is a programming
		// mistake, not a runtime condition.
		panic(err)
	}
	return data
}
