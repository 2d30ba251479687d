// Package forward streams adapted touch/pointer events to remote viewers
// over WebRTC data channels. Sessions are negotiated by the controller
// through the control channel: it sends an SDP offer carrying a "touch"
// data channel, the agent answers, events flow one way.
package forward

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/tapwire/agent/pkg/input"
)

const (
	touchChannelLabel = "touch"
	iceGatherTimeout  = 20 * time.Second
)

// wireTouch is one contact on the wire, logical coordinates only.
type wireTouch struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
	Size     float64 `json:"size"`
}

// wireEvent is one adapted event on the data channel.
type wireEvent struct {
	Kind    string      `json:"kind"`
	Time    int64       `json:"time"`
	Touches []wireTouch `json:"touches,omitempty"`
	X       float64     `json:"x,omitempty"`
	Y       float64     `json:"y,omitempty"`
}

func encodeTouches(kind string, touches []*input.TouchEvent) []byte {
	ev := wireEvent{Kind: kind}
	if len(touches) > 0 {
		ev.Time = touches[0].Time
	}
	ev.Touches = make([]wireTouch, len(touches))
	for i, t := range touches {
		ev.Touches[i] = wireTouch{ID: t.ID, X: t.X, Y: t.Y, Pressure: t.Pressure, Size: t.Size}
	}
	data, _ := json.Marshal(ev)
	return data
}

func encodePointer(kind string, ev *input.PointerEvent) []byte {
	data, _ := json.Marshal(wireEvent{Kind: kind, Time: ev.Time, X: ev.X, Y: ev.Y})
	return data
}

// parseICEServers turns configured URLs into pion ICE servers, defaulting
// to a public STUN server when none are configured.
func parseICEServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

// Session is one negotiated viewer connection.
type Session struct {
	id     string
	pc     *webrtc.PeerConnection
	logger *zap.Logger

	mu sync.RWMutex
	dc *webrtc.DataChannel
}

func (s *Session) channel() *webrtc.DataChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dc
}

// send drops silently when the channel is not open; input events are
// ephemeral and a viewer mid-negotiation simply misses them.
func (s *Session) send(data []byte) {
	dc := s.channel()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	if err := dc.Send(data); err != nil {
		s.logger.Warn("data channel send failed", zap.Error(err))
	}
}

func (s *Session) close() {
	if s.pc != nil {
		s.pc.Close()
	}
}

// Manager owns all forwarding sessions and exposes them collectively as an
// input.Sink.
type Manager struct {
	iceServers []webrtc.ICEServer
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager using the configured ICE server URLs.
func NewManager(iceURLs []string, logger *zap.Logger) *Manager {
	return &Manager{
		iceServers: parseICEServers(iceURLs),
		logger:     logger.Named("forward"),
		sessions:   make(map[string]*Session),
	}
}

// HandleOffer negotiates a new session from a remote SDP offer and returns
// the local answer SDP. sessionID may be empty, in which case one is
// generated.
func (m *Manager) HandleOffer(sessionID, offerSDP string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: m.iceServers})
	if err != nil {
		return "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	session := &Session{
		id:     sessionID,
		pc:     pc,
		logger: m.logger.With(zap.String("sessionId", sessionID)),
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != touchChannelLabel {
			return
		}
		session.mu.Lock()
		session.dc = dc
		session.mu.Unlock()
		dc.OnOpen(func() {
			session.logger.Info("touch channel open")
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			m.remove(sessionID)
		}
	})

	// Register before negotiation starts so a Failed/Closed transition
	// during ICE gathering finds the session to tear down.
	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		m.remove(sessionID)
		return "", fmt.Errorf("failed to set remote offer: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		m.remove(sessionID)
		return "", fmt.Errorf("failed to create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		m.remove(sessionID)
		return "", fmt.Errorf("failed to set local answer: %w", err)
	}

	select {
	case <-gathered:
	case <-time.After(iceGatherTimeout):
		m.remove(sessionID)
		return "", fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	}

	switch pc.ConnectionState() {
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		m.remove(sessionID)
		return "", fmt.Errorf("connection failed during negotiation")
	}

	m.logger.Info("session negotiated", zap.String("sessionId", sessionID))
	return pc.LocalDescription().SDP, nil
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		session.close()
		m.logger.Info("session closed", zap.String("sessionId", sessionID))
	}
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// SessionCount reports the number of negotiated sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) broadcast(data []byte) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.send(data)
	}
}

func (m *Manager) OnTouchStart(touches []*input.TouchEvent) {
	m.broadcast(encodeTouches("touchStart", touches))
}

func (m *Manager) OnTouchEnd(touches []*input.TouchEvent) {
	m.broadcast(encodeTouches("touchEnd", touches))
}

func (m *Manager) OnTouchMove(touches []*input.TouchEvent) {
	m.broadcast(encodeTouches("touchMove", touches))
}

func (m *Manager) OnPointerStart(ev *input.PointerEvent) {
	m.broadcast(encodePointer("pointerStart", ev))
}

func (m *Manager) OnPointerEnd(ev *input.PointerEvent) {
	m.broadcast(encodePointer("pointerEnd", ev))
}

func (m *Manager) OnPointerDrag(ev *input.PointerEvent) {
	m.broadcast(encodePointer("pointerDrag", ev))
}
