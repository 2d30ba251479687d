package source

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tapwire/agent/internal/metrics"
	"github.com/tapwire/agent/internal/motion"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFactor   = 0.3
)

// MotionHandler adapts one native event and returns the suppression answer.
type MotionHandler func(ev motion.Event) bool

// OfferHandler negotiates a forwarding session from a remote SDP offer and
// returns the local answer.
type OfferHandler func(sessionID, sdp string) (string, error)

// WSConfig holds control-channel connection settings.
type WSConfig struct {
	ServerURL  string
	AgentID    string
	AuthToken  string
	DeviceName string
	Version    string
	SurfaceW   int
	SurfaceH   int
}

// WSClient maintains the control channel to the controller server. Motion
// frames are handled on the read goroutine so the suppression ack reflects
// synchronous consumer decisions, exactly like an OS view callback would.
type WSClient struct {
	config   WSConfig
	onMotion MotionHandler
	onOffer  OfferHandler
	logger   *zap.Logger

	conn     *websocket.Conn
	connMu   sync.RWMutex
	sendChan chan []byte
	done     chan struct{}
	stopOnce sync.Once

	isRunning bool
	runningMu sync.RWMutex
}

// NewWSClient creates a control-channel client. onOffer may be nil when
// WebRTC forwarding is disabled.
func NewWSClient(cfg WSConfig, onMotion MotionHandler, onOffer OfferHandler, logger *zap.Logger) *WSClient {
	return &WSClient{
		config:   cfg,
		onMotion: onMotion,
		onOffer:  onOffer,
		logger:   logger.Named("ws"),
		sendChan: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

// Start runs the connect/reconnect loop until Stop is called. Blocking;
// callers run it in a goroutine.
func (c *WSClient) Start() {
	c.runningMu.Lock()
	if c.isRunning {
		c.runningMu.Unlock()
		return
	}
	c.isRunning = true
	c.runningMu.Unlock()

	c.reconnectLoop()
}

// Stop closes the connection and halts reconnection attempts.
func (c *WSClient) Stop() {
	c.stopOnce.Do(func() {
		c.runningMu.Lock()
		c.isRunning = false
		c.runningMu.Unlock()

		close(c.done)

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		c.logger.Info("control channel stopped")
	})
}

// PublishStatus queues a status frame with the given metrics snapshot.
// Dropped silently when the outbound queue is full or the channel is down.
func (c *WSClient) PublishStatus(snap metrics.Snapshot) {
	c.enqueue(marshalFrame(statusFrame{Type: frameStatus, Metrics: snap}))
}

func (c *WSClient) enqueue(data []byte) {
	select {
	case c.sendChan <- data:
	default:
		c.logger.Warn("outbound queue full, frame dropped")
	}
}

func (c *WSClient) connect() error {
	wsURL, err := c.buildWSURL()
	if err != nil {
		return fmt.Errorf("failed to build control URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	conn.SetReadLimit(maxMessageSize)

	c.enqueue(marshalFrame(helloFrame{
		Type:       frameHello,
		AgentID:    c.config.AgentID,
		DeviceName: c.config.DeviceName,
		Version:    c.config.Version,
		SurfaceW:   c.config.SurfaceW,
		SurfaceH:   c.config.SurfaceH,
	}))

	c.logger.Info("connected", zap.String("server", c.config.ServerURL))
	return nil
}

func (c *WSClient) buildWSURL() (string, error) {
	serverURL, err := url.Parse(c.config.ServerURL)
	if err != nil {
		return "", err
	}

	switch serverURL.Scheme {
	case "https":
		serverURL.Scheme = "wss"
	case "http":
		serverURL.Scheme = "ws"
	}

	serverURL.Path = fmt.Sprintf("/api/v1/devices/%s/input", c.config.AgentID)
	q := serverURL.Query()
	q.Set("token", c.config.AuthToken)
	serverURL.RawQuery = q.Encode()

	return serverURL.String(), nil
}

func (c *WSClient) reconnectLoop() {
	backoff := initialBackoff

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.connect(); err != nil {
			c.logger.Warn("connection failed", zap.Error(err))

			jitter := time.Duration(float64(backoff) * jitterFactor * (rand.Float64()*2 - 1))
			sleep := backoff + jitter
			if sleep < 0 {
				sleep = backoff
			}

			c.logger.Info("retrying", zap.Duration("delay", sleep))
			select {
			case <-c.done:
				return
			case <-time.After(sleep):
			}

			backoff = time.Duration(float64(backoff) * backoffFactor)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff

		done := make(chan struct{})
		go c.writePump(done)
		c.readPump()
		close(done)

		c.runningMu.RLock()
		running := c.isRunning
		c.runningMu.RUnlock()
		if !running {
			return
		}
	}
}

func (c *WSClient) readPump() {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}

		c.handleFrame(message)
	}
}

// handleFrame routes one inbound frame. Motion frames stay on the read
// goroutine; everything the adapter dispatches for them happens before the
// ack is queued.
func (c *WSClient) handleFrame(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.logger.Warn("unparseable frame", zap.Error(err))
		return
	}

	switch env.Type {
	case frameMotion:
		var frame motionFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("bad motion frame", zap.Error(err))
			return
		}
		if err := frame.validate(); err != nil {
			c.logger.Warn("invalid motion frame", zap.Error(err))
			return
		}

		suppress := c.onMotion(frame.sample())
		c.enqueue(marshalFrame(ackFrame{Type: frameAck, Seq: frame.Seq, Suppress: suppress}))

	case frameOffer:
		var frame offerFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("bad offer frame", zap.Error(err))
			return
		}
		c.handleOffer(frame)

	default:
		// Server acks and unknown frames are ignored.
	}
}

func (c *WSClient) handleOffer(frame offerFrame) {
	if c.onOffer == nil {
		c.enqueue(marshalFrame(errorFrame{
			Type:      frameError,
			SessionID: frame.SessionID,
			Message:   "forwarding disabled",
		}))
		return
	}

	// Negotiation can block on ICE gathering; keep the read pump alive.
	go func() {
		answer, err := c.onOffer(frame.SessionID, frame.SDP)
		if err != nil {
			c.logger.Warn("offer rejected", zap.String("sessionId", frame.SessionID), zap.Error(err))
			c.enqueue(marshalFrame(errorFrame{
				Type:      frameError,
				SessionID: frame.SessionID,
				Message:   err.Error(),
			}))
			return
		}
		c.enqueue(marshalFrame(answerFrame{
			Type:      frameAnswer,
			SessionID: frame.SessionID,
			SDP:       answer,
		}))
	}()
}

func (c *WSClient) writePump(done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.done:
			return

		case message := <-c.sendChan:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
