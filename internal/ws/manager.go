package ws

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/termchat/termchat/internal/status"
	"github.com/termchat/termchat/internal/wire"
	"go.uber.org/zap"
)

// DefaultBackoff is the fixed delay before a reconnection attempt.
const DefaultBackoff = 3 * time.Second

// Manager owns the single transport connection: open, close, error,
// reconnection backoff, and raw send. Delivery is best-effort; Send
// while not Connected is a silent drop, never an error. No component
// other than the manager touches the transport handle or the
// reconnect timer.
type Manager struct {
	endpoint string
	tokens   TokenProvider
	dialer   Dialer
	router   *Router
	machine  *status.Machine
	backoff  time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	conn        Conn
	reconnect   *time.Timer
	intentional bool
}

// NewManager creates a manager for the given websocket endpoint.
// backoff <= 0 selects DefaultBackoff.
func NewManager(endpoint string, tokens TokenProvider, dialer Dialer, router *Router, machine *status.Machine, backoff time.Duration, logger *zap.Logger) *Manager {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Manager{
		endpoint: endpoint,
		tokens:   tokens,
		dialer:   dialer,
		router:   router,
		machine:  machine,
		backoff:  backoff,
		logger:   logger,
	}
}

// Connect opens the transport. Idempotent: a no-op when already
// Connecting or Connected. When no credential is available the attempt
// is skipped and the state stays Disconnected.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.machine.Is(status.Connecting, status.Connected) {
		m.mu.Unlock()
		return
	}

	token := m.tokens.Token()
	if token == "" {
		m.mu.Unlock()
		m.logger.Debug("no credential, skipping connect")
		return
	}

	if err := m.machine.Transition(status.Connecting); err != nil {
		m.mu.Unlock()
		m.logger.Warn("connect rejected", zap.Error(err))
		return
	}
	m.intentional = false
	m.mu.Unlock()

	// The dial happens off the caller's goroutine; Connect never blocks.
	go m.dial(token)
}

func (m *Manager) dial(token string) {
	endpoint := m.endpoint + "?token=" + url.QueryEscape(token)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := m.dialer.Dial(ctx, endpoint)

	m.mu.Lock()
	if m.intentional {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("connect failed", zap.Error(err))
		_ = m.machine.Transition(status.Reconnecting)
		m.mu.Lock()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}
	m.conn = conn
	m.mu.Unlock()

	m.logger.Info("connected", zap.String("endpoint", m.endpoint))
	_ = m.machine.Transition(status.Connected)

	go m.readLoop(conn)
}

// readLoop is the single dispatch path: inbound frames are handled one
// at a time, in transport delivery order. This is what makes the
// per-room mailbox ordering hold.
func (m *Manager) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn, err)
			return
		}
		m.router.Dispatch(data)
	}
}

func (m *Manager) handleClose(conn Conn, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// A stale loop for a connection already replaced or torn down.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	intentional := m.intentional
	m.mu.Unlock()

	_ = conn.Close()

	if intentional {
		return
	}

	m.logger.Warn("connection lost", zap.Error(err))
	_ = m.machine.Transition(status.Reconnecting)

	m.mu.Lock()
	m.scheduleReconnectLocked()
	m.mu.Unlock()
}

// scheduleReconnectLocked arms the reconnect timer. At most one timer
// is pending at any time. Caller must hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnect != nil || m.intentional {
		return
	}
	m.reconnect = time.AfterFunc(m.backoff, func() {
		m.mu.Lock()
		m.reconnect = nil
		m.mu.Unlock()
		m.Connect()
	})
}

// Send serializes and transmits a frame when Connected. Otherwise it
// is a silent no-op: no queuing, no error. At-most-once delivery is
// the contract here.
func (m *Manager) Send(f wire.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || !m.machine.Is(status.Connected) {
		m.logger.Debug("dropping frame while disconnected", zap.String("type", f.Type))
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		m.logger.Error("encode frame", zap.Error(err), zap.String("type", f.Type))
		return
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// The read loop observes the broken connection and drives the
		// reconnect; nothing to do here but record it.
		m.logger.Warn("write failed", zap.Error(err), zap.String("type", f.Type))
	}
}

// Teardown cancels any pending reconnect timer and closes the
// transport. The close is flagged intentional so the close handler
// does not schedule a reconnect. The manager ends in Disconnected.
func (m *Manager) Teardown() {
	m.mu.Lock()
	m.intentional = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if !m.machine.Is(status.Disconnected) {
		_ = m.machine.Transition(status.Disconnected)
	}
	m.logger.Info("connection torn down")
}
