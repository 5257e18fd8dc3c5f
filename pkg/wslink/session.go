// Package wslink implements the two outbound, reconnecting WebSocket
// links the bridge keeps open: the MkIX link and the OneBot link. Both
// are built on the same reconnect/readiness/liveness contract in
// Session; the link-specific dial and post-connect behaviour live in
// mkix.go and onebot.go.
package wslink

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkixbridge/bridge/pkg/logger"
)

const (
	handshakeTimeout = 10 * time.Second
	readDeadline     = 60 * time.Second
	pingInterval     = 30 * time.Second
	reconnectDelay   = 5 * time.Second
	maxFrameSize     = 8 << 20 // 8 MiB, matching MkIX's own frame cap
)

// Dialer builds the URL and headers for one connection attempt. It is
// called fresh on every (re)connect, so it can refresh a short-lived
// token.
type Dialer func(ctx context.Context) (url string, header http.Header, err error)

// OnConnect runs once per successful connection, before messages are
// dispatched to OnMessage. Used for OneBot's lifecycle/heartbeat hooks.
type OnConnect func(session *Session)

// Session is one reconnecting WebSocket client link.
type Session struct {
	name      string
	dial      Dialer
	onConnect OnConnect
	onMessage func(data []byte)
	tlsConfig *tls.Config

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
}

// New builds a Session identified by name (used only in log lines).
func New(name string, dial Dialer, onConnect OnConnect, onMessage func(data []byte)) *Session {
	return &Session{
		name:      name,
		dial:      dial,
		onConnect: onConnect,
		onMessage: onMessage,
		ready:     make(chan struct{}),
	}
}

// WithTLSConfig overrides the TLS config used for wss:// dials, e.g. to
// skip certificate verification when the operator sets ssl_check: false.
func (s *Session) WithTLSConfig(tlsConfig *tls.Config) *Session {
	s.tlsConfig = tlsConfig
	return s
}

// Run dials, reconnecting with a fixed delay on failure or drop, until
// ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connect(ctx); err != nil {
			logger.WarnCF(s.name, "connect failed, retrying", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		s.readyOnce.Do(func() { close(s.ready) })
		s.listen(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// WaitReady blocks until the first successful connection, or ctx is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) connect(ctx context.Context) error {
	url, header, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("building dial target: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   maxFrameSize,
		WriteBufferSize:  maxFrameSize,
		TLSClientConfig:  s.tlsConfig,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}

	conn.SetReadLimit(maxFrameSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.pinger(ctx, conn)
	if s.onConnect != nil {
		s.onConnect(s)
	}

	logger.InfoC(s.name, "connected")
	return nil
}

func (s *Session) pinger(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Session) listen(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.WarnCF(s.name, "read error, dropping connection", map[string]any{"error": err.Error()})
			s.mu.Lock()
			if s.conn == conn {
				s.conn.Close()
				s.conn = nil
			}
			s.mu.Unlock()
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		if s.onMessage != nil {
			go s.onMessage(data)
		}
	}
}

// Send writes data as a single text frame, serialized against concurrent
// writers (ping, other senders).
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%s link not connected", s.name)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Alive reports whether the link currently holds an open connection.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}
