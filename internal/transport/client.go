package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/metrics"
)

var (
	// ErrReconnectExhausted is recorded once the retry budget runs out.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	// ErrNotConnected is returned by Connect when Disconnect raced the dial.
	ErrNotConnected = errors.New("client disconnected")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the connection state.
type Status struct {
	State      State
	RetryCount int
	LastError  string
}

// Config holds connection and reconnection settings.
type Config struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval sends WebSocket control pings; zero disables keepalive.
	PingInterval time.Duration
	// ReadTimeout bounds the silence between frames; must exceed PingInterval.
	ReadTimeout time.Duration
}

// DefaultConfig returns the reconnect policy 5 retries, 3s base, 30s cap.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       5,
		BaseDelay:        3 * time.Second,
		MaxDelay:         30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     25 * time.Second,
		ReadTimeout:      60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d Dialer) Option { return func(c *Client) { c.dialer = d } }

// WithClock sets the clock used for reconnect timers.
func WithClock(clk clock.Clock) Option { return func(c *Client) { c.clock = clk } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// Client is a duplex JSON connection to the chat backend with bounded
// exponential-backoff reconnection. It owns its socket and reconnect timer.
type Client struct {
	cfg     Config
	backoff Backoff
	dialer  Dialer
	clock   clock.Clock
	log     *slog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	connDone    chan struct{}
	gen         uint64
	status      Status
	url         string
	intentional bool
	timer       clock.Timer

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	onMessage  []func(Envelope)
	onState    []func(Status)

	wg sync.WaitGroup
}

// NewClient creates a disconnected client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		backoff: Backoff{Base: cfg.BaseDelay, Max: cfg.MaxDelay},
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		clock:   clock.Real(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMessage registers a handler for every decoded non-pong frame.
// Handlers run on the read goroutine and must not block.
func (c *Client) OnMessage(handler func(Envelope)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onMessage = append(c.onMessage, handler)
}

// OnStateChange registers a handler for state transitions.
func (c *Client) OnStateChange(handler func(Status)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.onState = append(c.onState, handler)
}

// Status returns a snapshot of the connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connected reports whether the client is in the Connected state.
func (c *Client) Connected() bool {
	return c.Status().State == StateConnected
}

// Connect dials url. Failures are recorded as LastError, move the client to
// Error, and enter the reconnect policy; the returned error is informational.
func (c *Client) Connect(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.status.State == StateConnected || c.status.State == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.url = url
	c.intentional = false
	c.status.RetryCount = 0
	c.stopTimerLocked()
	c.mu.Unlock()

	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		return ErrNotConnected
	}
	url := c.url
	changed := c.transitionLocked(StateConnecting)
	snap := c.status
	c.mu.Unlock()
	if changed {
		c.notifyState(snap)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, resp, err := c.dialer.DialContext(dialCtx, url, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		err = fmt.Errorf("dial: %w", err)
		c.log.Warn("transport connect failed", "url", url, "error", err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	c.gen++
	gen := c.gen
	done := make(chan struct{})
	c.conn = conn
	c.connDone = done
	c.status.RetryCount = 0
	c.status.LastError = ""
	c.transitionLocked(StateConnected)
	snap = c.status
	c.wg.Add(1)
	if c.cfg.PingInterval > 0 {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	c.log.Info("transport connected", "url", url)
	c.notifyState(snap)

	go c.readLoop(conn, gen)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn, done)
	}

	// liveness probe; the matching pong is consumed by readLoop
	c.Send(Envelope{Type: TypePing})
	return nil
}

// Send serializes msg and writes it when Connected. It never queues.
func (c *Client) Send(msg any) bool {
	c.mu.Lock()
	conn := c.conn
	state := c.status.State
	c.mu.Unlock()

	if state != StateConnected || conn == nil {
		c.log.Warn("transport send skipped", "state", state.String())
		metrics.TransportDropped.WithLabelValues("not_connected").Inc()
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("transport marshal", "error", err)
		metrics.TransportDropped.WithLabelValues("marshal").Inc()
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("transport write failed", "error", err)
		metrics.TransportDropped.WithLabelValues("write").Inc()
		return false
	}
	return true
}

// Disconnect closes the connection with status 1000 and suppresses reconnection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	c.stopTimerLocked()
	conn := c.conn
	done := c.connDone
	c.conn = nil
	c.connDone = nil
	c.gen++
	changed := c.transitionLocked(StateDisconnected)
	snap := c.status
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if conn != nil {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			c.log.Debug("transport close frame", "error", err)
		}
		c.writeMu.Unlock()
		conn.Close()
		c.log.Info("transport disconnected")
	}
	if changed {
		c.notifyState(snap)
	}
}

// Close disconnects and waits for the connection goroutines to exit.
func (c *Client) Close() {
	c.Disconnect()
	c.wg.Wait()
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	defer c.wg.Done()

	if c.cfg.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		})
	}

	for {
		if c.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		env, err := Decode(data)
		if err != nil {
			c.log.Warn("transport malformed frame", "error", err)
			metrics.TransportDropped.WithLabelValues("malformed").Inc()
			continue
		}

		switch env.Type {
		case TypePong:
			c.log.Debug("transport pong")
			continue
		case TypePing:
			c.Send(Envelope{Type: TypePong})
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug("transport keepalive ping", "error", err)
				return
			}
		}
	}
}

// handleClose runs when the read loop of connection gen exits.
func (c *Client) handleClose(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.intentional {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	done := c.connDone
	c.conn = nil
	c.connDone = nil
	c.transitionLocked(StateDisconnected)
	snap := c.status
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if conn != nil {
		conn.Close()
	}

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Warn("transport closed unexpectedly", "error", err)
	} else {
		c.log.Info("transport closed", "error", err)
	}
	c.notifyState(snap)
	c.scheduleReconnect()
}

// fail records err and moves to Error, then applies the reconnect policy.
func (c *Client) fail(err error) {
	c.mu.Lock()
	c.status.LastError = err.Error()
	c.transitionLocked(StateError)
	snap := c.status
	c.mu.Unlock()

	metrics.Errors.WithLabelValues("transport", "dial").Inc()
	c.notifyState(snap)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		return
	}
	if c.status.RetryCount >= c.cfg.MaxRetries {
		c.status.LastError = ErrReconnectExhausted.Error()
		c.transitionLocked(StateError)
		snap := c.status
		c.mu.Unlock()

		c.log.Error("transport giving up", "retries", snap.RetryCount, "error", ErrReconnectExhausted)
		metrics.ReconnectsExhausted.Inc()
		c.notifyState(snap)
		return
	}
	c.status.RetryCount++
	retry := c.status.RetryCount
	delay := c.backoff.Delay(retry)
	c.stopTimerLocked()
	c.timer = c.clock.AfterFunc(delay, c.reconnect)
	c.mu.Unlock()

	metrics.Reconnects.Inc()
	c.log.Info("transport reconnect scheduled", "retry", retry, "delay_ms", delay.Milliseconds())
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.timer = nil
	if c.intentional {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.dial(context.Background())
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// transitionLocked sets the state and reports whether it changed.
func (c *Client) transitionLocked(s State) bool {
	if c.status.State == s {
		return false
	}
	c.status.State = s
	metrics.TransportState.Set(float64(s))
	return true
}

func (c *Client) dispatch(env Envelope) {
	c.handlersMu.RLock()
	handlers := c.onMessage
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(env)
	}
}

func (c *Client) notifyState(s Status) {
	c.handlersMu.RLock()
	handlers := c.onState
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(s)
	}
}
