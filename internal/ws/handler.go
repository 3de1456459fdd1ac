package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/persian-voice-chat/internal/metrics"
	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/trace"
	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Persian error frames.
const (
	msgAudioUnsupported = "پردازش صدا در این سرور پشتیبانی نمی‌شود. لطفاً متن بفرستید."
	msgInvalidText      = "متن نامعتبر است."
	msgTextTooLong      = "متن خیلی طولانی است."
	msgUnknownType      = "نوع پیام پشتیبانی نمی‌شود."
	msgMalformed        = "پیام نامعتبر است."
)

// HandlerConfig holds the shared dependencies of all chat sessions.
type HandlerConfig struct {
	Engine        *reply.Engine
	MaxConcurrent int
	MaxTextLength int
	// Traces receives session and turn records; nil disables tracing.
	Traces      trace.Writer
	ReadTimeout time.Duration
}

// Handler serves /ws/chat with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates the chat handler and its concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.Engine == nil {
		cfg.Engine = reply.NewEngine(nil)
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// ServeHTTP upgrades the connection and runs the chat session.
// Returns 503 if at max concurrent connections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.ConnectionsActive.Inc()
	metrics.ConnectionsTotal.Inc()
	defer metrics.ConnectionsActive.Dec()

	h.runSession(conn, r)
}

func (h *Handler) runSession(conn *websocket.Conn, r *http.Request) {
	sess := trace.Session{
		ID:         uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		StartedAt:  time.Now(),
	}
	var tracer *trace.Tracer
	if h.cfg.Traces != nil {
		tracer = trace.NewTracer(h.cfg.Traces, sess)
	}
	defer tracer.Close()

	slog.Info("chat started", "session_id", sess.ID, "remote_addr", sess.RemoteAddr)

	s := &chatSession{
		id:     sess.ID,
		h:      h,
		send:   newEventSender(conn),
		tracer: tracer,
	}
	s.readLoop(conn)

	slog.Info("chat ended", "session_id", sess.ID, "turns", s.turns)
}

type chatSession struct {
	id     string
	h      *Handler
	send   func(transport.Envelope)
	tracer *trace.Tracer
	turns  int
}

// readLoop answers frames until the peer goes away.
func (s *chatSession) readLoop(conn *websocket.Conn) {
	if d := s.h.cfg.ReadTimeout; d > 0 {
		conn.SetReadDeadline(time.Now().Add(d))
		conn.SetPingHandler(func(data string) error {
			conn.SetReadDeadline(time.Now().Add(d))
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})
	}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("connection closed", "session_id", s.id, "error", err)
			} else {
				slog.Info("connection closed", "session_id", s.id, "error", err)
			}
			return
		}
		if d := s.h.cfg.ReadTimeout; d > 0 {
			conn.SetReadDeadline(time.Now().Add(d))
		}

		if msgType != websocket.TextMessage {
			metrics.GatewayMessages.WithLabelValues("binary").Inc()
			s.sendError("", msgAudioUnsupported)
			continue
		}
		env, err := transport.Decode(data)
		if err != nil {
			metrics.GatewayMessages.WithLabelValues("malformed").Inc()
			slog.Warn("malformed frame", "session_id", s.id, "error", err)
			s.sendError("", msgMalformed)
			continue
		}
		metrics.GatewayMessages.WithLabelValues(string(env.Type)).Inc()
		s.handle(env)
	}
}

func (s *chatSession) handle(env transport.Envelope) {
	switch env.Type {
	case transport.TypePing:
		s.send(transport.Envelope{Type: transport.TypePong, Timestamp: now()})
	case transport.TypePong:
	case transport.TypeText:
		s.answer(env)
	case transport.TypeAudio:
		s.sendError(env.RequestID, msgAudioUnsupported)
	default:
		s.sendError(env.RequestID, msgUnknownType)
	}
}

// answer runs the rule engine on one text frame and replies with a
// message correlated by request_id.
func (s *chatSession) answer(env transport.Envelope) {
	started := time.Now()
	text, err := validateText(env.Text, s.h.cfg.MaxTextLength)
	if err != nil {
		msg := msgInvalidText
		if errors.Is(err, errTooLongText) {
			msg = msgTextTooLong
		}
		slog.Info("text rejected", "session_id", s.id, "request_id", env.RequestID, "error", err)
		metrics.Errors.WithLabelValues("gateway", "validation").Inc()
		s.sendError(env.RequestID, msg)
		s.tracer.RecordTurn(trace.Turn{
			RequestID: env.RequestID,
			StartedAt: started,
			UserText:  env.Text,
			Status:    trace.StatusRejected,
			Error:     err.Error(),
		})
		return
	}

	eng := s.h.cfg.Engine
	stage := time.Now()
	ir := eng.Classify(text)
	metrics.StageDuration.WithLabelValues("classify").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	emotion := eng.Tag(text)
	metrics.StageDuration.WithLabelValues("tag").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	botText := eng.Selector().Select(ir.Intent, emotion)
	metrics.StageDuration.WithLabelValues("select").Observe(time.Since(stage).Seconds())

	s.send(transport.Envelope{
		Type:        transport.TypeMessage,
		RequestID:   env.RequestID,
		UserMessage: text,
		BotMessage:  botText,
		Emotion:     string(emotion),
		Intent:      ir.Intent,
		Confidence:  ir.Confidence,
		Timestamp:   now(),
	})
	s.turns++
	metrics.TurnsTotal.WithLabelValues("gateway", ir.Intent).Inc()

	elapsed := time.Since(started)
	slog.Info("chat turn", "session_id", s.id, "request_id", env.RequestID, "intent", ir.Intent, "emotion", string(emotion), "duration_ms", float64(elapsed.Microseconds())/1000)
	s.tracer.RecordTurn(trace.Turn{
		RequestID:  env.RequestID,
		StartedAt:  started,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		UserText:   text,
		BotText:    botText,
		Intent:     ir.Intent,
		Confidence: ir.Confidence,
		Emotion:    string(emotion),
		Status:     trace.StatusOK,
	})
}

func (s *chatSession) sendError(requestID, msg string) {
	s.send(transport.Envelope{Type: transport.TypeError, RequestID: requestID, Message: msg, Timestamp: now()})
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func newEventSender(conn *websocket.Conn) func(transport.Envelope) {
	var mu sync.Mutex
	return func(env transport.Envelope) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(env)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Error("write event", "error", err)
		}
	}
}
