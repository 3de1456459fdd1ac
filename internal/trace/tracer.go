package trace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	maxTextLen   = 500
	writeTimeout = 5 * time.Second
)

type msgKind int

const (
	kindSessionStart msgKind = iota
	kindTurn
	kindSessionEnd
)

type traceMsg struct {
	kind    msgKind
	session Session
	turn    Turn
	at      time.Time
}

// Tracer writes one session's records asynchronously. All methods are
// nil-safe so callers can trace unconditionally.
type Tracer struct {
	w         Writer
	sessionID string
	ch        chan traceMsg
	done      chan struct{}
}

// NewTracer records sess as started and returns its tracer. Must call Close.
func NewTracer(w Writer, sess Session) *Tracer {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	t := &Tracer{
		w:         w,
		sessionID: sess.ID,
		ch:        make(chan traceMsg, 64),
		done:      make(chan struct{}),
	}
	t.ch <- traceMsg{kind: kindSessionStart, session: sess}
	go t.drain()
	return t
}

func (t *Tracer) SessionID() string {
	if t == nil {
		return ""
	}
	return t.sessionID
}

func (t *Tracer) drain() {
	defer close(t.done)
	for msg := range t.ch {
		t.handle(msg)
	}
}

func (t *Tracer) handle(m traceMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch m.kind {
	case kindSessionStart:
		err = t.w.CreateSession(ctx, m.session)
	case kindTurn:
		err = t.w.RecordTurn(ctx, m.turn)
	case kindSessionEnd:
		err = t.w.EndSession(ctx, t.sessionID, m.at)
	}
	if err != nil {
		slog.Warn("trace write failed", "kind", int(m.kind), "session_id", t.sessionID, "error", err)
	}
}

// RecordTurn queues turn for this session. Turns are dropped when the
// writer falls behind.
func (t *Tracer) RecordTurn(turn Turn) {
	if t == nil {
		return
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	turn.SessionID = t.sessionID
	turn.UserText = truncate(turn.UserText, maxTextLen)
	turn.BotText = truncate(turn.BotText, maxTextLen)

	select {
	case t.ch <- traceMsg{kind: kindTurn, turn: turn}:
	default:
		slog.Warn("trace queue full, turn dropped", "session_id", t.sessionID)
	}
}

// Close marks the session ended and waits for pending writes.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.ch <- traceMsg{kind: kindSessionEnd, at: time.Now()}
	close(t.ch)
	<-t.done
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
