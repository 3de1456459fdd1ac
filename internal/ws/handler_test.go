package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hubenschmidt/persian-voice-chat/internal/conversation"
	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/trace"
	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T, cfg HandlerConfig) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/ws/chat", NewHandler(cfg))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, env transport.Envelope) transport.Envelope {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) transport.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	got, err := transport.Decode(data)
	require.NoError(t, err)
	return got
}

func TestPingPong(t *testing.T) {
	conn := dial(t, newServer(t, HandlerConfig{}))
	got := roundTrip(t, conn, transport.Envelope{Type: transport.TypePing})
	assert.Equal(t, transport.TypePong, got.Type)
}

func TestTextAnsweredWithCorrelatedMessage(t *testing.T) {
	conn := dial(t, newServer(t, HandlerConfig{}))

	got := roundTrip(t, conn, transport.NewText("req-1", "  سلام  ", time.Now()))

	assert.Equal(t, transport.TypeMessage, got.Type)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "سلام", got.UserMessage)
	assert.Equal(t, reply.IntentGreeting, got.Intent)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, string(reply.EmotionNeutral), got.Emotion)
	assert.Contains(t, reply.NewEngine(nil).Selector().Pool(reply.IntentGreeting), got.BotMessage)
	assert.NotEmpty(t, got.Timestamp)
}

func TestInvalidFramesGetErrorFrames(t *testing.T) {
	conn := dial(t, newServer(t, HandlerConfig{MaxTextLength: 10}))

	tests := []struct {
		name string
		send func() error
		want string
	}{
		{"empty text", func() error { return conn.WriteJSON(transport.NewText("r1", "   ", time.Now())) }, msgInvalidText},
		{"too long", func() error { return conn.WriteJSON(transport.NewText("r2", strings.Repeat("س", 11), time.Now())) }, msgTextTooLong},
		{"digits only", func() error { return conn.WriteJSON(transport.NewText("r3", "1234", time.Now())) }, msgInvalidText},
		{"audio", func() error { return conn.WriteJSON(transport.Envelope{Type: transport.TypeAudio, Data: "AAAA"}) }, msgAudioUnsupported},
		{"binary", func() error { return conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}) }, msgAudioUnsupported},
		{"malformed", func() error { return conn.WriteMessage(websocket.TextMessage, []byte("{")) }, msgMalformed},
		{"unknown type", func() error { return conn.WriteJSON(transport.Envelope{Type: "video"}) }, msgUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.send())
			got := read(t, conn)
			assert.Equal(t, transport.TypeError, got.Type)
			assert.Equal(t, tt.want, got.Message)
		})
	}

	// the session survives bad frames
	got := roundTrip(t, conn, transport.NewText("r9", "ممنون", time.Now()))
	assert.Equal(t, reply.IntentThanks, got.Intent)
}

func TestAdmissionControl(t *testing.T) {
	url := newServer(t, HandlerConfig{MaxConcurrent: 1})
	first := dial(t, url)
	roundTrip(t, first, transport.Envelope{Type: transport.TypePing})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

type memTraces struct {
	mu       sync.Mutex
	sessions []trace.Session
	turns    []trace.Turn
	ended    []string
}

func (m *memTraces) CreateSession(_ context.Context, s trace.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memTraces) EndSession(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, id)
	return nil
}

func (m *memTraces) RecordTurn(_ context.Context, t trace.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return nil
}

func (m *memTraces) endedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ended)
}

func TestSessionsAreTraced(t *testing.T) {
	traces := &memTraces{}
	conn := dial(t, newServer(t, HandlerConfig{Traces: traces}))

	roundTrip(t, conn, transport.NewText("a", "سلام", time.Now()))
	roundTrip(t, conn, transport.NewText("b", "", time.Now()))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool { return traces.endedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	traces.mu.Lock()
	defer traces.mu.Unlock()
	require.Len(t, traces.sessions, 1)
	require.Len(t, traces.turns, 2)
	assert.Equal(t, trace.StatusOK, traces.turns[0].Status)
	assert.Equal(t, reply.IntentGreeting, traces.turns[0].Intent)
	assert.Equal(t, trace.StatusRejected, traces.turns[1].Status)
	assert.Equal(t, traces.sessions[0].ID, traces.turns[0].SessionID)
}

type nullCapture struct{}

func (nullCapture) Supported() bool                        { return false }
func (nullCapture) Start(conversation.CaptureEvents) error { return nil }
func (nullCapture) Stop()                                  {}
func (nullCapture) Abort()                                 {}

// TestOrchestratorRemoteRoundTrip drives a remote-provider conversation
// through the client against the real handler.
func TestOrchestratorRemoteRoundTrip(t *testing.T) {
	url := newServer(t, HandlerConfig{})

	client := transport.NewClient(transport.DefaultConfig())
	defer client.Close()

	turns := make(chan conversation.Turn, 1)
	cfg := conversation.DefaultConfig()
	cfg.Provider = conversation.ProviderRemote
	o := conversation.New(cfg,
		conversation.WithCapture(nullCapture{}),
		conversation.WithRemote(client),
		conversation.WithHooks(conversation.Hooks{OnTurn: func(t conversation.Turn) { turns <- t }}),
	)
	client.OnMessage(o.HandleRemote)
	client.OnStateChange(o.HandleConnection)
	require.NoError(t, client.Connect(context.Background(), url))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	o.SubmitText("یه جک بگو")
	select {
	case turn := <-turns:
		assert.Equal(t, "remote", turn.Source)
		assert.Equal(t, reply.IntentJoke, turn.Intent)
		assert.Equal(t, reply.EmotionNeutral, turn.Emotion)
		assert.Contains(t, reply.NewEngine(nil).Selector().Pool(reply.IntentJoke), turn.BotText)
	case <-time.After(3 * time.Second):
		t.Fatal("no turn")
	}
}
