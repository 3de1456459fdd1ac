package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/metrics"
	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = errors.New("orchestrator already running")

// State is the turn-taking state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
	// StateUnavailable replaces Idle when voice capture is not supported.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Hooks are the orchestrator's observable effects. They run on the loop
// goroutine and must not block.
type Hooks struct {
	OnTurn         func(Turn)
	OnStateChange  func(from, to State)
	OnError        func(*Error)
	OnErrorCleared func()
	OnMuteChange   func(muted bool)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithCapture(c Capture) Option { return func(o *Orchestrator) { o.capture = c } }

func WithSpeaker(s Speaker) Option { return func(o *Orchestrator) { o.speaker = s } }

// WithRemote attaches the remote reply provider. Replies arrive through HandleRemote.
func WithRemote(s Sender) Option { return func(o *Orchestrator) { o.remote = s } }

func WithEngine(e *reply.Engine) Option { return func(o *Orchestrator) { o.engine = e } }

func WithClock(c clock.Clock) Option { return func(o *Orchestrator) { o.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func WithHooks(h Hooks) Option { return func(o *Orchestrator) { o.hooks = h } }

type session struct {
	id        uint64
	startedAt time.Time
	best      string
	bestConf  float64
}

type pendingRequest struct {
	id     string
	text   string
	sentAt time.Time
	timer  clock.Timer
}

// Orchestrator drives listen → process → speak → relisten. All state below the
// queue is owned by the Run goroutine; every entry point posts a closure.
type Orchestrator struct {
	cfg     Config
	gate    Gate
	engine  *reply.Engine
	capture Capture
	speaker Speaker
	remote  Sender
	clock   clock.Clock
	log     *slog.Logger
	hooks   Hooks

	queue   *eventQueue
	running atomic.Bool

	state      State
	muted      bool
	turns      *turnLog
	session    *session
	sessionSeq uint64
	listenT    clock.Timer
	speakID    uint64
	speakSeq   uint64
	pending    *pendingRequest
	remoteDown bool
	// continuing is set once a turn follows an earlier one.
	continuing bool
	resumeT    clock.Timer
	resumeSeq  uint64
	errT       clock.Timer
	errSeq     uint64

	snapMu    sync.RWMutex
	snapState State
	snapMuted bool
	snapTurns []Turn
}

// New builds an orchestrator. It does nothing until Run is called.
func New(cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:   cfg,
		gate:  NewGate(cfg.MinConfidence),
		clock: clock.Real(),
		log:   slog.Default(),
		queue: newEventQueue(),
		turns: newTurnLog(cfg.MaxTurns),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = reply.NewEngine(nil)
	}
	return o
}

// Run executes posted events until ctx is done, then releases timers and
// collaborators. Events still queued at that point, including those triggered
// by the final Abort and Cancel, are dropped.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	o.boot()
	for {
		if ctx.Err() != nil {
			o.shutdown()
			return ctx.Err()
		}
		if f, ok := o.queue.pop(); ok {
			f()
			continue
		}
		select {
		case <-ctx.Done():
		case <-o.queue.signal:
		}
	}
}

func (o *Orchestrator) post(f func()) { o.queue.push(f) }

// Start begins listening. It is a no-op unless the orchestrator is Idle.
func (o *Orchestrator) Start() { o.post(o.start) }

// Stop ends the active capture session immediately; its late events are ignored.
func (o *Orchestrator) Stop() { o.post(o.stop) }

// SetMuted toggles speech output. Muting while speaking cancels the utterance.
func (o *Orchestrator) SetMuted(muted bool) { o.post(func() { o.setMuted(muted) }) }

func (o *Orchestrator) ToggleMute() { o.post(func() { o.setMuted(!o.muted) }) }

// SubmitText runs a typed utterance through the normal turn path.
func (o *Orchestrator) SubmitText(text string) { o.post(func() { o.submitText(text) }) }

// HandleRemote accepts a frame from the remote provider.
func (o *Orchestrator) HandleRemote(env transport.Envelope) { o.post(func() { o.onRemote(env) }) }

// HandleConnection tracks the remote link; an exhausted reconnect budget
// switches the orchestrator to local replies until the link returns.
func (o *Orchestrator) HandleConnection(st transport.Status) {
	o.post(func() { o.onConnection(st) })
}

// State returns the last published state.
func (o *Orchestrator) State() State {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapState
}

func (o *Orchestrator) Muted() bool {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.snapMuted
}

// Turns returns a copy of the conversation log, oldest first.
func (o *Orchestrator) Turns() []Turn {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	out := make([]Turn, len(o.snapTurns))
	copy(out, o.snapTurns)
	return out
}

func (o *Orchestrator) boot() {
	if !o.voiceAvailable() {
		o.setState(StateUnavailable)
		o.raise(newError(KindCaptureUnsupported, "", nil))
	}
}

func (o *Orchestrator) shutdown() {
	o.cancelResume()
	o.stopErrorTimer()
	if o.session != nil {
		o.capture.Abort()
		o.endSession()
	}
	o.cancelSpeak()
	o.clearPending()
	o.queue.reset()
	o.log.Info("conversation stopped", "turns", o.turns.len())
}

func (o *Orchestrator) voiceAvailable() bool {
	return o.capture != nil && o.capture.Supported()
}

func (o *Orchestrator) speechAvailable() bool {
	return o.speaker != nil && o.speaker.Supported()
}

// restState is where a finished cycle lands.
func (o *Orchestrator) restState() State {
	if o.voiceAvailable() {
		return StateIdle
	}
	return StateUnavailable
}

func (o *Orchestrator) start() {
	if o.state != StateIdle {
		o.log.Debug("start ignored", "state", o.state.String())
		return
	}
	if !o.voiceAvailable() {
		o.setState(StateUnavailable)
		o.raise(newError(KindCaptureUnsupported, "", nil))
		return
	}
	o.cancelResume()
	o.cancelSpeak()

	o.sessionSeq++
	sess := &session{id: o.sessionSeq, startedAt: o.clock.Now()}
	o.session = sess
	if err := o.capture.Start(captureSink{o: o, id: sess.id}); err != nil {
		o.session = nil
		o.log.Warn("capture start failed", "session_id", sess.id, "error", err)
		o.raise(newError(KindCaptureFailure, CodeAudioCapture, err))
		return
	}
	o.listenT = o.clock.AfterFunc(o.cfg.ListenTimeout, func() {
		o.post(func() { o.onListenTimeout(sess.id) })
	})
	o.setState(StateListening)
}

func (o *Orchestrator) stop() {
	if o.session == nil {
		return
	}
	o.capture.Stop()
	o.endSession()
	if o.state == StateListening {
		o.setState(o.restState())
	}
}

func (o *Orchestrator) endSession() {
	if o.listenT != nil {
		o.listenT.Stop()
		o.listenT = nil
	}
	o.session = nil
}

// current returns the active session when id still names it.
func (o *Orchestrator) current(id uint64) *session {
	if o.session == nil || o.session.id != id {
		return nil
	}
	return o.session
}

func (o *Orchestrator) onCaptureStarted(id uint64) {
	if s := o.current(id); s != nil {
		o.log.Debug("capture started", "session_id", id)
	}
}

func (o *Orchestrator) onCaptureResult(id uint64, transcript string, confidence float64, final bool) {
	s := o.current(id)
	if s == nil {
		return
	}
	if !final {
		if strings.TrimSpace(transcript) != "" && confidence >= s.bestConf {
			s.best, s.bestConf = transcript, confidence
		}
		return
	}
	o.endSession()
	o.handleTranscript(transcript, confidence, "voice")
}

func (o *Orchestrator) onCaptureError(id uint64, code string) {
	if o.current(id) == nil {
		return
	}
	o.endSession()
	if o.state == StateListening {
		o.setState(o.restState())
	}
	o.raise(newError(KindCaptureFailure, code, nil))
}

// onCaptureEnded handles a cycle that closed without a final result.
func (o *Orchestrator) onCaptureEnded(id uint64) {
	s := o.current(id)
	if s == nil {
		return
	}
	o.endSession()
	if s.best != "" {
		o.handleTranscript(s.best, s.bestConf, "voice")
		return
	}
	o.setState(o.restState())
	o.raise(newError(KindCaptureFailure, CodeNoSpeech, nil))
}

func (o *Orchestrator) onListenTimeout(id uint64) {
	if o.current(id) == nil {
		return
	}
	o.log.Warn("listen timeout", "session_id", id, "timeout_ms", o.cfg.ListenTimeout.Milliseconds())
	o.capture.Abort()
	o.endSession()
	o.setState(o.restState())
	o.raise(newError(KindCaptureFailure, CodeSpeechTimeout, nil))
}

func (o *Orchestrator) submitText(text string) {
	if o.state != StateIdle && o.state != StateUnavailable {
		o.log.Warn("text submission rejected", "state", o.state.String())
		return
	}
	o.cancelResume()
	o.handleTranscript(text, 1.0, "text")
}

func (o *Orchestrator) handleTranscript(text string, confidence float64, input string) {
	if !o.gate.Accept(text, confidence) {
		metrics.GateRejections.Inc()
		o.log.Info("transcript rejected", "input", input, "confidence", confidence)
		o.setState(o.restState())
		o.raise(newError(KindLowConfidence, "", nil))
		return
	}
	o.setState(StateProcessing)
	o.produceReply(strings.TrimSpace(text))
}

func (o *Orchestrator) produceReply(text string) {
	now := o.clock.Now()
	if o.cfg.Provider != ProviderRemote || o.remote == nil {
		o.deliver(text, o.engine.Reply(text), "local", now)
		return
	}
	if o.remoteDown {
		o.fallback(text, "reconnect_exhausted", now, ErrReconnectExhausted)
		return
	}

	reqID := uuid.NewString()
	if !o.remote.Send(transport.NewText(reqID, text, now)) {
		o.fallback(text, "send_failed", now, newError(KindTransportUnavailable, "", nil))
		return
	}
	p := &pendingRequest{id: reqID, text: text, sentAt: now}
	p.timer = o.clock.AfterFunc(o.cfg.RemoteTimeout, func() {
		o.post(func() { o.onRemoteTimeout(reqID) })
	})
	o.pending = p
	o.log.Debug("remote request sent", "request_id", reqID)
}

func (o *Orchestrator) clearPending() *pendingRequest {
	p := o.pending
	if p != nil && p.timer != nil {
		p.timer.Stop()
	}
	o.pending = nil
	return p
}

func (o *Orchestrator) onRemoteTimeout(reqID string) {
	if o.pending == nil || o.pending.id != reqID {
		return
	}
	p := o.clearPending()
	o.fallback(p.text, "timeout", p.sentAt, newError(KindTransportTimeout, "", nil))
}

// matches reports whether env answers the outstanding request. An absent
// request_id is accepted since at most one request is ever in flight.
func (o *Orchestrator) matches(env transport.Envelope) bool {
	if o.pending == nil {
		return false
	}
	return env.RequestID == "" || env.RequestID == o.pending.id
}

func (o *Orchestrator) onRemote(env transport.Envelope) {
	switch env.Type {
	case transport.TypeMessage:
		if !o.matches(env) {
			o.log.Debug("remote reply dropped", "request_id", env.RequestID)
			return
		}
		p := o.clearPending()
		if strings.TrimSpace(env.BotMessage) == "" {
			o.fallback(p.text, "empty_reply", p.sentAt, newError(KindTransportUnavailable, "", nil))
			return
		}
		emotion, ok := reply.ParseEmotion(env.Emotion)
		if !ok {
			emotion = o.engine.Tag(p.text)
		}
		intent, conf := env.Intent, env.Confidence
		if intent == "" {
			ir := o.engine.Classify(p.text)
			intent, conf = ir.Intent, ir.Confidence
		}
		r := reply.Reply{Text: env.BotMessage, Intent: intent, Confidence: conf, Emotion: emotion}
		o.deliver(p.text, r, "remote", p.sentAt)
	case transport.TypeError:
		if !o.matches(env) {
			return
		}
		p := o.clearPending()
		o.fallback(p.text, "remote_error", p.sentAt, newError(KindTransportUnavailable, "", errors.New(env.Message)))
	default:
		o.log.Debug("remote frame ignored", "type", string(env.Type))
	}
}

func (o *Orchestrator) onConnection(st transport.Status) {
	switch st.State {
	case transport.StateConnected:
		if o.remoteDown {
			o.log.Info("remote provider restored")
		}
		o.remoteDown = false
	case transport.StateError:
		if st.LastError == transport.ErrReconnectExhausted.Error() && !o.remoteDown {
			o.remoteDown = true
			o.log.Warn("remote provider lost, using local replies", "error", ErrReconnectExhausted)
			metrics.Errors.WithLabelValues("conversation", KindReconnectExhausted.String()).Inc()
		}
	}
}

// fallback generates the reply locally. Transport failures never reach OnError.
func (o *Orchestrator) fallback(text, reason string, since time.Time, cause error) {
	metrics.ReplyFallbacks.WithLabelValues(reason).Inc()
	o.log.Warn("remote reply fallback", "reason", reason, "error", cause)
	o.deliver(text, o.engine.Reply(text), "local", since)
}

func (o *Orchestrator) deliver(userText string, r reply.Reply, source string, since time.Time) {
	now := o.clock.Now()
	metrics.ReplyDuration.WithLabelValues(source).Observe(now.Sub(since).Seconds())
	metrics.TurnsTotal.WithLabelValues(source, r.Intent).Inc()

	o.continuing = o.turns.len() > 0
	turn := o.turns.append(Turn{
		ID:         uuid.NewString(),
		UserText:   userText,
		BotText:    r.Text,
		Timestamp:  now,
		Emotion:    r.Emotion,
		Intent:     r.Intent,
		Confidence: r.Confidence,
		Source:     source,
	})
	o.publish()
	o.log.Info("turn", "id", turn.ID, "intent", turn.Intent, "emotion", string(turn.Emotion), "source", source)
	if o.hooks.OnTurn != nil {
		o.hooks.OnTurn(turn)
	}

	if o.muted || !o.speechAvailable() {
		o.setState(o.restState())
		o.scheduleResume()
		return
	}
	o.speak(r)
}

func (o *Orchestrator) speak(r reply.Reply) {
	o.speakSeq++
	id := o.speakSeq
	o.speakID = id
	o.setState(StateSpeaking)
	if err := o.speaker.Speak(r.Text, SpeakOptionsFor(r.Emotion, o.cfg.VoiceHint), speakSink{o: o, id: id}); err != nil {
		o.speakID = 0
		o.setState(o.restState())
		o.raise(newError(KindSpeakFailure, "", err))
		o.scheduleResume()
	}
}

func (o *Orchestrator) cancelSpeak() {
	if o.speakID == 0 {
		return
	}
	o.speakID = 0
	o.speaker.Cancel()
}

func (o *Orchestrator) onSpeakStarted(id uint64) {
	if id == o.speakID {
		o.log.Debug("speak started", "speak_id", id)
	}
}

func (o *Orchestrator) onSpeakEnded(id uint64) {
	if id != o.speakID {
		return
	}
	o.speakID = 0
	o.setState(o.restState())
	o.scheduleResume()
}

func (o *Orchestrator) onSpeakError(id uint64, code string) {
	if id != o.speakID {
		return
	}
	o.speakID = 0
	o.setState(o.restState())
	o.raise(newError(KindSpeakFailure, code, nil))
	o.scheduleResume()
}

// scheduleResume re-arms listening after a completed turn. The first turn of a
// conversation never auto-starts.
func (o *Orchestrator) scheduleResume() {
	if !o.continuing || o.muted || !o.voiceAvailable() {
		return
	}
	o.cancelResume()
	o.resumeSeq++
	seq := o.resumeSeq
	o.resumeT = o.clock.AfterFunc(o.cfg.AutoResumeDelay, func() {
		o.post(func() { o.onResume(seq) })
	})
}

func (o *Orchestrator) cancelResume() {
	if o.resumeT != nil {
		o.resumeT.Stop()
		o.resumeT = nil
	}
	o.resumeSeq++
}

func (o *Orchestrator) onResume(seq uint64) {
	if seq != o.resumeSeq {
		return
	}
	o.resumeT = nil
	if o.state == StateIdle && !o.muted {
		o.start()
	}
}

func (o *Orchestrator) setMuted(muted bool) {
	if muted == o.muted {
		return
	}
	o.muted = muted
	o.publish()
	if o.hooks.OnMuteChange != nil {
		o.hooks.OnMuteChange(muted)
	}
	if !muted {
		return
	}
	o.cancelResume()
	if o.state == StateSpeaking {
		o.cancelSpeak()
		o.setState(o.restState())
	}
}

// raise shows err and schedules its removal after ErrorDisplay.
func (o *Orchestrator) raise(err *Error) {
	metrics.Errors.WithLabelValues("conversation", err.Kind.String()).Inc()
	o.log.Warn("conversation error", "kind", err.Kind.String(), "code", err.Code, "error", err.Err)

	o.stopErrorTimer()
	o.errSeq++
	seq := o.errSeq
	if o.hooks.OnError != nil {
		o.hooks.OnError(err)
	}
	o.errT = o.clock.AfterFunc(o.cfg.ErrorDisplay, func() {
		o.post(func() { o.clearError(seq) })
	})
}

func (o *Orchestrator) stopErrorTimer() {
	if o.errT != nil {
		o.errT.Stop()
		o.errT = nil
	}
}

func (o *Orchestrator) clearError(seq uint64) {
	if seq != o.errSeq {
		return
	}
	o.errT = nil
	if o.hooks.OnErrorCleared != nil {
		o.hooks.OnErrorCleared()
	}
}

func (o *Orchestrator) setState(to State) {
	from := o.state
	if from == to {
		return
	}
	o.state = to
	o.publish()
	metrics.StateTransitions.WithLabelValues(to.String()).Inc()
	o.log.Debug("state", "from", from.String(), "to", to.String())
	if o.hooks.OnStateChange != nil {
		o.hooks.OnStateChange(from, to)
	}
}

func (o *Orchestrator) publish() {
	o.snapMu.Lock()
	o.snapState = o.state
	o.snapMuted = o.muted
	o.snapTurns = o.turns.snapshot()
	o.snapMu.Unlock()
}

// captureSink tags recognizer events with the session they belong to.
type captureSink struct {
	o  *Orchestrator
	id uint64
}

func (s captureSink) Started() { s.o.post(func() { s.o.onCaptureStarted(s.id) }) }

func (s captureSink) Result(transcript string, confidence float64, final bool) {
	s.o.post(func() { s.o.onCaptureResult(s.id, transcript, confidence, final) })
}

func (s captureSink) Error(code string) { s.o.post(func() { s.o.onCaptureError(s.id, code) }) }

func (s captureSink) Ended() { s.o.post(func() { s.o.onCaptureEnded(s.id) }) }

type speakSink struct {
	o  *Orchestrator
	id uint64
}

func (s speakSink) Started() { s.o.post(func() { s.o.onSpeakStarted(s.id) }) }

func (s speakSink) Ended() { s.o.post(func() { s.o.onSpeakEnded(s.id) }) }

func (s speakSink) Error(code string) { s.o.post(func() { s.o.onSpeakError(s.id, code) }) }
