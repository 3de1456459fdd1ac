package console

import (
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/conversation"
)

// DefaultPerRune approximates speaking time per character at rate 1.0.
const DefaultPerRune = 60 * time.Millisecond

// Speaker prints replies and reports Ended after a simulated speaking time.
type Speaker struct {
	out     io.Writer
	clock   clock.Clock
	perRune time.Duration

	mu    sync.Mutex
	timer clock.Timer
}

func NewSpeaker(out io.Writer, clk clock.Clock, perRune time.Duration) *Speaker {
	if clk == nil {
		clk = clock.Real()
	}
	if perRune < 0 {
		perRune = 0
	}
	return &Speaker{out: out, clock: clk, perRune: perRune}
}

func (s *Speaker) Supported() bool { return s.out != nil }

func (s *Speaker) Speak(text string, opts conversation.SpeakOptions, events conversation.SpeakEvents) error {
	if _, err := fmt.Fprintf(s.out, "🤖 %s\n", text); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	events.Started()

	rate := opts.Rate
	if rate <= 0 {
		rate = 1
	}
	d := time.Duration(float64(s.perRune) * float64(utf8.RuneCountInString(text)) / rate)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, events.Ended)
	return nil
}

func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
