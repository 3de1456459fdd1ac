// Package console provides terminal stand-ins for the speech collaborators:
// typed lines act as transcripts and replies are printed instead of spoken.
package console

import (
	"errors"
	"strings"
	"sync"

	"github.com/hubenschmidt/persian-voice-chat/internal/conversation"
)

// ErrBusy is returned by Start while a cycle is already armed.
var ErrBusy = errors.New("console capture already listening")

// Capture turns the next typed line into a final transcript.
type Capture struct {
	mu     sync.Mutex
	events conversation.CaptureEvents
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Supported() bool { return true }

func (c *Capture) Start(events conversation.CaptureEvents) error {
	c.mu.Lock()
	if c.events != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	c.events = events
	c.mu.Unlock()
	events.Started()
	return nil
}

func (c *Capture) take() conversation.CaptureEvents {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.events
	c.events = nil
	return ev
}

func (c *Capture) Stop() {
	if ev := c.take(); ev != nil {
		ev.Ended()
	}
}

func (c *Capture) Abort() {
	if ev := c.take(); ev != nil {
		ev.Error(conversation.CodeAborted)
		ev.Ended()
	}
}

// Listening reports whether a cycle is armed.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events != nil
}

// Deliver completes the armed cycle with line at full confidence. A blank
// line ends the cycle without speech. It returns false when nothing is armed.
func (c *Capture) Deliver(line string) bool {
	ev := c.take()
	if ev == nil {
		return false
	}
	if strings.TrimSpace(line) != "" {
		ev.Result(line, 1.0, true)
	}
	ev.Ended()
	return true
}
