package conversation

import (
	"slices"
	"time"

	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
)

// Turn is one user utterance and the reply it produced.
type Turn struct {
	ID         string        `json:"id"`
	UserText   string        `json:"user_text"`
	BotText    string        `json:"bot_text"`
	Timestamp  time.Time     `json:"timestamp"`
	Emotion    reply.Emotion `json:"emotion"`
	Intent     string        `json:"intent,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Source     string        `json:"source"`
}

// turnLog is the bounded, time-ordered conversation history.
type turnLog struct {
	max   int
	turns []Turn
	last  time.Time
}

func newTurnLog(limit int) *turnLog {
	return &turnLog{max: limit, turns: make([]Turn, 0, min(limit, 16))}
}

// append clamps the timestamp so the log never goes back in time, then
// evicts from the front past max.
func (l *turnLog) append(t Turn) Turn {
	if t.Timestamp.Before(l.last) {
		t.Timestamp = l.last
	}
	l.last = t.Timestamp
	l.turns = append(l.turns, t)
	if len(l.turns) > l.max {
		l.turns = slices.Delete(l.turns, 0, len(l.turns)-l.max)
	}
	return t
}

func (l *turnLog) len() int { return len(l.turns) }

func (l *turnLog) snapshot() []Turn { return slices.Clone(l.turns) }
