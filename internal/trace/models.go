package trace

import "time"

// Session is one /ws/chat connection.
type Session struct {
	ID         string     `json:"id"`
	RemoteAddr string     `json:"remote_addr"`
	UserAgent  string     `json:"user_agent,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	TurnCount  int        `json:"turn_count,omitempty"`
}

// Turn is one text frame answered by the rule engine.
type Turn struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	RequestID  string    `json:"request_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	UserText   string    `json:"user_text"`
	BotText    string    `json:"bot_text,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Emotion    string    `json:"emotion,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Turn statuses.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
)
