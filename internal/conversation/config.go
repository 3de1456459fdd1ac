package conversation

import "time"

// Provider selects where replies come from.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderRemote Provider = "remote"
)

// Config holds orchestrator timing and policy.
type Config struct {
	Provider        Provider
	MinConfidence   float64
	MaxTurns        int
	AutoResumeDelay time.Duration
	// ListenTimeout aborts a Listening state the recognizer never finishes.
	ListenTimeout time.Duration
	// ErrorDisplay is how long an error stays shown before OnErrorCleared.
	ErrorDisplay  time.Duration
	RemoteTimeout time.Duration
	VoiceHint     string
}

// DefaultConfig returns the local provider with the stock timers.
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderLocal,
		MinConfidence:   DefaultMinConfidence,
		MaxTurns:        50,
		AutoResumeDelay: 1200 * time.Millisecond,
		ListenTimeout:   10 * time.Second,
		ErrorDisplay:    5 * time.Second,
		RemoteTimeout:   8 * time.Second,
		VoiceHint:       DefaultVoiceHint,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = d.MinConfidence
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = d.MaxTurns
	}
	if c.AutoResumeDelay <= 0 {
		c.AutoResumeDelay = d.AutoResumeDelay
	}
	if c.ListenTimeout <= 0 {
		c.ListenTimeout = d.ListenTimeout
	}
	if c.ErrorDisplay <= 0 {
		c.ErrorDisplay = d.ErrorDisplay
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = d.RemoteTimeout
	}
	if c.VoiceHint == "" {
		c.VoiceHint = d.VoiceHint
	}
	return c
}
