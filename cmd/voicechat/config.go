package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hubenschmidt/persian-voice-chat/internal/conversation"
	"github.com/hubenschmidt/persian-voice-chat/internal/env"
	"github.com/hubenschmidt/persian-voice-chat/internal/transport"
)

type transportFile struct {
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	PingInterval time.Duration `yaml:"ping_interval"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
}

// fileConfig is the on-disk shape of the voicechat config.
type fileConfig struct {
	Provider        string        `yaml:"provider"`
	RemoteURL       string        `yaml:"remote_url"`
	Muted           bool          `yaml:"muted"`
	MinConfidence   float64       `yaml:"min_confidence"`
	MaxTurns        int           `yaml:"max_turns"`
	AutoResumeDelay time.Duration `yaml:"auto_resume_delay"`
	ListenTimeout   time.Duration `yaml:"listen_timeout"`
	ErrorDisplay    time.Duration `yaml:"error_display"`
	RemoteTimeout   time.Duration `yaml:"remote_timeout"`
	VoiceHint       string        `yaml:"voice_hint"`
	SpeakPerRune    time.Duration `yaml:"speak_per_rune"`
	Transport       transportFile `yaml:"transport"`
}

type appConfig struct {
	conversation conversation.Config
	transport    transport.Config
	remoteURL    string
	muted        bool
	speakPerRune time.Duration
}

func defaultFileConfig() fileConfig {
	c := conversation.DefaultConfig()
	t := transport.DefaultConfig()
	return fileConfig{
		Provider:        string(c.Provider),
		MinConfidence:   c.MinConfidence,
		MaxTurns:        c.MaxTurns,
		AutoResumeDelay: c.AutoResumeDelay,
		ListenTimeout:   c.ListenTimeout,
		ErrorDisplay:    c.ErrorDisplay,
		RemoteTimeout:   c.RemoteTimeout,
		VoiceHint:       c.VoiceHint,
		SpeakPerRune:    20 * time.Millisecond,
		Transport: transportFile{
			MaxRetries:   t.MaxRetries,
			BaseDelay:    t.BaseDelay,
			MaxDelay:     t.MaxDelay,
			PingInterval: t.PingInterval,
			ReadTimeout:  t.ReadTimeout,
		},
	}
}

// loadConfig reads path over the defaults, then applies VOICECHAT_* env vars.
func loadConfig(path string) (fileConfig, error) {
	fc := defaultFileConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fc, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(data, &fc); err != nil {
			return fc, fmt.Errorf("parse config: %w", err)
		}
	}
	fc.Provider = env.Str("VOICECHAT_PROVIDER", fc.Provider)
	fc.RemoteURL = env.Str("VOICECHAT_REMOTE_URL", fc.RemoteURL)
	fc.Muted = env.Bool("VOICECHAT_MUTED", fc.Muted)
	fc.MinConfidence = env.Float("VOICECHAT_MIN_CONFIDENCE", fc.MinConfidence)
	fc.RemoteTimeout = env.Duration("VOICECHAT_REMOTE_TIMEOUT", fc.RemoteTimeout)
	return fc, nil
}

func (fc fileConfig) resolve() (appConfig, error) {
	provider := conversation.Provider(fc.Provider)
	switch provider {
	case conversation.ProviderLocal, conversation.ProviderRemote:
	default:
		return appConfig{}, fmt.Errorf("unknown provider %q", fc.Provider)
	}
	if provider == conversation.ProviderRemote && fc.RemoteURL == "" {
		return appConfig{}, fmt.Errorf("provider remote needs remote_url")
	}
	return appConfig{
		conversation: conversation.Config{
			Provider:        provider,
			MinConfidence:   fc.MinConfidence,
			MaxTurns:        fc.MaxTurns,
			AutoResumeDelay: fc.AutoResumeDelay,
			ListenTimeout:   fc.ListenTimeout,
			ErrorDisplay:    fc.ErrorDisplay,
			RemoteTimeout:   fc.RemoteTimeout,
			VoiceHint:       fc.VoiceHint,
		},
		transport: transport.Config{
			MaxRetries:   fc.Transport.MaxRetries,
			BaseDelay:    fc.Transport.BaseDelay,
			MaxDelay:     fc.Transport.MaxDelay,
			PingInterval: fc.Transport.PingInterval,
			ReadTimeout:  fc.Transport.ReadTimeout,
		},
		remoteURL:    fc.RemoteURL,
		muted:        fc.Muted,
		speakPerRune: fc.SpeakPerRune,
	}, nil
}
