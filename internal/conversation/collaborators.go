package conversation

import "github.com/hubenschmidt/persian-voice-chat/internal/reply"

// CaptureEvents receives recognizer events for one capture cycle.
type CaptureEvents interface {
	Started()
	Result(transcript string, confidence float64, final bool)
	Error(code string)
	Ended()
}

// Capture records and transcribes one utterance per Start. It must report at most
// one final Result or Error per Start/Ended cycle.
type Capture interface {
	Supported() bool
	Start(events CaptureEvents) error
	Stop()
	Abort()
}

// SpeakOptions tune synthesis for one utterance.
type SpeakOptions struct {
	Rate      float64
	Pitch     float64
	Volume    float64
	VoiceHint string
}

// SpeakEvents receives synthesis events for one Speak call.
type SpeakEvents interface {
	Started()
	Ended()
	Error(code string)
}

// Speaker renders reply text as audio.
type Speaker interface {
	Supported() bool
	Speak(text string, opts SpeakOptions, events SpeakEvents) error
	Cancel()
}

// Sender is the remote reply provider's outbound side. *transport.Client satisfies it.
type Sender interface {
	Send(msg any) bool
}

// DefaultVoiceHint selects a Persian voice.
const DefaultVoiceHint = "fa-IR"

// SpeakOptionsFor maps a reply emotion to prosody.
func SpeakOptionsFor(e reply.Emotion, voiceHint string) SpeakOptions {
	opts := SpeakOptions{Rate: 1.0, Pitch: 1.0, Volume: 1.0, VoiceHint: voiceHint}
	switch e {
	case reply.EmotionExcited:
		opts.Rate, opts.Pitch = 1.1, 1.2
	case reply.EmotionHappy:
		opts.Pitch = 1.1
	case reply.EmotionSad:
		opts.Rate, opts.Pitch = 0.9, 0.9
	}
	return opts
}
