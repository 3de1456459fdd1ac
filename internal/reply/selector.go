package reply

import "math/rand/v2"

// RandSource picks an index in [0, n).
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Decorations applied per emotion.
const (
	happySuffix  = " 😊"
	sadPrefix    = "متأسفم که اینطور حس می‌کنید. "
	excitedGlyph = "🎉"
)

// Selector picks a templated reply for an intent and decorates it by emotion.
type Selector struct {
	pools map[string][]string
	rnd   RandSource
}

// NewSelector returns a selector over the built-in Persian pools.
// A nil rnd uses the math/rand/v2 global source.
func NewSelector(rnd RandSource) *Selector {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Selector{pools: responsePools, rnd: rnd}
}

// Pool returns the candidates used for intent, after the general fallback.
func (s *Selector) Pool(intent string) []string {
	if pool, ok := s.pools[intent]; ok && len(pool) > 0 {
		return pool
	}
	return s.pools[IntentGeneral]
}

// Select draws one candidate uniformly at random and applies the emotion decoration.
func (s *Selector) Select(intent string, emotion Emotion) string {
	pool := s.Pool(intent)
	text := fallbackReply
	if len(pool) > 0 {
		text = pool[s.rnd.IntN(len(pool))]
	}
	return Decorate(text, emotion)
}

// Decorate applies the fixed per-emotion decoration to text.
func Decorate(text string, emotion Emotion) string {
	switch emotion {
	case EmotionHappy:
		return text + happySuffix
	case EmotionSad:
		return sadPrefix + text
	case EmotionExcited:
		return excitedGlyph + " " + text + " " + excitedGlyph
	default:
		return text
	}
}
