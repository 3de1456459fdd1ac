package conversation

import "strings"

// DefaultMinConfidence is the lowest recognizer confidence a transcript may carry.
const DefaultMinConfidence = 0.3

// Gate filters transcripts before they are treated as a turn.
type Gate struct {
	MinConfidence float64
}

// NewGate returns a gate with the given threshold; non-positive uses the default.
func NewGate(minConfidence float64) Gate {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return Gate{MinConfidence: minConfidence}
}

// Accept reports whether transcript is non-blank and confident enough.
func (g Gate) Accept(transcript string, confidence float64) bool {
	if strings.TrimSpace(transcript) == "" {
		return false
	}
	return confidence >= g.MinConfidence
}
