package transport

import "time"

// Backoff computes bounded exponential reconnect delays.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns min(Base * 2^(retry-1), Max) for retry >= 1.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	shift := retry - 1
	if shift > 30 {
		return b.Max
	}
	d := b.Base << shift
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

// Sequence returns the delays for retries 1..n.
func (b Backoff) Sequence(n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range n {
		out[i] = b.Delay(i + 1)
	}
	return out
}
