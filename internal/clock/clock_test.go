package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(1*time.Second, func() { got = append(got, "a") })
	stopped := c.AfterFunc(1500*time.Millisecond, func() { got = append(got, "x") })
	assert.True(t, stopped.Stop())

	c.Advance(1 * time.Second)
	assert.Equal(t, []string{"a"}, got)

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, c.Pending())
	assert.Equal(t, time.Unix(6, 0), c.Now())
}

func TestManualTimerScheduledFromCallback(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	fired := 0
	c.AfterFunc(time.Second, func() {
		fired++
		c.AfterFunc(time.Second, func() { fired++ })
	})
	c.Advance(3 * time.Second)
	assert.Equal(t, 2, fired)
}
