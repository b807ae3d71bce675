package checkout

import (
	"fmt"
	"time"
)

// Countdown is the payment confirmation window. It counts whole seconds and
// lives only in memory.
type Countdown struct {
	total     time.Duration
	remaining time.Duration
}

func NewCountdown(total time.Duration) *Countdown {
	total = total.Truncate(time.Second)
	if total < time.Second {
		total = time.Second
	}
	return &Countdown{total: total, remaining: total}
}

// Tick removes one second and reports whether the window has run out.
func (c *Countdown) Tick() bool {
	if c.remaining > 0 {
		c.remaining -= time.Second
	}
	return c.remaining <= 0
}

func (c *Countdown) Reset() {
	c.remaining = c.total
}

func (c *Countdown) Remaining() time.Duration {
	return c.remaining
}

func (c *Countdown) Total() time.Duration {
	return c.total
}

// FormatClock renders d as mm:ss.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
