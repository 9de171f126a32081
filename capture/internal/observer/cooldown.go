package observer

import "time"

// cooldown collapses bursts of raw mutation signals into a single evaluation.
// Each signal restarts the window; only a full quiet period fires the timer.
// This bounds evaluation frequency to at most one per quiet period, no matter
// how many raw signals arrive inside it.
type cooldown struct {
	window  time.Duration
	timer   *time.Timer
	timerCh <-chan time.Time
	pending int
}

func newCooldown(window time.Duration) *cooldown {
	if window <= 0 {
		window = time.Second
	}
	return &cooldown{window: window}
}

// signal registers one raw mutation signal and (re)starts the window timer.
func (c *cooldown) signal() {
	c.pending++
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.NewTimer(c.window)
	c.timerCh = c.timer.C
}

// timerC returns the channel that fires when the quiet period elapses.
// Nil (blocks forever in a select) until the first signal.
func (c *cooldown) timerC() <-chan time.Time {
	return c.timerCh
}

// fire consumes the elapsed window and returns how many raw signals it
// absorbed. The caller runs exactly one evaluation regardless of the count.
func (c *cooldown) fire() int {
	n := c.pending
	c.pending = 0
	c.timer = nil
	c.timerCh = nil
	return n
}

// stop cancels any pending window. No evaluation may fire after stop.
func (c *cooldown) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.timerCh = nil
	}
	c.pending = 0
}
