package reader

import (
	"sync"
	"time"
)

// DefaultConfirmDelay is how long the "saved" indicator stays visible.
const DefaultConfirmDelay = 2 * time.Second

// pager keeps the current page inside [1, total].
type pager struct {
	current int
	total   int
}

func newPager(page, total int) pager {
	p := pager{total: max(total, 1)}
	p.current = p.clamp(page)
	return p
}

func (p *pager) clamp(n int) int {
	return min(max(n, 1), p.total)
}

// next and previous are no-ops at the boundaries.
func (p *pager) next() bool     { return p.goTo(p.current + 1) }
func (p *pager) previous() bool { return p.goTo(p.current - 1) }

func (p *pager) goTo(n int) bool {
	n = p.clamp(n)
	if n == p.current {
		return false
	}
	p.current = n
	return true
}

// ─────────────────────────────────────────────────────────────
// confirmation: self-clearing "saved" signal
// ─────────────────────────────────────────────────────────────

type confirmation struct {
	delay    time.Duration
	onChange func(visible bool)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func newConfirmation(delay time.Duration, onChange func(bool)) *confirmation {
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}
	return &confirmation{delay: delay, onChange: onChange}
}

// Flash shows the signal and restarts the clear timer.
func (c *confirmation) Flash() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.clear(gen) })
	c.mu.Unlock()

	c.onChange(true)
}

// Stop cancels a pending clear. A signal still showing is cleared now.
func (c *confirmation) Stop() {
	c.mu.Lock()
	c.gen++
	visible := c.timer != nil
	if visible {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if visible {
		c.onChange(false)
	}
}

func (c *confirmation) clear(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.onChange(false)
}
