package identity

import "sync"

// Cell holds the process-wide current user and notifies subscribers on
// every change. Notifications follow subscription order and every listener
// sees the same sequence of values. A Set made while listeners are being
// notified, from a listener or another goroutine, is queued and delivered by
// the goroutine already notifying, after the current round.
type Cell struct {
	mu        sync.Mutex
	current   *User
	listeners []*listener
	closed    bool

	notifying bool
	pending   []*User
}

type listener struct {
	fn     func(*User)
	active bool
}

func NewCell(initial *User) *Cell {
	return &Cell{current: initial}
}

func (c *Cell) Current() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set replaces the current user and calls every subscriber with it. A nil
// user means signed out.
func (c *Cell) Set(u *User) {
	c.mu.Lock()
	c.current = u
	c.pending = append(c.pending, u)
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		listeners := append([]*listener(nil), c.listeners...)
		c.mu.Unlock()

		for _, l := range listeners {
			if c.isActive(l) {
				l.fn(next)
			}
		}

		c.mu.Lock()
	}

	c.notifying = false
	c.mu.Unlock()
}

// Subscribe registers fn and returns a func that removes it. After the
// returned func has been called fn is never invoked again.
func (c *Cell) Subscribe(fn func(*User)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}

	l := &listener{fn: fn, active: true}
	c.listeners = append(c.listeners, l)

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(l) })
	}
}

// Close detaches all subscribers; later subscriptions are ignored.
func (c *Cell) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.listeners {
		l.active = false
	}
	c.listeners = nil
	c.closed = true
}

func (c *Cell) remove(target *listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target.active = false
	for i, l := range c.listeners {
		if l == target {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Cell) isActive(l *listener) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return l.active
}
