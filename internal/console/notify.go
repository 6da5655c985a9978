package console

import (
	"sync"
	"time"
)

// DefaultNotifyDelay is how long a notification stays visible.
const DefaultNotifyDelay = 5 * time.Second

// Toast is a single-slot transient notification. A new message replaces the
// visible one and restarts its dismissal timer; the replaced timer is
// cancelled, so a stale expiry can never hide a newer message.
type Toast struct {
	delay time.Duration

	mu      sync.Mutex
	message string
	visible bool
	gen     uint64
	timer   *time.Timer

	expired chan uint64
	done    chan struct{}
	once    sync.Once
}

// NewToast creates a toast that hides messages after delay.
func NewToast(delay time.Duration) *Toast {
	if delay <= 0 {
		delay = DefaultNotifyDelay
	}
	return &Toast{
		delay:   delay,
		expired: make(chan uint64, 1),
		done:    make(chan struct{}),
	}
}

// Notify shows message and schedules its dismissal.
func (t *Toast) Notify(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.message = message
	t.visible = true
	t.timer = time.AfterFunc(t.delay, func() { t.signal(gen) })
}

// signal delivers gen, replacing any older undelivered generation.
func (t *Toast) signal(gen uint64) {
	for {
		select {
		case <-t.done:
			return
		case t.expired <- gen:
			return
		default:
		}
		select {
		case <-t.expired:
		default:
		}
	}
}

// Expired delivers the generation of each message whose delay elapsed.
// Pass it to Dismiss.
func (t *Toast) Expired() <-chan uint64 {
	return t.expired
}

// Done is closed by Stop.
func (t *Toast) Done() <-chan struct{} {
	return t.done
}

// Dismiss hides the message if gen is still the current one.
func (t *Toast) Dismiss(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.visible {
		return false
	}
	t.visible = false
	t.message = ""
	return true
}

// Current returns the visible message.
func (t *Toast) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message, t.visible
}

// Generation returns the generation of the latest message.
func (t *Toast) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Stop cancels any pending dismissal and releases waiters on Expired.
func (t *Toast) Stop() {
	t.once.Do(func() {
		t.mu.Lock()
		if t.timer != nil {
			t.timer.Stop()
		}
		t.mu.Unlock()
		close(t.done)
	})
}
