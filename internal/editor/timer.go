package editor

import (
	"sync"
	"time"
)

// Delay is a cancellable one-shot timer. Scheduling again replaces the pending
// callback; a callback that fires after Cancel or a later Schedule is dropped.
type Delay struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule runs fn after d unless cancelled or rescheduled first.
func (d *Delay) Schedule(after time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(after, func() {
		d.mu.Lock()
		current := d.gen == gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the pending callback, if any.
func (d *Delay) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a callback is scheduled.
func (d *Delay) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Debouncer delays keyed actions until input settles. Flush runs a pending
// action immediately (the blur case); Cancel drops it.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	pending map[string]*debounced
}

type debounced struct {
	delay Delay
	fn    func()
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{
		wait:    wait,
		pending: make(map[string]*debounced),
	}
}

// Trigger schedules fn for key, replacing any action pending for the same key.
func (b *Debouncer) Trigger(key string, fn func()) {
	b.mu.Lock()
	entry, ok := b.pending[key]
	if !ok {
		entry = &debounced{}
		b.pending[key] = entry
	}
	entry.fn = fn
	b.mu.Unlock()

	entry.delay.Schedule(b.wait, func() {
		if run := b.take(key, entry); run != nil {
			run()
		}
	})
}

// Flush runs the action pending for key now. It reports whether one ran.
func (b *Debouncer) Flush(key string) bool {
	b.mu.Lock()
	entry, ok := b.pending[key]
	b.mu.Unlock()
	if !ok {
		return false
	}
	entry.delay.Cancel()
	run := b.take(key, entry)
	if run == nil {
		return false
	}
	run()
	return true
}

// FlushAll runs every pending action.
func (b *Debouncer) FlushAll() {
	b.mu.Lock()
	keys := make([]string, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	b.mu.Unlock()
	for _, k := range keys {
		b.Flush(k)
	}
}

// Cancel drops the action pending for key.
func (b *Debouncer) Cancel(key string) {
	b.mu.Lock()
	entry, ok := b.pending[key]
	if ok {
		delete(b.pending, key)
	}
	b.mu.Unlock()
	if ok {
		entry.delay.Cancel()
	}
}

func (b *Debouncer) take(key string, entry *debounced) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[key] != entry {
		return nil
	}
	delete(b.pending, key)
	return entry.fn
}
