package softgfx

import (
	"fmt"
	"sync"
)

// Kinds of traced backend calls.
const (
	KindOpen             = "open"
	KindNewBlock         = "new-block"
	KindDestroyBlock     = "destroy-block"
	KindNewImage         = "new-image"
	KindDestroyImage     = "destroy-image"
	KindNewSwapchain     = "new-swapchain"
	KindDestroySwapchain = "destroy-swapchain"
	KindAcquire          = "acquire"
	KindSubmit           = "submit"
	KindWaitIdle         = "wait-idle"
	KindPresent          = "present"
	KindDestroyDevice    = "destroy-device"
)

// Event is one recorded backend call.
type Event struct {
	Kind   string
	Detail string
}

func (e Event) String() string {
	if e.Detail == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Detail)
}

// Trace is an append-only log of backend calls, safe for concurrent readers.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

func (t *Trace) add(kind, detail string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = append(t.events, Event{Kind: kind, Detail: detail})
	t.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Strings returns the events formatted as kind(detail).
func (t *Trace) Strings() []string {
	ev := t.Events()
	out := make([]string, len(ev))
	for i, e := range ev {
		out[i] = e.String()
	}
	return out
}

// Index returns the position of the first event of kind at or after from,
// or -1.
func (t *Trace) Index(kind string, from int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := from; i < len(t.events); i++ {
		if t.events[i].Kind == kind {
			return i
		}
	}
	return -1
}

// Count returns the number of events of kind.
func (t *Trace) Count(kind string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Reset drops every recorded event.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}
