package ui

import "sync"

// Token identifies a subscription on an EventBus.
type Token uint64

type subscription[T any] struct {
	token Token
	cb    func(T)
}

// EventBus is a multi-listener callback registry. The zero value is ready to
// use. Listeners run synchronously on the goroutine calling Fire, in
// subscription order.
type EventBus[T any] struct {
	mu   sync.Mutex
	next Token
	subs []subscription[T]
}

// Subscribe registers cb and returns the token that removes it.
func (b *EventBus[T]) Subscribe(cb func(T)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs = append(b.subs, subscription[T]{token: b.next, cb: cb})
	return b.next
}

// Unsubscribe removes the listener registered under t. It reports whether
// the token was still subscribed.
func (b *EventBus[T]) Unsubscribe(t Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.token == t {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Fire calls every listener subscribed when Fire started with v. Listeners
// may subscribe or unsubscribe while being called; the change applies to the
// next Fire. It reports whether there was at least one listener.
func (b *EventBus[T]) Fire(v T) bool {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, s := range subs {
		s.cb(v)
	}
	return len(subs) > 0
}

// Len returns the number of listeners.
func (b *EventBus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
