package event

// Handle identifies a subscription returned by Subscribe.
type Handle uint64

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Event is a synchronous multicast observer list.
// Zero value is ready to use. Not safe for concurrent use: events are
// emitted and subscribed on the owning simulation goroutine.
//
// Emit iterates over a snapshot of the subscriber list, so handlers may
// subscribe or unsubscribe (themselves or others) during delivery without
// affecting the delivery in progress.
type Event[T any] struct {
	next Handle
	subs []subscriber[T]
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (e *Event[T]) Subscribe(fn func(T)) Handle {
	e.next++
	e.subs = append(e.subs, subscriber[T]{handle: e.next, fn: fn})
	return e.next
}

// Unsubscribe removes the handler. Returns false if the handle is unknown.
func (e *Event[T]) Unsubscribe(h Handle) bool {
	for i, s := range e.subs {
		if s.handle == h {
			// copy-on-write: a running Emit keeps its own snapshot
			subs := make([]subscriber[T], 0, len(e.subs)-1)
			subs = append(subs, e.subs[:i]...)
			subs = append(subs, e.subs[i+1:]...)
			e.subs = subs
			return true
		}
	}
	return false
}

// Emit delivers v to every handler subscribed at the moment of the call.
func (e *Event[T]) Emit(v T) {
	if len(e.subs) == 0 {
		return
	}
	snapshot := e.subs
	for _, s := range snapshot {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (e *Event[T]) Len() int {
	return len(e.subs)
}

// Clear drops all subscribers.
func (e *Event[T]) Clear() {
	e.subs = nil
}
