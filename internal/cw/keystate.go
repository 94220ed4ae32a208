package cw

import "sync"

// KeyCallback is invoked whenever the logical key transitions between open
// and closed. userdata is whatever was registered with SetCallback;
// implementations must not block (spec §4.6, §5 Ordering: "callbacks must
// be short and non-blocking").
type KeyCallback func(userdata any, closed bool)

// KeyState tracks the logical key (open/closed) and notifies a registered
// callback on transitions. Callbacks run synchronously in the context of
// whichever goroutine caused the transition -- the generator worker for
// dequeue-driven changes, the caller for straight-key/iambic changes (spec
// §4.6, §5 Ordering).
type KeyState struct {
	mu     sync.Mutex
	closed bool
	cb     KeyCallback
	data   any
}

// NewKeyState returns a KeyState that starts open.
func NewKeyState() *KeyState { return &KeyState{} }

// SetCallback registers the keying callback. A nil cb disables
// notifications.
func (k *KeyState) SetCallback(cb KeyCallback, userdata any) {
	k.mu.Lock()
	k.cb = cb
	k.data = userdata
	k.mu.Unlock()
}

// Set updates the key state, invoking the callback iff it actually changed.
func (k *KeyState) Set(closed bool) {
	k.mu.Lock()
	if k.closed == closed {
		k.mu.Unlock()
		return
	}
	k.closed = closed
	cb, data := k.cb, k.data
	k.mu.Unlock()
	if cb != nil {
		cb(data, closed)
	}
}

// IsClosed reports the current key state.
func (k *KeyState) IsClosed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

// Reset forces the key open without invoking the callback's "previous
// value" semantics beyond a normal transition; used by Engine.Reset.
func (k *KeyState) Reset() {
	k.Set(false)
}
