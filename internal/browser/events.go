package browser

import "github.com/slicer/sequences/internal/node"

// Event identifies a browser notification.
type Event int

const (
	// EventModified fires after any change to browser state not covered by a
	// more specific event.
	EventModified Event = iota
	// EventMasterAdvanced fires when the master's current index value may have
	// changed: selection moves, master swaps and newly attached sequences.
	EventMasterAdvanced
	// EventProxyContentChanged fires when an observed proxy reports a content change.
	EventProxyContentChanged
	// EventIndexFormatChanged fires when the index display mode or format changes.
	EventIndexFormatChanged
)

// String returns the event name used in logs and traces.
func (e Event) String() string {
	switch e {
	case EventModified:
		return "modified"
	case EventMasterAdvanced:
		return "master_advanced"
	case EventProxyContentChanged:
		return "proxy_content_changed"
	case EventIndexFormatChanged:
		return "index_format_changed"
	default:
		return "unknown"
	}
}

// Notification is delivered to listeners. Proxy is set only for
// EventProxyContentChanged.
type Notification struct {
	Event   Event
	Browser *Browser
	Proxy   node.Node
}

// Listener receives browser notifications synchronously.
type Listener func(Notification)

type listener struct {
	id int
	fn Listener
}

// AddListener registers fn and returns a handle for RemoveListener.
func (b *Browser) AddListener(fn Listener) int {
	b.nextListener++
	b.listeners = append(b.listeners, listener{id: b.nextListener, fn: fn})
	return b.nextListener
}

// RemoveListener unregisters a listener. Unknown handles are ignored.
func (b *Browser) RemoveListener(id int) {
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// StartModify opens a modify bracket and returns the previous state for
// EndModify. Notifications raised inside the bracket are coalesced and
// delivered once, in first-raised order, when the outermost bracket closes.
// Proxy content changes are never deferred.
func (b *Browser) StartModify() bool {
	was := b.modifyDepth > 0
	b.modifyDepth++
	return was
}

// EndModify closes a bracket opened by StartModify.
func (b *Browser) EndModify(wasModifying bool) {
	if b.modifyDepth > 0 {
		b.modifyDepth--
	}
	if wasModifying || b.modifyDepth > 0 {
		return
	}
	pending := b.pending
	b.pending = nil
	for _, ev := range pending {
		b.dispatch(Notification{Event: ev, Browser: b})
	}
}

func (b *Browser) notify(ev Event) {
	if b.modifyDepth > 0 {
		for _, p := range b.pending {
			if p == ev {
				return
			}
		}
		b.pending = append(b.pending, ev)
		return
	}
	b.dispatch(Notification{Event: ev, Browser: b})
}

func (b *Browser) proxyChanged(n node.Node) {
	b.dispatch(Notification{Event: EventProxyContentChanged, Browser: b, Proxy: n})
}

func (b *Browser) dispatch(n Notification) {
	// copy so listeners may unregister themselves
	snapshot := append([]listener(nil), b.listeners...)
	for _, l := range snapshot {
		l.fn(n)
	}
}
