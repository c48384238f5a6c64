package events

import (
	"fmt"
	"reflect"
	"sync"
)

// Logger defines the logging interface used by the Notifier.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Listener receives events from a Notifier.
type Listener interface {
	HandleEvent(e Event) error
}

// ListenerFunc adapts a function to Listener.
//
// Function values cannot be compared, so a ListenerFunc passed to Register
// can only be removed with the cancel function returned by Subscribe.
type ListenerFunc func(e Event) error

// HandleEvent calls f(e).
func (f ListenerFunc) HandleEvent(e Event) error {
	return f(e)
}

type registration struct {
	id       uint64
	listener Listener
	kinds    map[Kind]struct{} // nil means every kind
}

func (r registration) wants(k Kind) bool {
	if r.kinds == nil {
		return true
	}
	_, ok := r.kinds[k]
	return ok
}

// Notifier fans events out to registered listeners.
//
// Thread Safety:
//   - Register, Unregister, Subscribe and Post are safe for concurrent use.
//   - Listeners may register or unregister from inside HandleEvent; the
//     change applies from the next Post.
type Notifier struct {
	mu     sync.RWMutex
	regs   []registration
	nextID uint64
	logger Logger
}

// NewNotifier creates a Notifier with no listeners.
func NewNotifier() *Notifier {
	return &Notifier{logger: noopLogger{}}
}

// SetLogger sets the logger used for listener faults.
func (n *Notifier) SetLogger(logger Logger) {
	n.mu.Lock()
	n.logger = logger
	n.mu.Unlock()
}

// Register adds l for the given kinds, or for every kind when none are
// given. Registering the same listener twice delivers events twice.
func (n *Notifier) Register(l Listener, kinds ...Kind) {
	n.add(l, kinds)
}

// Subscribe registers fn for a single kind and returns a function that
// removes it.
func (n *Notifier) Subscribe(kind Kind, fn func(Event) error) (cancel func()) {
	id := n.add(ListenerFunc(fn), []Kind{kind})
	var once sync.Once
	return func() {
		once.Do(func() { n.remove(func(r registration) bool { return r.id == id }) })
	}
}

// Unregister removes every registration of l.
func (n *Notifier) Unregister(l Listener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}
	n.remove(func(r registration) bool {
		return reflect.TypeOf(r.listener).Comparable() && r.listener == l
	})
}

// Len returns the number of registrations.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.regs)
}

func (n *Notifier) add(l Listener, kinds []Kind) uint64 {
	var set map[Kind]struct{}
	if len(kinds) > 0 {
		set = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			set[k] = struct{}{}
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.regs = append(n.regs, registration{id: n.nextID, listener: l, kinds: set})
	return n.nextID
}

func (n *Notifier) remove(match func(registration) bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := make([]registration, 0, len(n.regs))
	for _, r := range n.regs {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	n.regs = kept
}

// Post delivers e to every interested listener in registration order.
// It never fails: listener errors and panics are logged and dispatch
// continues with the next listener.
func (n *Notifier) Post(e Event) {
	if e == nil {
		return
	}

	n.mu.RLock()
	regs := n.regs
	logger := n.logger
	n.mu.RUnlock()

	kind := e.Kind()
	for _, r := range regs {
		if !r.wants(kind) {
			continue
		}
		if err := deliver(r.listener, e); err != nil {
			logger.Error("event listener failed",
				"event", string(kind),
				"listener", fmt.Sprintf("%T", r.listener),
				"error", err,
			)
		}
	}
}

func deliver(l Listener, e Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return l.HandleEvent(e)
}
