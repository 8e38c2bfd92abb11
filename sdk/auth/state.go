package auth

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// State is a position in the authorization state machine.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateAwaitingCallback
	StateExchanging
	StateAuthorized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateExchanging:
		return "exchanging"
	case StateAuthorized:
		return "authorized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the controller state.
type Snapshot struct {
	State  State
	Reason FailureReason
	// Err is the error behind a StateFailed snapshot.
	Err error
	// AttemptID, Port and RedirectURI describe the attempt in flight, if any.
	AttemptID   string
	Port        int
	RedirectURI string
	At          time.Time
}

// Observer receives every state change in order. Observers run on the goroutine
// that caused the change and must not block or call state-changing controller methods.
type Observer func(Snapshot)

type stateHolder struct {
	// publishMu orders notifications across goroutines.
	publishMu sync.Mutex

	mu        sync.RWMutex
	current   Snapshot
	observers map[uint64]Observer
	nextID    uint64
}

func newStateHolder() *stateHolder {
	return &stateHolder{
		current:   Snapshot{State: StateIdle, At: time.Now()},
		observers: make(map[uint64]Observer),
	}
}

func (h *stateHolder) snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *stateHolder) publish(s Snapshot) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	s.At = time.Now()
	h.mu.Lock()
	h.current = s
	observers := make([]Observer, 0, len(h.observers))
	for _, id := range slices.Sorted(maps.Keys(h.observers)) {
		observers = append(observers, h.observers[id])
	}
	h.mu.Unlock()

	for _, o := range observers {
		o(s)
	}
}

func (h *stateHolder) subscribe(o Observer) func() {
	if o == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers[id] = o
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers, id)
			h.mu.Unlock()
		})
	}
}
