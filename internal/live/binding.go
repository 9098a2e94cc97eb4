package live

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// State reports where a binding is in its snapshot lifecycle.
type State string

const (
	// StateLoading means no snapshot for the current topic has landed yet.
	StateLoading State = "loading"
	// StateReady means the local list mirrors the last loaded snapshot.
	StateReady State = "ready"
	// StateError means the last reload failed; the retained list is stale.
	StateError State = "error"
)

var (
	// ErrMissingDispatcher indicates the binding was built without a dispatcher.
	ErrMissingDispatcher = errors.New("live: dispatcher is required")
	// ErrMissingLoader indicates the binding was built without a loader.
	ErrMissingLoader = errors.New("live: loader is required")
	// ErrMissingTopic indicates the binding was built without a topic.
	ErrMissingTopic = errors.New("live: topic is required")
	// ErrAlreadyStarted indicates Start was called twice on the same binding.
	ErrAlreadyStarted = errors.New("live: binding already started")
)

// Loader fetches the full ordered snapshot for a binding's query. The
// returned slice must already carry the collection's ordering; the
// binding replaces its local list wholesale on every call.
type Loader[T any] func(ctx context.Context) ([]T, error)

// BindingConfig bundles the dependencies of a Binding.
type BindingConfig[T any] struct {
	Dispatcher *Dispatcher
	Topic      string
	Loader     Loader[T]
	OnChange   func()
	Logger     *zap.Logger
}

// Binding maintains a locally owned ordered list that mirrors one
// remote collection query. It subscribes to change events for its
// topic and reloads the snapshot on every event. The local list is
// mutated only by the binding's own reload path; mutating commands go
// through the services and become visible here on the next snapshot.
//
// Switching queries (for example a room change) means stopping the old
// binding and starting a fresh one: the new binding reports
// StateLoading until its first snapshot lands, so a stale list is
// never shown under the new query's header.
type Binding[T any] struct {
	dispatcher *Dispatcher
	topic      string
	loader     Loader[T]
	onChange   func()
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	loadErr     error
	items       []T
	generation  uint64
	started     bool
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewBinding validates the configuration and returns an idle binding.
func NewBinding[T any](cfg BindingConfig[T]) (*Binding[T], error) {
	if cfg.Dispatcher == nil {
		return nil, ErrMissingDispatcher
	}
	if cfg.Loader == nil {
		return nil, ErrMissingLoader
	}
	if cfg.Topic == "" {
		return nil, ErrMissingTopic
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func() {}
	}
	return &Binding[T]{
		dispatcher: cfg.Dispatcher,
		topic:      cfg.Topic,
		loader:     cfg.Loader,
		onChange:   onChange,
		logger:     logger,
		state:      StateLoading,
	}, nil
}

// Start subscribes to the topic and loads the initial snapshot in the
// background. It may be called once per binding.
func (b *Binding[T]) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.generation++
	generation := b.generation
	b.state = StateLoading
	b.loadErr = nil
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	events, unsubscribe := b.dispatcher.Subscribe(runCtx, b.topic)
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	go func() {
		b.reload(runCtx, generation)
		for {
			select {
			case <-runCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				b.reload(runCtx, generation)
			}
		}
	}()
	return nil
}

// Stop tears the binding down. It is idempotent, and any snapshot
// still in flight when Stop returns is discarded rather than applied.
func (b *Binding[T]) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.generation++
	cancel := b.cancel
	unsubscribe := b.unsubscribe
	b.cancel = nil
	b.unsubscribe = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns a copy of the current local list. It never blocks on
// I/O, so render passes may call it on every notification.
func (b *Binding[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// State reports the binding's snapshot lifecycle state.
func (b *Binding[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error from the last failed reload, if any.
func (b *Binding[T]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

func (b *Binding[T]) reload(ctx context.Context, generation uint64) {
	items, err := b.loader(ctx)

	b.mu.Lock()
	if !b.started || b.generation != generation {
		// The binding was stopped or restarted while the load was in
		// flight; the snapshot belongs to a dead subscription.
		b.mu.Unlock()
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			b.mu.Unlock()
			return
		}
		b.state = StateError
		b.loadErr = err
		b.mu.Unlock()
		b.logger.Warn("live snapshot reload failed",
			zap.String("topic", b.topic), zap.Error(err))
		b.onChange()
		return
	}
	b.items = items
	b.state = StateReady
	b.loadErr = nil
	b.mu.Unlock()
	b.onChange()
}
