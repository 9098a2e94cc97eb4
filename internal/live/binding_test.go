package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// snapshotLoader is a loader backed by a swappable in-memory list, so
// tests can stand in for the storage layer.
type snapshotLoader struct {
	mu    sync.Mutex
	items []string
	err   error
	calls int
	block chan struct{}
}

func (l *snapshotLoader) load(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	l.calls++
	items := append([]string(nil), l.items...)
	err := l.err
	block := l.block
	l.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (l *snapshotLoader) set(items []string, err error) {
	l.mu.Lock()
	l.items = items
	l.err = err
	l.mu.Unlock()
}

func mustBinding(t *testing.T, dispatcher *Dispatcher, topic string, loader *snapshotLoader, onChange func()) *Binding[string] {
	t.Helper()
	binding, err := NewBinding(BindingConfig[string]{
		Dispatcher: dispatcher,
		Topic:      topic,
		Loader:     loader.load,
		OnChange:   onChange,
	})
	if err != nil {
		t.Fatalf("failed to construct binding: %v", err)
	}
	return binding
}

func waitForState(t *testing.T, binding *Binding[string], want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if binding.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %q, at %q", want, binding.State())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func waitForSnapshot(t *testing.T, binding *Binding[string], want []string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		got := binding.Snapshot()
		if equalStrings(got, want) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot %v, have %v", want, got)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBindingConfigValidation(t *testing.T) {
	loader := &snapshotLoader{}
	if _, err := NewBinding(BindingConfig[string]{Topic: "t", Loader: loader.load}); !errors.Is(err, ErrMissingDispatcher) {
		t.Fatalf("expected ErrMissingDispatcher, got %v", err)
	}
	if _, err := NewBinding(BindingConfig[string]{Dispatcher: NewDispatcher(), Topic: "t"}); !errors.Is(err, ErrMissingLoader) {
		t.Fatalf("expected ErrMissingLoader, got %v", err)
	}
	if _, err := NewBinding(BindingConfig[string]{Dispatcher: NewDispatcher(), Loader: loader.load}); !errors.Is(err, ErrMissingTopic) {
		t.Fatalf("expected ErrMissingTopic, got %v", err)
	}
}

func TestBindingLoadsInitialSnapshot(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{items: []string{"a", "b"}}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)

	if binding.State() != StateLoading {
		t.Fatalf("expected loading before start, got %q", binding.State())
	}
	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer binding.Stop()

	waitForState(t, binding, StateReady)
	waitForSnapshot(t, binding, []string{"a", "b"})
}

func TestBindingReloadsOnEvent(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{items: []string{"a"}}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)

	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer binding.Stop()
	waitForSnapshot(t, binding, []string{"a"})

	loader.set([]string{"a", "b"}, nil)
	dispatcher.Publish(Event{Topic: TopicRooms, Action: ActionAdded, DocID: "b"})

	waitForSnapshot(t, binding, []string{"a", "b"})
}

func TestBindingStartTwiceFails(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)

	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer binding.Stop()

	if err := binding.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestBindingErrorStateRetainsLastSnapshot(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{items: []string{"a"}}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)

	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer binding.Stop()
	waitForSnapshot(t, binding, []string{"a"})

	loadFailure := errors.New("storage unavailable")
	loader.set(nil, loadFailure)
	dispatcher.Publish(Event{Topic: TopicRooms, Action: ActionModified, DocID: "a"})

	waitForState(t, binding, StateError)
	if !errors.Is(binding.Err(), loadFailure) {
		t.Fatalf("expected load failure surfaced, got %v", binding.Err())
	}
	if got := binding.Snapshot(); !equalStrings(got, []string{"a"}) {
		t.Fatalf("expected stale list retained, got %v", got)
	}

	// recovery on the next successful reload
	loader.set([]string{"a", "b"}, nil)
	dispatcher.Publish(Event{Topic: TopicRooms, Action: ActionAdded, DocID: "b"})
	waitForState(t, binding, StateReady)
	waitForSnapshot(t, binding, []string{"a", "b"})
}

func TestBindingStopDiscardsInFlightSnapshot(t *testing.T) {
	dispatcher := NewDispatcher()
	release := make(chan struct{})
	loader := &snapshotLoader{items: []string{"late"}, block: release}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)

	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Stop while the initial load is blocked, then let it finish.
	binding.Stop()
	close(release)

	time.Sleep(50 * time.Millisecond)
	if got := binding.Snapshot(); len(got) != 0 {
		t.Fatalf("expected discarded snapshot after stop, got %v", got)
	}
	if binding.State() == StateReady {
		t.Fatal("stopped binding must not report ready from a dead load")
	}
}

func TestBindingStopIsIdempotent(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{}
	binding := mustBinding(t, dispatcher, TopicRooms, loader, nil)
	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	binding.Stop()
	binding.Stop()
}

func TestBindingNotifiesOnChange(t *testing.T) {
	dispatcher := NewDispatcher()
	loader := &snapshotLoader{items: []string{"a"}}
	notified := make(chan struct{}, 8)
	binding := mustBinding(t, dispatcher, TopicRooms, loader, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	if err := binding.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer binding.Stop()

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("expected change notification after initial snapshot")
	}
}
