package service

import (
	"context"
	"sync"
)

// Watcher receives every committed state snapshot in commit order. Unlike
// bus subscribers it never drops or merges snapshots.
type Watcher struct {
	mu     sync.Mutex
	queue  []AppState
	notify chan struct{}
}

func newWatcher() *Watcher {
	return &Watcher{notify: make(chan struct{}, 1)}
}

func (w *Watcher) push(st AppState) {
	w.mu.Lock()
	w.queue = append(w.queue, st)
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Next returns the oldest pending snapshot, waiting for one until ctx is
// done.
func (w *Watcher) Next(ctx context.Context) (AppState, error) {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			st := w.queue[0]
			w.queue[0] = AppState{}
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return st, nil
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return AppState{}, ctx.Err()
		case <-w.notify:
		}
	}
}

// Pending returns the number of snapshots not yet taken.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Watch registers a watcher. Its first snapshot is the current state,
// followed by one snapshot per commit.
func (s *AppStateService) Watch() *Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := newWatcher()
	w.push(s.state.clone())
	s.watchers[w] = struct{}{}
	return w
}

// Unwatch removes w. It receives no further snapshots.
func (s *AppStateService) Unwatch(w *Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

// Resend queues the unchanged state for every watcher and publishes e. It
// is for changes held outside the state, such as stored drawing features.
func (s *AppStateService) Resend(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify(e)
}

func (s *AppStateService) notify(e Event) {
	for w := range s.watchers {
		w.push(s.state.clone())
	}
	s.bus.Publish(e)
}
