package catalog

import (
	"context"
	"sync"
)

// MemStore keeps the collection in memory. Callers get copies, so mutating a
// loaded slice never leaks into the store.
type MemStore struct {
	mu    sync.RWMutex
	items []Item
	saves int

	subMu sync.Mutex
	subs  map[int]func()
	nextS int
}

func NewMemStore(seed ...Item) *MemStore {
	return &MemStore{items: cloneItems(seed)}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items), nil
}

func (s *MemStore) Save(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = cloneItems(items)
	s.saves++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Subscribe registers fn to be called after every successful Save.
func (s *MemStore) Subscribe(fn func()) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]func())
	}
	id := s.nextS
	s.nextS++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Run implements Watcher on top of Subscribe.
func (s *MemStore) Run(ctx context.Context, onChange func()) error {
	cancel := s.Subscribe(onChange)
	defer cancel()

	<-ctx.Done()
	return nil
}

func (s *MemStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Saves reports how many times Save succeeded.
func (s *MemStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
