package store

import "sync"

// MemoryStore keeps entries for the lifetime of the process. It is the
// default store and the one used throughout the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[int]func()
	nextID   int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		watchers: make(map[int]func()),
	}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	fns := s.watcherList()
	s.mu.Unlock()
	go notify(fns)
	return nil
}

func (s *MemoryStore) SetAll(entries map[string]string) error {
	s.mu.Lock()
	for k, v := range entries {
		s.data[k] = v
	}
	fns := s.watcherList()
	s.mu.Unlock()
	go notify(fns)
	return nil
}

func (s *MemoryStore) Clear(keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.data, k)
	}
	fns := s.watcherList()
	s.mu.Unlock()
	go notify(fns)
	return nil
}

func (s *MemoryStore) Watch(fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}, nil
}

// watcherList must be called with the lock held.
func (s *MemoryStore) watcherList() []func() {
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	return fns
}

// notify runs callbacks outside the store lock so a callback may call back
// into the store or into its own owner. The memory store delivers
// notifications asynchronously for the same reason: the writer may be
// holding its own lock across the write.
func notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
