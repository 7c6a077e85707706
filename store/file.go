package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// debounceInterval collapses bursts of filesystem events into one reload.
const debounceInterval = 100 * time.Millisecond

// FileStore persists entries to a single JSON file. Writes go through a
// temp-file rename so the token/user pair is never observed half-written.
// A filesystem watch makes changes written by another process visible,
// which is how multi-process login stays in sync.
type FileStore struct {
	path string

	mu       sync.RWMutex
	data     map[string]string
	watchers map[int]func()
	nextID   int

	watchOnce sync.Once
	watchErr  error
	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create data dir")
	}
	s := &FileStore{
		path:     path,
		data:     make(map[string]string),
		watchers: make(map[int]func()),
		done:     make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	return s.SetAll(map[string]string{key: value})
}

func (s *FileStore) SetAll(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.data[k] = v
	}
	return s.persist()
}

func (s *FileStore) Clear(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return s.persist()
}

func (s *FileStore) Watch(fn func()) (func(), error) {
	s.watchOnce.Do(s.startWatch)
	if s.watchErr != nil {
		return nil, s.watchErr
	}
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

// Close stops the filesystem watch. The store remains usable for reads and
// writes afterwards.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.fsWatcher != nil {
			s.fsWatcher.Close()
		}
	})
	return nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "[FileStore.load] read")
	}
	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrap(err, "[FileStore.load] unmarshal")
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// persist must be called with the lock held. The temp-file rename keeps the
// on-disk pair atomic.
func (s *FileStore) persist() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return errors.Wrap(err, "[FileStore.persist] marshal")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.persist] write temp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[FileStore.persist] rename")
	}
	return nil
}

func (s *FileStore) startWatch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.watchErr = errors.Wrap(err, "[FileStore.startWatch] new watcher")
		return
	}
	// Watch the directory: the rename in persist replaces the file node, so
	// a watch on the file itself would go stale after the first write.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		s.watchErr = errors.Wrap(err, "[FileStore.startWatch] add dir")
		return
	}
	s.fsWatcher = w
	go s.watchLoop()
}

func (s *FileStore) watchLoop() {
	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			s.reload()
		case _, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *FileStore) reload() {
	if err := s.load(); err != nil {
		return
	}
	s.mu.RLock()
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	notify(fns)
}
