// Package local implements the single-device store: one JSON array file per
// key in a directory, with same-process notification on write and
// cross-process notification through filesystem events.
package local

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"retail-service/internal/store"
	"retail-service/prometheus"
)

const fileExt = ".json"

// Store persists JSON collections under fixed keys
type Store struct {
	dir     string
	log     *zap.Logger
	mu      sync.Mutex
	last    map[string][]byte
	feed    *store.Feed[struct{}]
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// Open prepares dir and starts watching it for writes made by other processes
func Open(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	s := &Store{
		dir:  dir,
		log:  log.With(zap.String("backend", string(store.KindLocal))),
		last: make(map[string][]byte),
		feed: store.NewFeed[struct{}](),
		done: make(chan struct{}),
	}
	s.feed.OnCount = func(key string, count int) {
		prometheus.SetActiveSubscriptions(string(store.KindLocal), key, count)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("Cross-process notifications disabled", zap.Error(err))
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		s.log.Warn("Cross-process notifications disabled", zap.String("dir", dir), zap.Error(err))
		return s, nil
	}
	s.watcher = watcher
	s.wg.Add(1)
	go s.watch()
	return s, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Read returns the stored collection, or seed when the key is absent.
// Unreadable or corrupt contents are treated as absent.
func (s *Store) Read(key string, seed []byte) []byte {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			prometheus.RecordBackendError(string(store.KindLocal), "read")
			s.log.Warn("Failed to read local collection, using seed", zap.String("key", key), zap.Error(err))
		}
		return seed
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		prometheus.RecordBackendError(string(store.KindLocal), "corrupt")
		s.log.Warn("Corrupt local collection, using seed", zap.String("key", key), zap.Error(err))
		return seed
	}
	return data
}

// Write overwrites the collection stored under key and notifies subscribers
func (s *Store) Write(key string, data []byte) error {
	if err := s.Put(key, data); err != nil {
		return err
	}
	s.Notify(key)
	return nil
}

// Put overwrites the collection without notifying
func (s *Store) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		prometheus.RecordBackendError(string(store.KindLocal), "write")
		return fmt.Errorf("write local collection %s: %w", key, err)
	}
	if err := os.Rename(temp, target); err != nil {
		prometheus.RecordBackendError(string(store.KindLocal), "write")
		return fmt.Errorf("replace local collection %s: %w", key, err)
	}
	s.last[key] = append([]byte(nil), data...)
	return nil
}

// Notify makes every subscriber of key re-read it
func (s *Store) Notify(key string) {
	s.feed.Broadcast(key, struct{}{})
}

// Subscribe calls fn with the current contents (or seed) right away and
// again after every write to key from this or another process
func (s *Store) Subscribe(key string, seed []byte, fn func([]byte)) store.Unsubscribe {
	sub, unsubscribe := s.feed.Add(key, func(struct{}) {
		fn(s.Read(key, seed))
	})
	sub.Deliver(struct{}{})
	return unsubscribe
}

func (s *Store) watch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasSuffix(base, fileExt) {
				continue
			}
			key := strings.TrimSuffix(base, fileExt)
			if s.feed.Len(key) == 0 {
				continue
			}
			if !s.changedExternally(key) {
				continue
			}
			s.log.Debug("Local collection changed by another process", zap.String("key", key))
			s.Notify(key)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("Local store watcher error", zap.Error(err))
		}
	}
}

// changedExternally filters out the events caused by this process's own writes
func (s *Store) changedExternally(key string) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes.Equal(data, s.last[key]) {
		return false
	}
	s.last[key] = data
	return true
}

// Close stops the watcher
func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}
