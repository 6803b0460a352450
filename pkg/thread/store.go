package thread

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/tinyland-inc/picorelay/pkg/logger"
)

// WriteFunc persists an encoded document to path.
type WriteFunc func(path string, content []byte) error

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*Store)

// WithWriter replaces the atomic file writer. Tests use it to inject
// flush failures.
func WithWriter(w WriteFunc) StoreOption {
	return func(s *Store) { s.write = w }
}

// Store maps counterparty ids to threads and mirrors the whole mapping to
// one JSON document. Every mutation flushes before returning; a failed
// flush restores the previous in-memory value.
type Store struct {
	path  string
	write WriteFunc

	mu      sync.RWMutex
	threads map[int64]*Thread
	loaded  bool

	// flushMu orders whole-document writes so an older snapshot never
	// lands after a newer one.
	flushMu sync.Mutex
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:    path,
		write:   writeAtomic,
		threads: make(map[int64]*Thread),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory state with the document on disk. A missing
// or empty document yields an empty store.
func (s *Store) Load() error {
	threads, err := readDocument(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.threads = threads
	s.loaded = true
	s.mu.Unlock()

	logger.InfoCF("store", "Threads loaded", map[string]any{
		"path":    s.path,
		"threads": len(threads),
	})
	return nil
}

// Loaded reports whether Load has completed successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Get returns a copy of the thread for id.
func (s *Store) Get(id int64) (*Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Upsert stores t under its counterparty id and flushes.
func (s *Store) Upsert(t *Thread) error {
	if t == nil {
		return ErrMissingID
	}
	if err := t.validate(); err != nil {
		return err
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	prev, existed := s.threads[t.CounterpartyID]
	s.threads[t.CounterpartyID] = t.Clone()
	data, err := encodeDocument(s.threads)
	if err != nil {
		s.restoreLocked(t.CounterpartyID, prev, existed)
		s.mu.Unlock()
		return &PersistenceError{Path: s.path, RolledBack: true, Err: err}
	}
	s.mu.Unlock()

	if err := s.write(s.path, data); err != nil {
		s.mu.Lock()
		s.restoreLocked(t.CounterpartyID, prev, existed)
		s.mu.Unlock()
		logger.ErrorCF("store", "Flush failed, mutation rolled back", map[string]any{
			"path":      s.path,
			"thread_id": t.CounterpartyID,
			"error":     err.Error(),
		})
		return &PersistenceError{Path: s.path, RolledBack: true, Err: err}
	}
	return nil
}

// Update applies fn to a copy of the thread for id and upserts the result.
// fn returning an error aborts without touching the store.
func (s *Store) Update(id int64, fn func(*Thread) error) (*Thread, error) {
	cur, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("thread %d: %w", id, ErrNotFound)
	}
	if err := fn(cur); err != nil {
		return nil, err
	}
	if err := s.Upsert(cur); err != nil {
		return nil, err
	}
	return cur.Clone(), nil
}

func (s *Store) restoreLocked(id int64, prev *Thread, existed bool) {
	if existed {
		s.threads[id] = prev
	} else {
		delete(s.threads, id)
	}
}

// Flush writes the current state without mutating it.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	data, err := encodeDocument(s.threads)
	s.mu.RUnlock()
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := s.write(s.path, data); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}

// ForEachActive yields copies of active threads in ascending id order. The
// id set is captured when iteration starts; threads that turn inactive
// before they are reached are skipped.
func (s *Store) ForEachActive() iter.Seq2[int64, *Thread] {
	return func(yield func(int64, *Thread) bool) {
		for _, id := range s.ids() {
			s.mu.RLock()
			t, ok := s.threads[id]
			var c *Thread
			if ok && t.Active {
				c = t.Clone()
			}
			s.mu.RUnlock()
			if c == nil {
				continue
			}
			if !yield(id, c) {
				return
			}
		}
	}
}

// All returns copies of every thread, active or not, in ascending id order.
func (s *Store) All() []*Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *Thread) int {
		switch {
		case a.CounterpartyID < b.CounterpartyID:
			return -1
		case a.CounterpartyID > b.CounterpartyID:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of threads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// ActiveCount returns the number of active threads.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.threads {
		if t.Active {
			n++
		}
	}
	return n
}

func (s *Store) ids() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
