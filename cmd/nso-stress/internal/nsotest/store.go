// Package nsotest is an in-memory stand-in for an NSO northbound
// interface. It serves the RESTCONF data tree and the JSON-RPC method
// surface the stress clients exercise, backed by a shared flat store.
// Tests run against it, and `nso-stress mock` starts it standalone.
package nsotest

import (
	"sort"
	"strings"
	"sync"
)

// Store holds configuration documents keyed by resource path. Paths
// are slash-separated without a leading slash, a document at
// "devices/device=ce0" shadows nothing, children are separate entries.
type Store struct {
	mu      sync.RWMutex
	data    map[string]string
	nextTH  int
	trans   map[int]string
	session bool
}

func NewStore() *Store {
	return &Store{
		data:  make(map[string]string),
		trans: make(map[int]string),
	}
}

func (s *Store) Get(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.data[normalize(path)]
	return doc, ok
}

// Create stores a new document, failing when the path already exists.
func (s *Store) Create(path, doc string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(path)
	if _, exists := s.data[key]; exists {
		return false
	}
	s.data[key] = doc
	return true
}

// Update overwrites an existing document, failing when absent.
func (s *Store) Update(path, doc string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(path)
	if _, exists := s.data[key]; !exists {
		return false
	}
	s.data[key] = doc
	return true
}

// Set stores a document whether or not it exists.
func (s *Store) Set(path, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[normalize(path)] = doc
}

// Delete removes a document and everything below it, reporting
// whether anything was removed.
func (s *Store) Delete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalize(path)
	deleted := false
	for k := range s.data {
		if k == key || strings.HasPrefix(k, key+"/") {
			delete(s.data, k)
			deleted = true
		}
	}
	return deleted
}

// List returns the paths at or below a prefix in sorted order.
func (s *Store) List(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := normalize(prefix)
	var paths []string
	for k := range s.data {
		if key == "" || k == key || strings.HasPrefix(k, key+"/") {
			paths = append(paths, k)
		}
	}
	sort.Strings(paths)
	return paths
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) login() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = true
}

func (s *Store) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = false
	s.trans = make(map[int]string)
}

func (s *Store) loggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) newTrans(mode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTH++
	s.trans[s.nextTH] = mode
	return s.nextTH
}

func (s *Store) transMode(th int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mode, ok := s.trans[th]
	return mode, ok
}

func (s *Store) deleteTrans(th int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trans[th]; !ok {
		return false
	}
	delete(s.trans, th)
	return true
}

func (s *Store) listTrans() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.trans))
	for th, mode := range s.trans {
		out[th] = mode
	}
	return out
}

// normalize maps both keypath ("/devices/device{ce0}/port") and
// RESTCONF ("devices/device=ce0/port") spellings onto one store key.
func normalize(path string) string {
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, "{", "=")
	path = strings.ReplaceAll(path, "}", "")
	return path
}
