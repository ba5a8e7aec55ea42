package fstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/fsnotify/fsnotify"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("fstore")

// documentVersion is written into every document; documents with another version are rejected.
const documentVersion = 1

// document is the on-disk representation. Values are base64 encoded by encoding/json.
type document struct {
	Version int               `json:"version"`
	Values  map[string][]byte `json:"values"`
}

// Store is a file-backed store.IStore.
type Store struct {
	path     string
	watchers *store.Watchers

	mu      sync.Mutex
	values  map[string][]byte   // current view including pending local writes
	base    map[string][]byte   // last known content of the document on disk
	pending map[string]struct{} // keys written locally since the last flush
	closed  bool

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// Open loads (or creates) the document at path and starts watching it for external changes.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", abs, err)
	}

	disk, err := readDocument(abs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// watch the directory, the document itself is replaced on every write
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch directory of %s: %w", abs, err)
	}

	s := &Store{
		path:     abs,
		watchers: store.NewWatchers(),
		values:   cloneMap(disk),
		base:     disk,
		pending:  make(map[string]struct{}),
		fsw:      fsw,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.processEvents()

	return s, nil
}

// --------------------------------------------------------------------------
// Disk helpers
// --------------------------------------------------------------------------

// readDocument reads the document at path. A missing file is an empty document.
func readDocument(path string) (map[string][]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("failed to read %s: %v", path, err))
	}
	// an empty file is a document that is being created by another writer
	if len(bytes.TrimSpace(raw)) == 0 {
		return make(map[string][]byte), nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("failed to decode %s: %v", path, err))
	}
	if doc.Version != documentVersion {
		return nil, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("unsupported document version %d in %s", doc.Version, path))
	}
	if doc.Values == nil {
		doc.Values = make(map[string][]byte)
	}
	return doc.Values, nil
}

// writeDocument atomically replaces the document at path.
func writeDocument(path string, values map[string][]byte) error {
	raw, err := json.MarshalIndent(document{Version: documentVersion, Values: values}, "", "  ")
	if err != nil {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to encode document: %v", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to create temporary file: %v", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to write %s: %v", tmpName, err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to sync %s: %v", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to close %s: %v", tmpName, err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to replace %s: %v", path, err))
	}
	return nil
}

func cloneMap(m map[string][]byte) map[string][]byte {
	c := make(map[string][]byte, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// changedKeys returns all keys whose value differs between a and b.
func changedKeys(a, b map[string][]byte) []string {
	var keys []string
	for k, va := range a {
		if vb, ok := b[k]; !ok || !bytes.Equal(va, vb) {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// --------------------------------------------------------------------------
// Merge logic
// --------------------------------------------------------------------------

// mergeLocked reads the document and applies every remote change that does not
// collide with a pending local write. It returns the keys that changed remotely.
//
// Thread-safety: s.mu must be held.
func (s *Store) mergeLocked() ([]string, error) {
	disk, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, key := range changedKeys(s.base, disk) {
		if _, isPending := s.pending[key]; isPending {
			continue
		}
		if v, ok := disk[key]; ok {
			s.values[key] = v
		} else {
			delete(s.values, key)
		}
		applied = append(applied, key)
	}
	s.base = disk
	return applied, nil
}

// reload merges the document from disk and notifies watchers about remote changes.
func (s *Store) reload() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	keys, err := s.mergeLocked()
	s.mu.Unlock()

	if err != nil {
		log.Warningf("failed to reload %s: %v", s.path, err)
		return
	}
	if len(keys) > 0 {
		log.Debugf("picked up %d remote change(s) from %s", len(keys), s.path)
		s.watchers.Notify(store.ChangeEvent{Reason: store.ChangeReasonServerChange, Keys: keys})
	}
}

// processEvents is the event loop that reacts to changes of the document.
func (s *Store) processEvents() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			log.Warningf("fsnotify error for %s: %v", s.path, err)
		}
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, store.NewError(store.RetCClosed, "store is closed")
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	c := make([]byte, len(v))
	copy(c, v)
	return c, true, nil
}

func (s *Store) Set(key string, value []byte) error {
	c := make([]byte, len(value))
	copy(c, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	s.values[key] = c
	s.pending[key] = struct{}{}
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	delete(s.values, key)
	s.pending[key] = struct{}{}
	return nil
}

// Synchronize pulls remote changes and flushes pending local writes to disk.
func (s *Store) Synchronize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.NewError(store.RetCClosed, "store is closed")
	}
	keys, err := s.flushLocked()
	s.mu.Unlock()

	if len(keys) > 0 {
		s.watchers.Notify(store.ChangeEvent{Reason: store.ChangeReasonServerChange, Keys: keys})
	}
	return err
}

// flushLocked merges the disk state and writes all pending keys.
// It returns the keys changed remotely during the merge.
//
// Thread-safety: s.mu must be held.
func (s *Store) flushLocked() ([]string, error) {
	remote, err := s.mergeLocked()
	if err != nil {
		return nil, err
	}
	if len(s.pending) == 0 {
		return remote, nil
	}

	next := cloneMap(s.base)
	for key := range s.pending {
		if v, ok := s.values[key]; ok {
			next[key] = v
		} else {
			delete(next, key)
		}
	}
	if err := writeDocument(s.path, next); err != nil {
		return remote, err
	}
	s.base = next
	s.pending = make(map[string]struct{})
	return remote, nil
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	return s.watchers.Add(handler)
}

// Close flushes pending writes and stops watching the document.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	_, flushErr := s.flushLocked()
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	err := s.fsw.Close()
	s.wg.Wait()
	s.watchers.Clear()

	if flushErr != nil {
		return flushErr
	}
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Path returns the absolute path of the document.
func (s *Store) Path() string {
	return s.path
}
