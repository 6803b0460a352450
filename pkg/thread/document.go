package thread

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const documentVersion = 1

// document is the on-disk shape of the store.
type document struct {
	Version int               `json:"version"`
	Threads map[int64]*Thread `json:"threads"`
}

func encodeDocument(threads map[int64]*Thread) ([]byte, error) {
	doc := document{Version: documentVersion, Threads: threads}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return append(data, '\n'), nil
}

// readDocument returns an empty map for a missing or blank file.
func readDocument(path string) (map[int64]*Thread, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[int64]*Thread{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[int64]*Thread{}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	if doc.Threads == nil {
		doc.Threads = map[int64]*Thread{}
	}
	for id, t := range doc.Threads {
		if t == nil {
			return nil, fmt.Errorf("%w: %s: thread %d is null", ErrDecodeFailed, path, id)
		}
		if t.CounterpartyID == 0 {
			t.CounterpartyID = id
		}
		if t.CounterpartyID != id {
			return nil, fmt.Errorf("%w: %s: thread key %d holds id %d", ErrDecodeFailed, path, id, t.CounterpartyID)
		}
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: thread %d: %v", ErrDecodeFailed, path, id, err)
		}
	}
	return doc.Threads, nil
}

// writeAtomic replaces path with content via a synced temp file and rename,
// so readers only ever see the old or the new document.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: ensure dir %s: %v", ErrAtomicWriteFailed, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}

	// Best effort directory sync; ignore failures.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
