package thread

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThread(t *testing.T, id int64, sent int, texts ...string) *Thread {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	th, err := New(id, "user", sent, NewOperatorEntry(texts[0], now))
	require.NoError(t, err)
	for i, txt := range texts[1:] {
		require.NoError(t, th.Append(NewCounterpartyEntry(txt, 1000+i, "", now.Add(time.Duration(i+1)*time.Second))))
	}
	return th
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "threads.json"))
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Loaded())
}

func TestStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestStore_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"threads": {`), 0o600))

	s := NewStore(path)
	assert.ErrorIs(t, s.Load(), ErrDecodeFailed)
}

func TestStore_LoadRejectsEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	doc := `{"version":1,"threads":{"5":{"counterparty_id":5,"sent_id":1,"history":[],"active":true}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	assert.ErrorIs(t, NewStore(path).Load(), ErrDecodeFailed)
}

func TestStore_RoundTripWithWallClockTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	th, err := New(555, "bob", 42, NewOperatorEntry("hi", time.Now()))
	require.NoError(t, err)
	require.NoError(t, th.Append(NewCounterpartyEntry("yo", 7, "photo", time.Now().In(time.Local))))
	require.NoError(t, s.Upsert(th))

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, s.All(), reloaded.All())
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	s := NewStore(path)
	require.NoError(t, s.Load())

	a := newThread(t, 555, 42, "hi", "who is this")
	b := newThread(t, 777, 43, "yo")
	b.Active = false
	c := newThread(t, 888, 44, "hello", "hey", "sup")
	for _, th := range []*Thread{a, b, c} {
		require.NoError(t, s.Upsert(th))
	}

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())

	assert.Equal(t, s.All(), reloaded.All())
	got, ok := reloaded.Get(777)
	require.True(t, ok)
	assert.False(t, got.Active)

	total := 0
	for _, th := range reloaded.All() {
		total += len(th.History)
	}
	assert.Equal(t, 6, total)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "threads.json"))
	require.NoError(t, s.Upsert(newThread(t, 1, 10, "a")))

	got, ok := s.Get(1)
	require.True(t, ok)
	got.Active = false
	got.History = append(got.History, NewOperatorEntry("x", time.Now()))

	again, _ := s.Get(1)
	assert.True(t, again.Active)
	assert.Len(t, again.History, 1)
}

func TestStore_UpsertRollsBackOnWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	fail := false
	s := NewStore(path, WithWriter(func(p string, data []byte) error {
		if fail {
			return errors.New("disk full")
		}
		return writeAtomic(p, data)
	}))

	orig := newThread(t, 1, 10, "a")
	require.NoError(t, s.Upsert(orig))

	fail = true
	changed := orig.Clone()
	changed.Active = false
	err := s.Upsert(changed)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.RolledBack)
	got, _ := s.Get(1)
	assert.True(t, got.Active, "in-memory state restored")

	err = s.Upsert(newThread(t, 2, 11, "b"))
	require.ErrorAs(t, err, &pe)
	_, ok := s.Get(2)
	assert.False(t, ok, "new thread removed on failed flush")

	onDisk := NewStore(path)
	require.NoError(t, onDisk.Load())
	assert.Equal(t, 1, onDisk.Len())
}

func TestStore_UpdateMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "threads.json"))
	_, err := s.Update(9, func(*Thread) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateAbortsOnCallbackError(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "threads.json"))
	require.NoError(t, s.Upsert(newThread(t, 1, 10, "a")))

	boom := errors.New("boom")
	_, err := s.Update(1, func(th *Thread) error {
		th.Active = false
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ := s.Get(1)
	assert.True(t, got.Active)
}

func TestStore_ForEachActive(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "threads.json"))
	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, s.Upsert(newThread(t, id, int(id), "a")))
	}
	_, err := s.Update(20, func(th *Thread) error {
		th.Active = false
		return nil
	})
	require.NoError(t, err)

	var ids []int64
	for id, th := range s.ForEachActive() {
		assert.True(t, th.Active)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{10, 30}, ids)
	assert.Equal(t, 2, s.ActiveCount())

	// early break
	n := 0
	for range s.ForEachActive() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestStore_FlushLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "threads.json"))
	require.NoError(t, s.Upsert(newThread(t, 1, 10, "a")))
	require.NoError(t, s.Flush())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "threads.json", entries[0].Name())
}
