package migrate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/thread"
)

const legacyDoc = `{
  "555": {
    "sent_id": 43,
    "history": [
      {"from_owner": true, "content": "hi", "timestamp": "2025-03-01T10:00:00.000001"},
      {"from_target": true, "content": "who is this", "msg_id": 100, "timestamp": "2025-03-01T10:05:00"},
      {"from_target": true, "content": "Media: photo", "msg_id": 101, "timestamp": "2025-03-01T10:06:00"},
      {"from_owner": true, "content": "a friend", "timestamp": "2025-03-01T10:07:00"}
    ],
    "active": true,
    "username": "bob"
  },
  "777": {"sent_id": 9, "history": [{"from_owner": true, "content": "yo", "timestamp": "garbage"}], "active": false, "username": "anon"},
  "abc": {"sent_id": 1, "history": [], "active": true, "username": "x"},
  "888": {"sent_id": 1, "history": [], "active": true, "username": "x"}
}`

func writeLegacy(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(src, []byte(legacyDoc), 0o600))
	return src, filepath.Join(dir, "threads.json")
}

func TestRunImport(t *testing.T) {
	src, dst := writeLegacy(t)

	result, err := RunImport(ImportOptions{SourcePath: src, ThreadsPath: dst})
	require.NoError(t, err)
	assert.Equal(t, []int64{555, 777}, result.Imported)
	assert.Len(t, result.Warnings, 3, "bad id, empty history, bad timestamp")

	store := thread.NewStore(dst)
	require.NoError(t, store.Load())

	bob, ok := store.Get(555)
	require.True(t, ok)
	assert.Equal(t, "bob", bob.Handle)
	assert.Equal(t, 43, bob.LastSentMessageID)
	require.Len(t, bob.History, 4)
	assert.Equal(t, thread.FromCounterparty, bob.History[1].Direction)
	require.NotNil(t, bob.History[1].MessageID)
	assert.Equal(t, 100, *bob.History[1].MessageID)
	assert.Equal(t, "photo", bob.History[2].MediaType)
	assert.Equal(t, []string{"Media: photo"}, bob.MediaLog())
	assert.True(t, time.Date(2025, 3, 1, 10, 5, 0, 0, time.Local).Equal(bob.History[1].Timestamp))

	anon, ok := store.Get(777)
	require.True(t, ok)
	assert.False(t, anon.Active)
	assert.Equal(t, "", anon.Handle)
}

func TestRunImport_SkipsExistingWithoutForce(t *testing.T) {
	src, dst := writeLegacy(t)
	_, err := RunImport(ImportOptions{SourcePath: src, ThreadsPath: dst})
	require.NoError(t, err)

	result, err := RunImport(ImportOptions{SourcePath: src, ThreadsPath: dst})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Equal(t, []int64{555, 777}, result.Skipped)

	result, err = RunImport(ImportOptions{SourcePath: src, ThreadsPath: dst, Force: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{555, 777}, result.Imported)
}

func TestRunImport_DryRun(t *testing.T) {
	src, dst := writeLegacy(t)
	var out bytes.Buffer

	result, err := RunImport(ImportOptions{SourcePath: src, ThreadsPath: dst, DryRun: true, Out: &out})
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	assert.Contains(t, out.String(), "would import 555 (@bob): 4 entries, active=true")

	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "dry run must not write")
}

func TestRunImport_MissingSource(t *testing.T) {
	_, err := RunImport(ImportOptions{SourcePath: filepath.Join(t.TempDir(), "none.json"), ThreadsPath: "x"})
	assert.Error(t, err)
}

func TestMediaLabel(t *testing.T) {
	assert.Equal(t, "voice", mediaLabel("Media: voice"))
	assert.Equal(t, "photo", mediaLabel("Media: photo (caption)"))
	assert.Equal(t, "", mediaLabel("hello"))
}
