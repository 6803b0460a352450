// Package migrate imports thread documents written by earlier relay
// versions into the current store format.
package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// ImportOptions controls a legacy import.
type ImportOptions struct {
	SourcePath  string // legacy flat threads.json
	ThreadsPath string // destination store document
	DryRun      bool
	// Force replaces threads that already exist in the destination.
	Force bool
	// Out receives the dry-run report. Defaults to os.Stdout.
	Out io.Writer
}

// ImportResult summarizes the import.
type ImportResult struct {
	OutputPath string
	Imported   []int64
	Skipped    []int64
	Warnings   []string
}

type legacyEntry struct {
	FromOwner  bool   `json:"from_owner"`
	FromTarget bool   `json:"from_target"`
	Content    string `json:"content"`
	MsgID      *int   `json:"msg_id"`
	Timestamp  string `json:"timestamp"`
}

type legacyThread struct {
	SentID   int           `json:"sent_id"`
	History  []legacyEntry `json:"history"`
	Active   bool          `json:"active"`
	Username string        `json:"username"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// mediaLabel recovers the media type from a "Media: <type>" placeholder.
func mediaLabel(content string) string {
	rest, ok := strings.CutPrefix(content, "Media: ")
	if !ok {
		return ""
	}
	if i := strings.Index(rest, " "); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// RunImport converts the legacy document at opts.SourcePath and upserts
// every thread into the store at opts.ThreadsPath.
func RunImport(opts ImportOptions) (*ImportResult, error) {
	if opts.SourcePath == "" {
		return nil, fmt.Errorf("source path is required")
	}
	if opts.ThreadsPath == "" {
		return nil, fmt.Errorf("threads path is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	data, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading legacy threads: %w", err)
	}
	var legacy map[string]legacyThread
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parsing legacy threads: %w", err)
	}

	store := thread.NewStore(opts.ThreadsPath)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("loading destination: %w", err)
	}

	result := &ImportResult{OutputPath: opts.ThreadsPath}

	keys := make([]string, 0, len(legacy))
	for k := range legacy {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipping thread with invalid id %q", key))
			continue
		}
		t, warnings, err := convert(id, legacy[key])
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipping thread %d: %v", id, err))
			continue
		}

		if _, exists := store.Get(id); exists && !opts.Force {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		if opts.DryRun {
			fmt.Fprintf(out, "would import %d (@%s): %d entries, active=%t\n",
				id, t.DisplayHandle(), len(t.History), t.Active)
			result.Imported = append(result.Imported, id)
			continue
		}
		if err := store.Upsert(t); err != nil {
			return result, fmt.Errorf("writing thread %d: %w", id, err)
		}
		result.Imported = append(result.Imported, id)
	}
	return result, nil
}

func convert(id int64, lt legacyThread) (*thread.Thread, []string, error) {
	if len(lt.History) == 0 {
		return nil, nil, thread.ErrEmptyHistory
	}
	var warnings []string

	entries := make([]thread.Entry, 0, len(lt.History))
	for i, le := range lt.History {
		at, ok := parseTimestamp(le.Timestamp)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("thread %d entry %d: unparseable timestamp %q", id, i, le.Timestamp))
		}
		if le.FromTarget && !le.FromOwner {
			entries = append(entries, thread.Entry{
				Direction: thread.FromCounterparty,
				Content:   le.Content,
				MessageID: le.MsgID,
				MediaType: mediaLabel(le.Content),
				Timestamp: at,
			})
			continue
		}
		entries = append(entries, thread.NewOperatorEntry(le.Content, at))
	}

	handle := lt.Username
	if handle == thread.DefaultHandle || handle == "None" {
		handle = ""
	}
	t, err := thread.New(id, handle, lt.SentID, entries[0])
	if err != nil {
		return nil, warnings, err
	}
	for _, e := range entries[1:] {
		if err := t.Append(e); err != nil {
			return nil, warnings, err
		}
	}
	t.Active = lt.Active
	return t, warnings, nil
}
