// Package enrich gathers counterparty profile data at thread milestones and
// renders it as operator-facing text.
package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// Mode names the milestone that fired an enrichment.
type Mode string

const (
	FirstContact Mode = "first_contact"
	FirstReply   Mode = "first_reply"
	OnDemand     Mode = "on_demand"
)

// Heading is the first line shown to the operator for a result in mode m.
func (m Mode) Heading() string {
	switch m {
	case FirstContact:
		return "Profile:"
	case FirstReply:
		return "Fresh profile:"
	default:
		return "Lookup:"
	}
}

// Profile is the platform's view of a counterparty. Empty strings and nil
// pointers mean the platform did not report the field.
type Profile struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Bio          string
	LanguageCode string
	IsPremium    *bool
}

// FullName joins first and last name when present.
func (p Profile) FullName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Source is the platform side of enrichment.
type Source interface {
	FetchProfile(ctx context.Context, id int64) (*Profile, error)
	ProfilePhotoRefs(ctx context.Context, id int64, limit int) ([]string, error)
	DownloadMedia(ctx context.Context, fileRef string) ([]byte, error)
}

// History gives read access to stored threads for the media log.
type History interface {
	Get(id int64) (*thread.Thread, bool)
}

// LookupError wraps a failed profile retrieval.
type LookupError struct {
	CounterpartyID int64
	Err            error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %d: %v", e.CounterpartyID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Result is one enrichment outcome. Err is set when the profile could not
// be retrieved; PhotoErr when only the photos failed.
type Result struct {
	Mode           Mode
	CounterpartyID int64
	Profile        *Profile
	PhotoPaths     []string
	PhotoErr       error
	MediaLog       []string
	Err            error
}

// Firer is what the relay engine needs from a Trigger.
type Firer interface {
	Fire(ctx context.Context, id int64, mode Mode) Result
}

// TriggerOption is a functional option for configuring a Trigger.
type TriggerOption func(*Trigger)

// WithPhotoLimit caps the number of profile photos downloaded per fire.
func WithPhotoLimit(n int) TriggerOption {
	return func(t *Trigger) { t.photoLimit = n }
}

// WithMediaDir sets where downloaded photos are written.
func WithMediaDir(dir string) TriggerOption {
	return func(t *Trigger) { t.mediaDir = dir }
}

// Trigger retrieves and stores counterparty profile data.
type Trigger struct {
	source     Source
	history    History
	mediaDir   string
	photoLimit int
}

func NewTrigger(source Source, history History, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		source:     source,
		history:    history,
		mediaDir:   ".",
		photoLimit: 10,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fire runs one enrichment. It never returns an error: failures end up in
// the Result and are rendered as a diagnostic line by Format.
func (t *Trigger) Fire(ctx context.Context, id int64, mode Mode) Result {
	res := Result{Mode: mode, CounterpartyID: id}

	profile, err := t.source.FetchProfile(ctx, id)
	if err != nil {
		res.Err = &LookupError{CounterpartyID: id, Err: err}
		logger.WarnCF("enrich", "Profile lookup failed", map[string]any{
			"thread_id": id,
			"mode":      string(mode),
			"error":     err.Error(),
		})
		return res
	}
	res.Profile = profile

	if t.photoLimit > 0 {
		paths, err := t.downloadPhotos(ctx, id)
		res.PhotoPaths = paths
		if err != nil {
			res.PhotoErr = err
			logger.WarnCF("enrich", "Profile photo download failed", map[string]any{
				"thread_id": id,
				"error":     err.Error(),
			})
		}
	}

	if t.history != nil {
		if th, ok := t.history.Get(id); ok {
			res.MediaLog = th.MediaLog()
		}
	}

	logger.InfoCF("enrich", "Enrichment complete", map[string]any{
		"thread_id": id,
		"mode":      string(mode),
		"photos":    len(res.PhotoPaths),
	})
	return res
}

func (t *Trigger) downloadPhotos(ctx context.Context, id int64) ([]string, error) {
	refs, err := t.source.ProfilePhotoRefs(ctx, id, t.photoLimit)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(t.mediaDir, 0o700); err != nil {
		return nil, fmt.Errorf("media dir %s: %w", t.mediaDir, err)
	}

	paths := make([]string, 0, len(refs))
	for i, ref := range refs {
		data, err := t.source.DownloadMedia(ctx, ref)
		if err != nil {
			return paths, fmt.Errorf("download photo %d: %w", i, err)
		}
		path := filepath.Join(t.mediaDir, strconv.FormatInt(id, 10)+"_photo_"+strconv.Itoa(i)+".jpg")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return paths, fmt.Errorf("write photo %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
