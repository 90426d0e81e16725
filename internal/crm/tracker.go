// Package crm tracks saved leads: a status and notes per business, keyed by
// the business identity key.
package crm

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/store"
)

// DocumentName is the store document holding every entry.
const DocumentName = "leads"

// ErrNotFound means no entry exists for the key.
var ErrNotFound = eris.New("crm: lead not found")

// Entry is one tracked lead.
type Entry struct {
	Status   Status         `json:"status"`
	Notes    string         `json:"notes"`
	Business model.Business `json:"business"`
	SavedAt  time.Time      `json:"saved_at"`
}

// Document maps business keys to entries.
type Document map[string]Entry

// Tracker reads and writes the whole document on every mutation.
type Tracker struct {
	store store.Store
	now   func() time.Time

	// Serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewTracker creates a Tracker over s.
func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s, now: time.Now}
}

// Save records b. A new entry starts as New with SavedAt now. An existing
// entry keeps its status, notes and SavedAt (unless SavedAt is zero) and
// takes the latest business snapshot.
func (t *Tracker) Save(ctx context.Context, b model.Business) (Entry, error) {
	var saved Entry
	err := t.mutate(ctx, func(doc Document) error {
		key := b.Key()
		e, ok := doc[key]
		if !ok {
			e = Entry{Status: StatusNew}
		}
		if e.SavedAt.IsZero() {
			e.SavedAt = t.now().UTC()
		}
		e.Business = b
		doc[key] = e
		saved = e
		return nil
	})
	return saved, err
}

// SetStatus changes an existing entry's status.
func (t *Tracker) SetStatus(ctx context.Context, key string, status Status) (Entry, error) {
	return t.update(ctx, key, func(e *Entry) { e.Status = status })
}

// SetNotes replaces an existing entry's notes.
func (t *Tracker) SetNotes(ctx context.Context, key, notes string) (Entry, error) {
	return t.update(ctx, key, func(e *Entry) { e.Notes = notes })
}

// Remove deletes an entry.
func (t *Tracker) Remove(ctx context.Context, key string) error {
	return t.mutate(ctx, func(doc Document) error {
		if _, ok := doc[key]; !ok {
			return eris.Wrapf(ErrNotFound, "crm: remove %s", key)
		}
		delete(doc, key)
		return nil
	})
}

// Get returns one entry.
func (t *Tracker) Get(ctx context.Context, key string) (Entry, error) {
	doc, err := t.load(ctx)
	if err != nil {
		return Entry{}, err
	}
	e, ok := doc[key]
	if !ok {
		return Entry{}, eris.Wrapf(ErrNotFound, "crm: get %s", key)
	}
	return e, nil
}

// List returns entries, most recently saved first. A non-empty status
// keeps only entries with that status.
func (t *Tracker) List(ctx context.Context, status Status) ([]Entry, error) {
	doc, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(doc))
	for _, e := range doc {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Business.Key(), b.Business.Key())
	})
	return out, nil
}

func (t *Tracker) update(ctx context.Context, key string, fn func(*Entry)) (Entry, error) {
	var updated Entry
	err := t.mutate(ctx, func(doc Document) error {
		e, ok := doc[key]
		if !ok {
			return eris.Wrapf(ErrNotFound, "crm: update %s", key)
		}
		fn(&e)
		doc[key] = e
		updated = e
		return nil
	})
	return updated, err
}

func (t *Tracker) mutate(ctx context.Context, fn func(Document) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "crm: marshal document")
	}
	if err := t.store.Save(ctx, DocumentName, body); err != nil {
		return eris.Wrap(err, "crm: save document")
	}
	zap.L().Debug("crm: document saved", zap.Int("entries", len(doc)))
	return nil
}

func (t *Tracker) load(ctx context.Context) (Document, error) {
	body, err := t.store.Load(ctx, DocumentName)
	if err != nil {
		return nil, eris.Wrap(err, "crm: load document")
	}
	doc := Document{}
	if len(body) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrap(err, "crm: unmarshal document")
	}
	return doc, nil
}
