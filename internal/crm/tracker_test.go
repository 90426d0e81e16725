package crm

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestTracker(t *testing.T) (*Tracker, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return NewTracker(s), s
}

// clock returns successive instants one minute apart.
func clock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

var (
	dental = model.Business{Title: "Lakeside Dental", Address: "42 Galle Rd", OpportunityScore: 85}
	bakery = model.Business{Title: "Sunrise Bakery", Address: "118 Duplication Rd", Rating: 4.3}
)

func TestTracker_SaveNew(t *testing.T) {
	tr, _ := newTestTracker(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr.now = clock(start)

	e, err := tr.Save(context.Background(), dental)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, e.Status)
	assert.Equal(t, start, e.SavedAt)
	assert.Equal(t, dental, e.Business)

	got, err := tr.Get(context.Background(), dental.Key())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestTracker_ResaveKeepsSavedAtAndOverwritesSnapshot(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr.now = clock(start)

	_, err := tr.Save(ctx, dental)
	require.NoError(t, err)
	_, err = tr.SetStatus(ctx, dental.Key(), StatusContacted)
	require.NoError(t, err)
	_, err = tr.SetNotes(ctx, dental.Key(), "asked for a quote")
	require.NoError(t, err)

	updated := dental
	updated.Email = "info@lakeside.lk"
	updated.OpportunityScore = 75
	e, err := tr.Save(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, start, e.SavedAt)
	assert.Equal(t, StatusContacted, e.Status)
	assert.Equal(t, "asked for a quote", e.Notes)
	assert.Equal(t, "info@lakeside.lk", e.Business.Email)
	assert.Equal(t, 75, e.Business.OpportunityScore)
}

func TestTracker_SaveFillsZeroSavedAt(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	body, err := json.Marshal(Document{dental.Key(): {Status: StatusGoodLead, Business: dental}})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, DocumentName, body))

	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	e, err := tr.Save(ctx, dental)
	require.NoError(t, err)
	assert.Equal(t, now, e.SavedAt)
	assert.Equal(t, StatusGoodLead, e.Status)
}

func TestTracker_MissingKey(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Get(ctx, "nope|nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tr.SetStatus(ctx, "nope|nowhere", StatusHighValue)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tr.SetNotes(ctx, "nope|nowhere", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, tr.Remove(ctx, "nope|nowhere"), ErrNotFound)
}

func TestTracker_ListAndRemove(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	tr.now = clock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	_, err := tr.Save(ctx, dental)
	require.NoError(t, err)
	_, err = tr.Save(ctx, bakery)
	require.NoError(t, err)
	_, err = tr.SetStatus(ctx, bakery.Key(), StatusHighValue)
	require.NoError(t, err)

	all, err := tr.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Sunrise Bakery", all[0].Business.Title, "newest first")

	hv, err := tr.List(ctx, StatusHighValue)
	require.NoError(t, err)
	require.Len(t, hv, 1)
	assert.Equal(t, bakery.Key(), hv[0].Business.Key())

	require.NoError(t, tr.Remove(ctx, bakery.Key()))
	all, err = tr.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, dental.Key(), all[0].Business.Key())
}

func TestTracker_SharedDocumentAcrossTrackers(t *testing.T) {
	mr := miniredis.RunT(t)
	s := store.NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer s.Close() //nolint:errcheck
	ctx := context.Background()

	_, err := NewTracker(s).Save(ctx, dental)
	require.NoError(t, err)

	e, err := NewTracker(s).Get(ctx, dental.Key())
	require.NoError(t, err)
	assert.Equal(t, dental, e.Business)
}

func TestTracker_KeysAreExact(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.Save(ctx, dental)
	require.NoError(t, err)
	variant := dental
	variant.Title = "lakeside dental"
	_, err = tr.Save(ctx, variant)
	require.NoError(t, err)

	all, err := tr.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

type brokenStore struct{ store.Store }

func (brokenStore) Load(context.Context, string) ([]byte, error) { return []byte("{not json"), nil }

func TestTracker_CorruptDocument(t *testing.T) {
	tr := NewTracker(brokenStore{})
	_, err := tr.List(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm: unmarshal document")
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"new":          StatusNew,
		"CONTACTED":    StatusContacted,
		"call later":   StatusCallLater,
		"call-later":   StatusCallLater,
		"Good_Lead":    StatusGoodLead,
		" high value ": StatusHighValue,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("won")
	assert.Error(t, err)
}
