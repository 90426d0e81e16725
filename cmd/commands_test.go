package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/config"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/crm"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/store"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/view"
)

func TestChannels_DefaultsWhenUnset(t *testing.T) {
	got := channels(nil)
	require.Len(t, got, 4)
	assert.Equal(t, "direct", got[0].Name)
}

func TestChannels_FromConfig(t *testing.T) {
	got := channels([]config.RelayConfig{
		{Name: "mirror", Template: "https://mirror.test/fetch?u={url}"},
		{Name: "provider", Template: "{url}"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "mirror", got[0].Name)
	assert.Equal(t, "https://mirror.test/fetch?u=https%3A%2F%2Fx.test%2F", got[0].Endpoint("https://x.test/"))
	assert.Equal(t, "https://x.test/", got[1].Endpoint("https://x.test/"))
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatCSV, formatXLSX, formatJSON} {
		assert.NoError(t, validFormat(f))
	}
	assert.Error(t, validFormat("pdf"))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []model.Business{
		{Title: "Lakeside Dental", Rating: 4.3, Reviews: 8, OpportunityScore: 85, Phone: "+94 11 234 5678"},
		{Title: "Sunrise Bakery", Website: "https://sunrise.test"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TITLE"))
	assert.Contains(t, lines[1], "4.3")
	assert.Contains(t, lines[1], "85")
	assert.Contains(t, lines[2], "https://sunrise.test")
	assert.Contains(t, lines[2], " - ", "missing rating renders as a dash")
}

func TestWriteOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	list := []model.Business{{Title: "Lakeside Dental", Address: "42 Galle Rd"}}
	require.NoError(t, writeOutput(list, formatJSON, path))

	got, err := readBusinesses(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lakeside Dental", got[0].Title)
}

func TestReadBusinesses_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readBusinesses(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"title":"not a list"}`), 0o600))
	_, err = readBusinesses(bad)
	assert.Error(t, err)

	untitled := filepath.Join(dir, "untitled.json")
	require.NoError(t, os.WriteFile(untitled, []byte(`[{"address":"somewhere"}]`), 0o600))
	_, err = readBusinesses(untitled)
	assert.ErrorContains(t, err, "has no title")
}

func TestWriteLeadTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLeadTable(&buf, []crm.Entry{{
		Status:   crm.StatusCallLater,
		Notes:    "after lunch\nask for the owner",
		Business: model.Business{Title: "Lakeside Dental", Address: "42 Galle Rd", OpportunityScore: 85},
	}}))

	out := buf.String()
	assert.Contains(t, out, "Lakeside Dental|42 Galle Rd")
	assert.Contains(t, out, "Call Later")
	assert.Contains(t, out, "after lunch")
	assert.NotContains(t, out, "ask for the owner")
}

func TestPrintBreakdowns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printBreakdowns(&buf, []model.Business{
		{Title: "Lakeside Dental", Reviews: 8},
		{Title: "Green Leaf Spa", Website: "https://gl.test", Email: "hi@gl.test", Reviews: 120,
			Socials: model.Socials{Facebook: "https://facebook.com/gl"}},
	}))

	out := buf.String()
	assert.Contains(t, out, "85/100")
	assert.Contains(t, out, "+30")
	assert.Contains(t, out, "0/100")
	assert.Contains(t, out, "no opportunity factors")
}

func newFilterCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	f := cmd.Flags()
	f.Float64("min-rating", 0, "")
	for _, name := range []string{"has-website", "no-website", "open-now", "has-socials", "no-socials"} {
		f.Bool(name, false, "")
	}
	require.NoError(t, f.Parse(args))
	return cmd
}

func TestSearchFilters_FlagsOverrideQuery(t *testing.T) {
	q := model.QueryFilters{NoWebsite: true, MinRating: 4}

	got := searchFilters(newFilterCmd(t), q)
	assert.Equal(t, view.Filters{NoWebsite: true, MinRating: 4}, got)

	got = searchFilters(newFilterCmd(t, "--has-website", "--min-rating=3.5", "--open-now"), q)
	assert.Equal(t, view.Filters{HasWebsite: true, MinRating: 3.5, OpenNow: true}, got)

	got = searchFilters(newFilterCmd(t, "--no-website=false"), q)
	assert.False(t, got.NoWebsite)
}

func TestSaveLeads(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	path := filepath.Join(t.TempDir(), "leads.db")
	cfg = &config.Config{Store: store.Config{Driver: store.DriverSQLite, Path: path}}

	list := []model.Business{
		{Title: "Lakeside Dental", Address: "42 Galle Rd"},
		{Title: "Sunrise Bakery", Address: "118 Duplication Rd"},
	}
	require.NoError(t, saveLeads(t.Context(), list))

	tracker, st, err := openTracker(t.Context(), cfg)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	entries, err := tracker.List(t.Context(), crm.StatusNew)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestInitSearch(t *testing.T) {
	env := initSearch(&config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"},
		Backend:   config.BackendConfig{URL: "https://api.example.test", TimeoutSecs: 20},
		Enrich:    config.EnrichConfig{TimeoutSecs: 3, CacheTTLMins: 60},
	})
	require.NotNil(t, env.Coordinator)
	require.NotNil(t, env.Interpreter)

	_, err := env.Registry.Gather()
	require.NoError(t, err)

	snap := env.NewSession(&config.Config{}).Snapshot()
	assert.NotEmpty(t, snap.ID)
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "New, Contacted, Call Later, Good Lead, High Value", statusNames())
}

func TestReadBusinesses_FromExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, view.WriteJSON(&buf, []model.Business{{Title: "A"}}))
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := readBusinesses(path)
	require.NoError(t, err)
	assert.Equal(t, "A", got[0].Title)
}
