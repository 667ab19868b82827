package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/reconcile"
	"letraz-harvester/internal/scraper"
	"letraz-harvester/internal/scraper/crawler"
	"letraz-harvester/internal/scraper/scrapertest"
	"letraz-harvester/internal/scraper/sites"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// boardAdapter is a minimal site serving <li class="post"> cards
type boardAdapter struct {
	name string
}

func (b *boardAdapter) Name() string         { return b.name }
func (b *boardAdapter) BaseURL() string      { return "https://" + b.name + ".test" }
func (b *boardAdapter) ListSelector() string { return "li.post" }
func (b *boardAdapter) BuildSearchURL(keywords []string, page int) string {
	return fmt.Sprintf("%s/search/%s/%d", b.BaseURL(), strings.Join(keywords, "-"), page)
}
func (b *boardAdapter) Capabilities() models.Capabilities { return models.Capabilities{} }
func (b *boardAdapter) HomeURL() string                   { return b.BaseURL() + "/home" }

func (b *boardAdapter) ParseSummary(ctx context.Context, page scraper.Surface, index int) (models.Listing, error) {
	card, err := scraper.Card(ctx, page, b.ListSelector(), index)
	if err != nil {
		return models.Listing{}, err
	}
	return models.Listing{
		Title: scraper.FirstText(card, "a"),
		URL:   scraper.FirstAttr(card, "href", "a"),
	}, nil
}

func (b *boardAdapter) IsLoggedIn(ctx context.Context, page scraper.Surface) bool {
	return scraper.Present(ctx, page, ".avatar")
}

func (b *boardAdapter) Username(ctx context.Context, page scraper.Surface) string {
	doc, err := scraper.PageDocument(ctx, page)
	if err != nil {
		return ""
	}
	return scraper.FirstText(doc.Selection, ".avatar .name")
}

type fakeProvider struct {
	surface *scrapertest.Surface
	err     error
	calls   int
}

func (p *fakeProvider) NewSurface(ctx context.Context) (scraper.Surface, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.surface, nil
}

type fixture struct {
	coordinator *Coordinator
	provider    *fakeProvider
	surface     *scrapertest.Surface
	store       store.Store
	lockPath    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	s, err := store.OpenSQLite(context.Background(), filepath.Join(dir, "jobs.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	surface := scrapertest.NewSurface(map[string]string{
		"https://alpha.test/search/go/1": `<ul><li class="post"><a href="/j/1">Go Engineer</a></li><li class="post"><a href="/j/2">SRE</a></li></ul>`,
		"https://beta.test/search/go/1":  `<ul><li class="post"><a href="https://beta.test/j/9">Data Engineer</a></li></ul>`,
		"https://alpha.test/home":        `<header><div class="avatar"><span class="name">Priya</span></div></header>`,
		"https://beta.test/home":         `<header><a href="/login">Sign in</a></header>`,
	})
	provider := &fakeProvider{surface: surface}
	lockPath := filepath.Join(dir, "jobs.db.run.lock")

	registry := sites.NewRegistryOf(&boardAdapter{name: "alpha"}, &boardAdapter{name: "beta"})
	c := New(
		registry,
		provider,
		crawler.New(crawler.Timing{}, crawler.WithLogger(logging.Nop())),
		reconcile.New(s, logging.Nop()),
		WithRunLock(lockPath),
		WithLogger(logging.Nop()),
		WithTiming(scraper.Timing{}),
	)

	return &fixture{coordinator: c, provider: provider, surface: surface, store: s, lockPath: lockPath}
}

func runConfig(sources ...string) RunConfig {
	return RunConfig{Sources: sources, Keywords: []string{"go"}, MaxPages: 1, Mode: models.ScrapeModeSearch}
}

func TestRunReconcilesEverySource(t *testing.T) {
	f := newFixture(t)

	summary, err := f.coordinator.Run(context.Background(), runConfig("alpha", "beta"))
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "alpha", summary.Results[0].Source)
	assert.Equal(t, 2, summary.Results[0].JobsFound)
	assert.Equal(t, 2, summary.Results[0].JobsAdded)
	assert.Equal(t, "beta", summary.Results[1].Source)
	assert.Equal(t, 1, summary.Results[1].JobsAdded)
	assert.Equal(t, 3, summary.TotalJobsAdded)
	assert.False(t, summary.LoginRequired)
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, f.surface.Closed)
	assert.Equal(t, 1, f.provider.calls)

	rec, err := f.store.FindByURL(context.Background(), "https://alpha.test/j/1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", rec.Source)
}

func TestRunTwiceSkipsKnownListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Run(ctx, runConfig("alpha"))
	require.NoError(t, err)

	summary, err := f.coordinator.Run(ctx, runConfig("alpha"))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalJobsAdded)
	assert.Equal(t, 2, summary.Results[0].JobsSkipped)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestRunValidatesBeforeNavigating(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RunConfig
		message string
	}{
		{"no sources", RunConfig{Keywords: []string{"go"}, MaxPages: 1}, "No sources specified"},
		{"unknown source", runConfig("alpha", "monster"), "Unknown scraper: monster"},
		{"search without keywords", RunConfig{Sources: []string{"alpha"}, MaxPages: 1, Mode: models.ScrapeModeSearch}, "No keywords specified for search mode"},
		{"both without keywords", RunConfig{Sources: []string{"alpha"}, MaxPages: 1, Mode: models.ScrapeModeBoth}, "No keywords specified for search mode"},
		{"pages out of range", RunConfig{Sources: []string{"alpha"}, Keywords: []string{"go"}, MaxPages: 11}, "maxPages must be between 1 and 10, got 11"},
		{"bad mode", RunConfig{Sources: []string{"alpha"}, Keywords: []string{"go"}, MaxPages: 1, Mode: "everything"}, "Invalid scrape mode: everything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			summary, err := f.coordinator.Run(context.Background(), tt.cfg)

			assert.Nil(t, summary)
			ce, ok := utils.AsCustomError(err)
			require.True(t, ok, "expected a CustomError, got %v", err)
			assert.Equal(t, 400, ce.Code)
			assert.Equal(t, tt.message, ce.Message)
			assert.Zero(t, f.provider.calls)
			assert.Empty(t, f.surface.Navigations)
		})
	}
}

func TestRunRecommendationsWithoutKeywordsIsValid(t *testing.T) {
	f := newFixture(t)
	cfg := RunConfig{Sources: []string{"alpha"}, MaxPages: 1, Mode: models.ScrapeModeRecommendations}

	summary, err := f.coordinator.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha does not support recommendations"}, summary.Results[0].Errors)
}

func TestRunSurfaceFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("chrome not found")

	summary, err := f.coordinator.Run(context.Background(), runConfig("alpha"))

	assert.Nil(t, summary)
	assert.ErrorContains(t, err, "chrome not found")
	ce, ok := utils.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, 422, ce.Code)
}

func TestRunRefusesWhileLocked(t *testing.T) {
	f := newFixture(t)
	held := flock.New(f.lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = f.coordinator.Run(context.Background(), runConfig("alpha"))

	ce, ok := utils.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, 409, ce.Code)
	assert.Zero(t, f.provider.calls)
}

func TestRunCancelledReturnsPartialSummary(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.coordinator.Run(ctx, runConfig("alpha", "beta"))

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Results)
	assert.True(t, f.surface.Closed)
}

func TestCheckLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.coordinator.CheckLogin(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, models.LoginStatus{IsLoggedIn: true, Username: "Priya"}, status)

	status, err = f.coordinator.CheckLogin(ctx, "beta")
	require.NoError(t, err)
	assert.False(t, status.IsLoggedIn)

	_, err = f.coordinator.CheckLogin(ctx, "indeed")
	ce, ok := utils.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid site: indeed. Supported sites: alpha, beta", ce.Message)
}

func TestCheckAllLogins(t *testing.T) {
	f := newFixture(t)

	statuses, err := f.coordinator.CheckAllLogins(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	assert.True(t, statuses["alpha"].IsLoggedIn)
	assert.False(t, statuses["beta"].IsLoggedIn)
}
