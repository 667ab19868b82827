package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/scraper/scrapertest"
	"letraz-harvester/pkg/models"
)

func TestJitterStaysWithinBounds(t *testing.T) {
	min, max := 20*time.Millisecond, 25*time.Millisecond
	for i := 0; i < 500; i++ {
		d := Jitter(min, max)
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}

	assert.Equal(t, min, Jitter(min, min))
	assert.Equal(t, max, Jitter(max, min), "inverted bounds return the first argument")
}

func TestSleep(t *testing.T) {
	t.Run("waits the full duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := Sleep(ctx, 5*time.Second)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("zero duration reports cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
		assert.NoError(t, Sleep(context.Background(), 0))
	})
}

// minimalAdapter implements only the required contract
type minimalAdapter struct{}

func (minimalAdapter) Name() string { return "minimal" }
func (minimalAdapter) BaseURL() string { return "https://minimal.test" }
func (minimalAdapter) BuildSearchURL(keywords []string, n int) string { return "https://minimal.test/search" }
func (minimalAdapter) ListSelector() string { return "li.job" }
func (minimalAdapter) Capabilities() models.Capabilities { return models.Capabilities{} }

func (minimalAdapter) ParseSummary(ctx context.Context, page Surface, index int) (models.Listing, error) {
	card, err := Card(ctx, page, "li.job", index)
	if err != nil {
		return models.Listing{}, err
	}
	return models.Listing{Title: FirstText(card, "a"), URL: FirstAttr(card, "href", "a")}, nil
}

// feedAdapter overrides the recommendation hooks
type feedAdapter struct{ minimalAdapter }

func (feedAdapter) RecommendationsURL() string { return "https://minimal.test/feed" }
func (feedAdapter) RecommendationSelector() string { return "div.rec" }
func (feedAdapter) ParseRecommendationCard(ctx context.Context, page Surface, index int) (models.Listing, error) {
	return models.Listing{Title: "from feed parser"}, nil
}
func (feedAdapter) HasNextPage(ctx context.Context, page Surface) bool { return true }
func (feedAdapter) IsLoggedIn(ctx context.Context, page Surface) bool { return true }

func loadedSurface(t *testing.T, html string) *scrapertest.Surface {
	t.Helper()
	surface := scrapertest.NewSurface(map[string]string{"https://minimal.test/": html})
	require.NoError(t, surface.Navigate(context.Background(), "https://minimal.test/", 0))
	return surface
}

func TestAdapterDefaults(t *testing.T) {
	ctx := context.Background()
	surface := loadedSurface(t, `<ul><li class="job"><a href="/j/1">Engineer</a></li></ul>`)
	var a Adapter = minimalAdapter{}

	assert.Equal(t, "li.job", RecommendationSelector(a))
	assert.Equal(t, "", RecommendationsURL(a))
	assert.False(t, HasNextPage(ctx, a, surface))
	assert.False(t, IsLoggedIn(ctx, a, surface))

	listing, err := ParseRecommendationCard(ctx, a, surface, 0)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", listing.Title)

	detail, err := ParseDetail(ctx, a, surface, "https://minimal.test/j/1")
	require.NoError(t, err)
	assert.Equal(t, models.Listing{}, detail)
}

func TestAdapterOverrides(t *testing.T) {
	ctx := context.Background()
	surface := loadedSurface(t, `<div class="rec">x</div>`)
	var a Adapter = feedAdapter{}

	assert.Equal(t, "div.rec", RecommendationSelector(a))
	assert.Equal(t, "https://minimal.test/feed", RecommendationsURL(a))
	assert.True(t, HasNextPage(ctx, a, surface))
	assert.True(t, IsLoggedIn(ctx, a, surface))

	listing, err := ParseRecommendationCard(ctx, a, surface, 0)
	require.NoError(t, err)
	assert.Equal(t, "from feed parser", listing.Title)
}

func TestCardOutOfRange(t *testing.T) {
	surface := loadedSurface(t, `<ul><li class="job"><a href="/j/1">Engineer</a></li></ul>`)

	_, err := Card(context.Background(), surface, "li.job", 3)

	assert.ErrorContains(t, err, "card 3 out of range (1 cards)")
}

func TestSnapshotCachesUntilPageChanges(t *testing.T) {
	ctx := context.Background()
	surface := scrapertest.NewSurface(map[string]string{
		"https://minimal.test/a": `<li class="job">a1</li><li class="job">a2</li>`,
		"https://minimal.test/b": `<li class="job">b1</li>`,
	})
	require.NoError(t, surface.Navigate(ctx, "https://minimal.test/a", 0))
	surface.ScrollStages["https://minimal.test/a"] = []string{`<li class="job">a1</li><li class="job">a2</li><li class="job">a3</li>`}

	snapshot := NewSnapshot(surface)
	first, err := snapshot.ExtractAll(ctx, "li.job")
	require.NoError(t, err)
	require.Len(t, first, 2)

	// the underlying page changes behind the snapshot's back; the cached view is stable
	require.NoError(t, surface.ScrollToBottom(ctx))
	again, err := snapshot.ExtractAll(ctx, "li.job")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// scrolling through the snapshot drops the cache
	require.NoError(t, surface.Navigate(ctx, "https://minimal.test/a", 0))
	require.NoError(t, snapshot.ScrollToBottom(ctx))
	scrolled, err := snapshot.ExtractAll(ctx, "li.job")
	require.NoError(t, err)
	assert.Len(t, scrolled, 3)

	require.NoError(t, snapshot.Navigate(ctx, "https://minimal.test/b", 0))
	other, err := snapshot.ExtractAll(ctx, "li.job")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
