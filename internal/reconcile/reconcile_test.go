package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
)

func newTestReconciler(t *testing.T) (*Reconciler, store.Store) {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, logging.Nop()), s
}

func listing(url string) models.Listing {
	return models.Listing{
		Source:  "naukri",
		URL:     url,
		Title:   "Backend Engineer",
		Company: "Acme",
	}
}

func TestReconcileNewListingInsertsOnce(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	action, err := r.Reconcile(ctx, listing("https://x.test/1"))
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, action)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	rec, err := s.FindByURL(ctx, "https://x.test/1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusNew, rec.Status)
	assert.Nil(t, rec.MatchScore)
	assert.Nil(t, rec.Notes)
}

func TestReconcileSameListingTwiceSkips(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()
	l := listing("https://x.test/1")
	l.Description = strings.Repeat("Build reliable distributed systems. ", 3)

	counts, errs := r.ReconcileAll(ctx, []models.Listing{l, l})

	assert.Empty(t, errs)
	assert.Equal(t, Counts{Added: 1, Skipped: 1}, counts)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestReconcileReplayWithPartialDataSkips(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	snippet := listing("https://x.test/1")
	snippet.Description = "Go, Kafka, SQL"
	hidden := listing("https://x.test/2")
	hidden.Salary = "Not disclosed"

	counts, errs := r.ReconcileAll(ctx, []models.Listing{snippet, hidden})
	assert.Empty(t, errs)
	assert.Equal(t, Counts{Added: 2}, counts)

	counts, errs = r.ReconcileAll(ctx, []models.Listing{snippet, hidden})
	assert.Empty(t, errs)
	assert.Equal(t, Counts{Skipped: 2}, counts)

	shorter := listing("https://x.test/1")
	shorter.Description = "Go"
	action, err := r.Reconcile(ctx, shorter)
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, action)

	rec, err := s.FindByURL(ctx, "https://x.test/1")
	require.NoError(t, err)
	assert.Equal(t, "Go, Kafka, SQL", rec.Description)
}

func TestReconcileFillsGapsOnly(t *testing.T) {
	r, s := newTestReconciler(t)
	ctx := context.Background()

	first := listing("https://x.test/1")
	first.Requirements = "Go, SQL"
	first.Salary = "Not disclosed"
	first.Description = "Short blurb"
	_, err := r.Reconcile(ctx, first)
	require.NoError(t, err)

	second := listing("https://x.test/1")
	second.Requirements = "Java"
	second.Salary = "20-30 LPA"
	second.Description = strings.Repeat("Own the ingestion pipeline end to end. ", 4)
	second.Email = "jobs@acme.test"

	action, err := r.Reconcile(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)

	rec, err := s.FindByURL(ctx, "https://x.test/1")
	require.NoError(t, err)
	assert.Equal(t, "Go, SQL", rec.Requirements)
	assert.Equal(t, "20-30 LPA", rec.Salary)
	assert.Equal(t, second.Description, rec.Description)
	assert.Equal(t, "jobs@acme.test", rec.Email)
}

func TestBuildPatch(t *testing.T) {
	long := strings.Repeat("x", 50)

	tests := []struct {
		name     string
		existing models.JobRecord
		incoming models.Listing
		want     []string
	}{
		{
			name:     "nothing new",
			existing: models.JobRecord{Description: long},
			incoming: models.Listing{},
			want:     nil,
		},
		{
			name:     "short description replaced by longer",
			existing: models.JobRecord{Description: "Short blurb"},
			incoming: models.Listing{Description: "A somewhat longer blurb"},
			want:     []string{"description"},
		},
		{
			name:     "short description kept over shorter",
			existing: models.JobRecord{Description: strings.Repeat("x", 40)},
			incoming: models.Listing{Description: "Go"},
			want:     nil,
		},
		{
			name:     "short description kept over same",
			existing: models.JobRecord{Description: "Short blurb"},
			incoming: models.Listing{Description: "Short blurb"},
			want:     nil,
		},
		{
			name:     "description at threshold kept",
			existing: models.JobRecord{Description: long},
			incoming: models.Listing{Description: long + " more"},
			want:     nil,
		},
		{
			name:     "multibyte description measured in runes",
			existing: models.JobRecord{Description: strings.Repeat("é", 50)},
			incoming: models.Listing{Description: "replacement"},
			want:     nil,
		},
		{
			name:     "existing requirements kept",
			existing: models.JobRecord{Requirements: "Go"},
			incoming: models.Listing{Requirements: "Rust"},
			want:     nil,
		},
		{
			name:     "not disclosed salary replaced case-insensitively",
			existing: models.JobRecord{Salary: "NOT DISCLOSED"},
			incoming: models.Listing{Salary: "12 LPA"},
			want:     []string{"salary"},
		},
		{
			name:     "not disclosed salary not replaced by itself",
			existing: models.JobRecord{Salary: "Not disclosed"},
			incoming: models.Listing{Salary: "not disclosed"},
			want:     nil,
		},
		{
			name:     "known salary kept",
			existing: models.JobRecord{Salary: "10 LPA"},
			incoming: models.Listing{Salary: "12 LPA"},
			want:     nil,
		},
		{
			name:     "blank incoming ignored",
			existing: models.JobRecord{},
			incoming: models.Listing{Experience: "   ", PostedAt: "2 days ago", ApplyURL: "https://apply.test"},
			want:     []string{"posted_at", "apply_url"},
		},
		{
			name:     "every gap filled",
			existing: models.JobRecord{},
			incoming: models.Listing{
				Description: "d", Requirements: "r", Experience: "3-5 years", Salary: "s",
				PostedAt: "today", Email: "a@b.test", ApplyURL: "https://apply.test",
			},
			want: []string{"description", "requirements", "experience", "salary", "posted_at", "email", "apply_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := BuildPatch(&tt.existing, tt.incoming)

			var got []string
			for _, c := range patch.Columns() {
				got = append(got, c.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) FindByURL(ctx context.Context, url string) (*models.JobRecord, error) {
	return nil, errors.New("database is locked")
}

func TestReconcileAllRecordsFailures(t *testing.T) {
	r := New(failingStore{}, logging.Nop())

	counts, errs := r.ReconcileAll(context.Background(), []models.Listing{listing("https://x.test/1")})

	assert.Equal(t, Counts{}, counts)
	assert.Equal(t, []string{"Failed to save job: database is locked"}, errs)
}
