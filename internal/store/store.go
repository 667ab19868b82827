// Package store persists job records and run settings.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/pkg/models"
)

var (
	// ErrNotFound is returned when no record matches
	ErrNotFound = errors.New("job not found")
	// ErrDuplicate is returned when a record with the same URL already exists
	ErrDuplicate = errors.New("job with this URL already exists")
)

// Store is the record store. URL is the natural key: at most one record per URL.
type Store interface {
	FindByURL(ctx context.Context, url string) (*models.JobRecord, error)
	Insert(ctx context.Context, record *models.JobRecord) (int64, error)
	Patch(ctx context.Context, id int64, patch models.JobPatch) error

	GetByID(ctx context.Context, id int64) (*models.JobRecord, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, int, error)
	Stats(ctx context.Context) (*models.JobStats, error)
	Update(ctx context.Context, id int64, update models.JobUpdate) error
	Delete(ctx context.Context, id int64) error

	// GetSettings overlays stored settings on defaults
	GetSettings(ctx context.Context, defaults models.Settings) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations
func Open(ctx context.Context, cfg *config.Config, logger types.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Store.Path, logger)
	case "postgres":
		return OpenPostgres(ctx, cfg.Store.DSN, cfg.Store.MaxConns, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// DefaultSettings builds the settings used when nothing has been saved yet
func DefaultSettings(cfg *config.Config) models.Settings {
	return models.Settings{
		Keywords:       nonNil(append([]string(nil), cfg.Defaults.Keywords...)),
		EnabledSources: nonNil(append([]string(nil), cfg.Defaults.Sources...)),
		PagesToScrape:  cfg.Defaults.PagesToScrape,
		ScrapeMode:     models.ScrapeMode(cfg.Defaults.ScrapeMode),
	}
}

const (
	settingKeywords       = "keywords"
	settingEnabledSources = "enabled_sources"
	settingPagesToScrape  = "pages_to_scrape"
	settingScrapeMode     = "scrape_mode"
)

// encodeSettings flattens settings into the key/value rows of the settings table
func encodeSettings(s models.Settings) (map[string]string, error) {
	keywords, err := json.Marshal(nonNil(s.Keywords))
	if err != nil {
		return nil, err
	}
	sources, err := json.Marshal(nonNil(s.EnabledSources))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		settingKeywords:       string(keywords),
		settingEnabledSources: string(sources),
		settingPagesToScrape:  strconv.Itoa(s.PagesToScrape),
		settingScrapeMode:     string(s.ScrapeMode),
	}, nil
}

// decodeSettings overlays stored rows on defaults. Unparseable rows keep the default.
func decodeSettings(rows map[string]string, defaults models.Settings) models.Settings {
	out := defaults

	if v, ok := rows[settingKeywords]; ok {
		var keywords []string
		if err := json.Unmarshal([]byte(v), &keywords); err == nil {
			out.Keywords = nonNil(keywords)
		}
	}
	if v, ok := rows[settingEnabledSources]; ok {
		var sources []string
		if err := json.Unmarshal([]byte(v), &sources); err == nil {
			out.EnabledSources = nonNil(sources)
		}
	}
	if v, ok := rows[settingPagesToScrape]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			out.PagesToScrape = n
		}
	}
	if v, ok := rows[settingScrapeMode]; ok && models.ScrapeMode(v).IsValid() {
		out.ScrapeMode = models.ScrapeMode(v)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// NormalizePage applies the paging defaults: page 1, 20 per page, at most 100
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func pageBounds(f models.JobFilter) (limit, offset int) {
	page, perPage := NormalizePage(f.Page, f.PerPage)
	return perPage, (page - 1) * perPage
}

// orderBy whitelists the sort keys
func orderBy(sort string) string {
	switch sort {
	case "score":
		return "match_score DESC NULLS LAST, scraped_at DESC, id DESC"
	case "score_asc":
		return "match_score ASC NULLS LAST, scraped_at DESC, id DESC"
	default:
		return "scraped_at DESC, id DESC"
	}
}

// whereClause builds the filter predicate. placeholder renders the n-th bind parameter.
func whereClause(f models.JobFilter, like string, placeholder func(n int) string) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if f.Status != "" && f.Status != "all" {
		conds = append(conds, "status = "+next(f.Status))
	}
	if f.Source != "" && f.Source != "all" {
		conds = append(conds, "source = "+next(f.Source))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + term + "%"
		conds = append(conds, fmt.Sprintf("(title %[1]s %[2]s OR company %[1]s %[3]s OR description %[1]s %[4]s)",
			like, next(pattern), next(pattern), next(pattern)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

const jobColumns = `id, source, external_id, url, title, company, location, salary, experience,
description, requirements, email, apply_url, posted_at, scraped_at, match_score, status, notes`
