package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/pkg/models"
)

// PostgresStore keeps records in a postgres database
type PostgresStore struct {
	db     *pgxpool.Pool
	logger types.Logger
}

// OpenPostgres connects a pool to dsn and creates the schema if missing
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, logger types.Logger) (*PostgresStore, error) {
	logger = logging.ForComponent(logger, "store")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnLifetime = time.Hour
	// poolers in transaction mode do not keep prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Record store ready", map[string]interface{}{
		"driver":    "postgres",
		"max_conns": config.MaxConns,
	})
	return &PostgresStore{db: pool, logger: logger}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS jobs (
  id BIGSERIAL PRIMARY KEY,
  source TEXT NOT NULL,
  external_id TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  experience TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  requirements TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  apply_url TEXT NOT NULL DEFAULT '',
  posted_at TEXT NOT NULL DEFAULT '',
  scraped_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  match_score INTEGER,
  status TEXT NOT NULL DEFAULT 'new'
    CHECK(status IN ('new', 'matched', 'interested', 'applied', 'archived', 'rejected', 'ignored')),
  notes TEXT
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_url ON jobs(url);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_scraped_at ON jobs(scraped_at DESC);`,
		`
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanPostgresJob(row pgx.Row) (*models.JobRecord, error) {
	var (
		r      models.JobRecord
		status string
	)
	err := row.Scan(&r.ID, &r.Source, &r.ExternalID, &r.URL, &r.Title, &r.Company, &r.Location,
		&r.Salary, &r.Experience, &r.Description, &r.Requirements, &r.Email, &r.ApplyURL,
		&r.PostedAt, &r.ScrapedAt, &r.MatchScore, &status, &r.Notes)
	if err != nil {
		return nil, err
	}
	r.Status = models.JobStatus(status)
	return &r, nil
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (*models.JobRecord, error) {
	r, err := scanPostgresJob(s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by url: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.JobRecord, error) {
	r, err := scanPostgresJob(s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.JobRecord) (int64, error) {
	if record.Status == "" {
		record.Status = models.JobStatusNew
	}
	if record.ScrapedAt.IsZero() {
		record.ScrapedAt = time.Now().UTC()
	}

	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO jobs (source, external_id, url, title, company, location, salary, experience,
  description, requirements, email, apply_url, posted_at, scraped_at, match_score, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`,
		record.Source, record.ExternalID, record.URL, record.Title, record.Company, record.Location,
		record.Salary, record.Experience, record.Description, record.Requirements, record.Email,
		record.ApplyURL, record.PostedAt, record.ScrapedAt, record.MatchScore, string(record.Status), record.Notes,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert job: %w", err)
	}

	record.ID = id
	return id, nil
}

func (s *PostgresStore) Patch(ctx context.Context, id int64, patch models.JobPatch) error {
	return s.update(ctx, id, patch.Columns())
}

func (s *PostgresStore) Update(ctx context.Context, id int64, update models.JobUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		_, err := s.GetByID(ctx, id)
		return err
	}
	return s.update(ctx, id, cols)
}

func (s *PostgresStore) update(ctx context.Context, id int64, cols []models.ColumnValue) error {
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, i+1))
		args = append(args, c.Value)
	}
	args = append(args, id)

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, int, error) {
	where, args := whereClause(filter, "ILIKE", func(n int) string { return fmt.Sprintf("$%d", n) })

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit, offset := pageBounds(filter)
	query := fmt.Sprintf(`SELECT %s FROM jobs %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, where, orderBy(filter.Sort), len(args)+1, len(args)+2)
	rows, err := s.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.JobRecord, 0, limit)
	for rows.Next() {
		r, err := scanPostgresJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*models.JobStats, error) {
	stats := &models.JobStats{ByStatus: map[string]int{}, BySource: map[string]int{}}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	for column, into := range map[string]map[string]int{"status": stats.ByStatus, "source": stats.BySource} {
		rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM jobs GROUP BY %[1]s`, column))
		if err != nil {
			return nil, fmt.Errorf("job stats by %s: %w", column, err)
		}
		for rows.Next() {
			var (
				key   string
				count int
			)
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, err
			}
			into[key] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *PostgresStore) GetSettings(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	rows, err := s.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return defaults, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return defaults, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return defaults, err
	}
	return decodeSettings(values, defaults), nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	values, err := encodeSettings(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	batch := &pgx.Batch{}
	for k, v := range values {
		batch.Queue(`INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, k, v)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	if s != nil && s.db != nil {
		s.db.Close()
	}
	return nil
}
