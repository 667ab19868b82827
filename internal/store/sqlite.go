package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/pkg/models"
)

// SQLiteStore keeps records in a single sqlite file
type SQLiteStore struct {
	db     *sql.DB
	logger types.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it
func OpenSQLite(ctx context.Context, path string, logger types.Logger) (*SQLiteStore, error) {
	logger = logging.ForComponent(logger, "store")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Record store ready", map[string]interface{}{
		"driver": "sqlite",
		"path":   path,
	})
	return &SQLiteStore{db: db, logger: logger}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v < 1 {
		stmts := []string{`
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
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
  scraped_at TEXT NOT NULL,
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
			`PRAGMA user_version = 1;`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteJob(row rowScanner) (*models.JobRecord, error) {
	var (
		r         models.JobRecord
		scrapedAt string
		score     sql.NullInt64
		notes     sql.NullString
		status    string
	)
	err := row.Scan(&r.ID, &r.Source, &r.ExternalID, &r.URL, &r.Title, &r.Company, &r.Location,
		&r.Salary, &r.Experience, &r.Description, &r.Requirements, &r.Email, &r.ApplyURL,
		&r.PostedAt, &scrapedAt, &score, &status, &notes)
	if err != nil {
		return nil, err
	}

	r.Status = models.JobStatus(status)
	r.ScrapedAt, _ = time.Parse(time.RFC3339Nano, scrapedAt)
	if score.Valid {
		s := int(score.Int64)
		r.MatchScore = &s
	}
	if notes.Valid {
		n := notes.String
		r.Notes = &n
	}
	return &r, nil
}

func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (*models.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = ?`, url)
	r, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by url: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*models.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	r, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, record *models.JobRecord) (int64, error) {
	if record.Status == "" {
		record.Status = models.JobStatusNew
	}
	if record.ScrapedAt.IsZero() {
		record.ScrapedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (source, external_id, url, title, company, location, salary, experience,
  description, requirements, email, apply_url, posted_at, scraped_at, match_score, status, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		record.Source, record.ExternalID, record.URL, record.Title, record.Company, record.Location,
		record.Salary, record.Experience, record.Description, record.Requirements, record.Email,
		record.ApplyURL, record.PostedAt, record.ScrapedAt.UTC().Format(time.RFC3339Nano),
		record.MatchScore, string(record.Status), record.Notes,
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	record.ID = id
	return id, nil
}

func (s *SQLiteStore) Patch(ctx context.Context, id int64, patch models.JobPatch) error {
	return s.update(ctx, id, patch.Columns())
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, update models.JobUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		// nothing to change, but the record must exist
		_, err := s.GetByID(ctx, id)
		return err
	}
	return s.update(ctx, id, cols)
}

func (s *SQLiteStore) update(ctx context.Context, id int64, cols []models.ColumnValue) error {
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c.Name+" = ?")
		args = append(args, c.Value)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, int, error) {
	where, args := whereClause(filter, "LIKE", func(int) string { return "?" })

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit, offset := pageBounds(filter)
	query := fmt.Sprintf(`SELECT %s FROM jobs %s ORDER BY %s LIMIT ? OFFSET ?`, jobColumns, where, orderBy(filter.Sort))
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.JobRecord, 0, limit)
	for rows.Next() {
		r, err := scanSQLiteJob(rows)
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

func (s *SQLiteStore) Stats(ctx context.Context) (*models.JobStats, error) {
	stats := &models.JobStats{ByStatus: map[string]int{}, BySource: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	if err := s.groupCount(ctx, "status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "source", stats.BySource); err != nil {
		return nil, err
	}
	return stats, nil
}

// groupCount fills into with per-value counts of column, which must be a trusted identifier
func (s *SQLiteStore) groupCount(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM jobs GROUP BY %[1]s`, column))
	if err != nil {
		return fmt.Errorf("job stats by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func (s *SQLiteStore) GetSettings(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
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

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	values, err := encodeSettings(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
