// Package storage persists classified articles in an embedded SQLite
// database (pure-Go driver, no cgo).
//
// Articles are the only stored ground truth: the daily series a country's
// analytics run on is derived from them at query time. Inserts are
// idempotent with respect to duplicate delivery via a UNIQUE(country, url)
// index and INSERT OR IGNORE, so re-fetching the same article never
// creates a second row.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aura-global/aura/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	headline     TEXT NOT NULL,
	score        REAL NOT NULL,
	label        TEXT NOT NULL DEFAULT '',
	confidence   REAL NOT NULL DEFAULT 0,
	category     TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	risk_level   TEXT NOT NULL DEFAULT '',
	published_at TEXT NOT NULL,
	fetched_at   TEXT NOT NULL,
	UNIQUE(country, url)
);
CREATE INDEX IF NOT EXISTS idx_articles_country ON articles(country);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
`

// Store wraps the embedded SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema. Pass ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize access through a single connection; SQLite allows one
	// writer at a time and this avoids SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertArticles stores a batch of articles, silently skipping rows whose
// (country, url) pair is already present. Returns the number of rows
// actually inserted. The batch runs in one transaction; a validation
// failure on any article aborts the whole batch.
func (s *Store) InsertArticles(ctx context.Context, articles []models.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &models.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO articles
		(id, country, headline, score, label, confidence, category, source, url, risk_level, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, &models.PersistenceError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	inserted := 0
	for i := range articles {
		a := &articles[i]
		if err := a.Validate(); err != nil {
			return 0, fmt.Errorf("invalid article: %w", err)
		}

		res, err := stmt.ExecContext(ctx,
			a.ID, a.Country, a.Headline, a.Score, a.Label, a.Confidence,
			a.Category, a.Source, a.URL, a.RiskLevel,
			a.PublishedAt.UTC().Format(time.RFC3339),
			a.FetchedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, &models.PersistenceError{Op: "insert article " + a.URL, Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &models.PersistenceError{Op: "read rows affected", Err: err}
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, &models.PersistenceError{Op: "commit article batch", Err: err}
	}
	return inserted, nil
}

// DailySeries derives the per-day aggregate series for one country,
// ordered by ascending date. A day's critical hit count is the number of
// its articles labeled with the critical risk level.
func (s *Store) DailySeries(ctx context.Context, country string) (models.CountrySeries, error) {
	series := models.CountrySeries{Country: country}

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(published_at, 1, 10), score, risk_level
		FROM articles
		WHERE country = ?
		ORDER BY published_at ASC`, country)
	if err != nil {
		return series, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var (
		curDay    string
		curScores []float64
		curCrit   int
	)
	flush := func() error {
		if curDay == "" {
			return nil
		}
		date, err := time.Parse("2006-01-02", curDay)
		if err != nil {
			return fmt.Errorf("failed to parse series date %q: %w", curDay, err)
		}
		series.Points = append(series.Points, models.SeriesPoint{
			Date:         date,
			AvgScore:     mean(curScores),
			Count:        len(curScores),
			StdDev:       stdDev(curScores),
			CriticalHits: curCrit,
		})
		return nil
	}

	for rows.Next() {
		var day, riskLevel string
		var score float64
		if err := rows.Scan(&day, &score, &riskLevel); err != nil {
			return series, fmt.Errorf("failed to scan series row: %w", err)
		}
		if day != curDay {
			if err := flush(); err != nil {
				return series, err
			}
			curDay = day
			curScores = curScores[:0]
			curCrit = 0
		}
		curScores = append(curScores, score)
		if riskLevel == models.RiskLevelCritical {
			curCrit++
		}
	}
	if err := rows.Err(); err != nil {
		return series, fmt.Errorf("failed to iterate series rows: %w", err)
	}
	if err := flush(); err != nil {
		return series, err
	}

	return series, nil
}

// ArticlesSince returns a country's articles published at or after the
// given time, ordered by ascending publish time.
func (s *Store) ArticlesSince(ctx context.Context, country string, since time.Time) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, selectArticles+`
		WHERE country = ? AND published_at >= ?
		ORDER BY published_at ASC`,
		country, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// RecentArticles returns a country's newest articles, newest first.
func (s *Store) RecentArticles(ctx context.Context, country string, limit int) ([]models.Article, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, selectArticles+`
		WHERE country = ?
		ORDER BY published_at DESC
		LIMIT ?`, country, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// Countries lists the distinct country codes present in the store.
func (s *Store) Countries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT country FROM articles ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	var countries []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// LastFetchedAt reports when a country's most recent article was fetched.
// Returns the zero time when the country has no stored articles.
func (s *Store) LastFetchedAt(ctx context.Context, country string) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(fetched_at) FROM articles WHERE country = ?`, country).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last fetch time: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last fetch time: %w", err)
	}
	return ts, nil
}

const selectArticles = `
	SELECT id, country, headline, score, label, confidence, category, source, url, risk_level, published_at, fetched_at
	FROM articles`

func scanArticles(rows *sql.Rows) ([]models.Article, error) {
	var articles []models.Article
	for rows.Next() {
		var a models.Article
		var publishedAt, fetchedAt string
		if err := rows.Scan(&a.ID, &a.Country, &a.Headline, &a.Score, &a.Label,
			&a.Confidence, &a.Category, &a.Source, &a.URL, &a.RiskLevel,
			&publishedAt, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		var err error
		if a.PublishedAt, err = time.Parse(time.RFC3339, publishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse published_at: %w", err)
		}
		if a.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (divide by n-1); 0 when n < 2.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
