package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-global/aura/internal/models"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testArticle(country, url string, score float64, publishedAt time.Time) models.Article {
	return models.Article{
		ID:          uuid.New().String(),
		Country:     country,
		Headline:    "Headline for " + url,
		Score:       score,
		Label:       "POSITIVE",
		Confidence:  math.Abs(score),
		Category:    "Cybersecurity",
		Source:      "Example Wire",
		URL:         url,
		RiskLevel:   models.RiskLevelNormal,
		PublishedAt: publishedAt,
		FetchedAt:   publishedAt.Add(time.Minute),
	}
}

func TestInsertAndQueryArticles(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Hour)

	inserted, err := s.InsertArticles(ctx, []models.Article{
		testArticle("us", "https://example.com/a", 0.5, now),
		testArticle("us", "https://example.com/b", -0.3, now.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("InsertArticles failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	articles, err := s.RecentArticles(ctx, "us", 10)
	if err != nil {
		t.Fatalf("RecentArticles failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	// newest first
	if articles[0].URL != "https://example.com/b" {
		t.Errorf("expected newest article first, got %s", articles[0].URL)
	}
}

func TestDuplicateArticleStoredOnce(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Hour)

	a := testArticle("us", "https://example.com/dup", 0.1, now)

	inserted, err := s.InsertArticles(ctx, []models.Article{a})
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("first insert = %d, want 1", inserted)
	}

	// Same (country, url) again, different ID: must be ignored.
	again := a
	again.ID = uuid.New().String()
	inserted, err = s.InsertArticles(ctx, []models.Article{again})
	if err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("duplicate insert = %d, want 0", inserted)
	}

	articles, err := s.RecentArticles(ctx, "us", 10)
	if err != nil {
		t.Fatalf("RecentArticles failed: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d stored rows, want exactly 1", len(articles))
	}

	// Same URL under a different country is a distinct article.
	other := testArticle("fr", "https://example.com/dup", 0.1, now)
	inserted, err = s.InsertArticles(ctx, []models.Article{other})
	if err != nil {
		t.Fatalf("other-country insert failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("other-country insert = %d, want 1", inserted)
	}
}

func TestInsertRejectsInvalidArticle(t *testing.T) {
	s := mustStore(t)

	bad := testArticle("us", "https://example.com/bad", 0.5, time.Now().Add(-time.Hour))
	bad.Country = ""

	if _, err := s.InsertArticles(context.Background(), []models.Article{bad}); err == nil {
		t.Error("invalid article should fail the batch")
	}
}

func TestDailySeries(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	day1 := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)

	critical := testArticle("us", "https://example.com/crit", -0.9, day2)
	critical.RiskLevel = models.RiskLevelCritical

	_, err := s.InsertArticles(ctx, []models.Article{
		testArticle("us", "https://example.com/1", 0.2, day1),
		testArticle("us", "https://example.com/2", 0.4, day1.Add(time.Hour)),
		testArticle("us", "https://example.com/3", -0.1, day2),
		critical,
		// another country's article must not leak into the series
		testArticle("fr", "https://example.com/fr", 0.9, day1),
	})
	if err != nil {
		t.Fatalf("InsertArticles failed: %v", err)
	}

	series, err := s.DailySeries(ctx, "us")
	if err != nil {
		t.Fatalf("DailySeries failed: %v", err)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series should be ordered and valid: %v", err)
	}
	if len(series.Points) != 2 {
		t.Fatalf("got %d series points, want 2", len(series.Points))
	}

	first := series.Points[0]
	if first.Count != 2 {
		t.Errorf("day 1 count = %d, want 2", first.Count)
	}
	if math.Abs(first.AvgScore-0.3) > 1e-9 {
		t.Errorf("day 1 avg = %v, want 0.3", first.AvgScore)
	}

	second := series.Points[1]
	if second.CriticalHits != 1 {
		t.Errorf("day 2 critical hits = %d, want 1", second.CriticalHits)
	}
}

func TestArticlesSince(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	old := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)

	_, err := s.InsertArticles(ctx, []models.Article{
		testArticle("us", "https://example.com/old", 0.1, old),
		testArticle("us", "https://example.com/new", 0.2, recent),
	})
	if err != nil {
		t.Fatalf("InsertArticles failed: %v", err)
	}

	window, err := s.ArticlesSince(ctx, "us", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ArticlesSince failed: %v", err)
	}
	if len(window) != 1 || window[0].URL != "https://example.com/new" {
		t.Errorf("window should contain only the recent article, got %v", window)
	}
}

func TestCountriesAndLastFetchedAt(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Hour)

	_, err := s.InsertArticles(ctx, []models.Article{
		testArticle("us", "https://example.com/u", 0.1, now),
		testArticle("fr", "https://example.com/f", 0.2, now),
	})
	if err != nil {
		t.Fatalf("InsertArticles failed: %v", err)
	}

	countries, err := s.Countries(ctx)
	if err != nil {
		t.Fatalf("Countries failed: %v", err)
	}
	if len(countries) != 2 || countries[0] != "fr" || countries[1] != "us" {
		t.Errorf("Countries = %v, want [fr us]", countries)
	}

	ts, err := s.LastFetchedAt(ctx, "us")
	if err != nil {
		t.Fatalf("LastFetchedAt failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("LastFetchedAt should not be zero for a stored country")
	}

	ts, err = s.LastFetchedAt(ctx, "jp")
	if err != nil {
		t.Fatalf("LastFetchedAt for unknown country failed: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("LastFetchedAt for unknown country = %v, want zero time", ts)
	}
}
