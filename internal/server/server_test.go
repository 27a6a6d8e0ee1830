package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aura-global/aura/internal/collector"
	"github.com/aura-global/aura/internal/models"
	"github.com/aura-global/aura/internal/storage"
)

var fixedNow = time.Date(2025, 11, 21, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*Server, *storage.Store, *collector.Scheduler) {
	t.Helper()
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sched := collector.NewScheduler()
	srv := New(st, sched, Config{
		Countries:          map[string]string{"us": "United States", "gr": "Greece"},
		CriticalKeywords:   []string{"breach", "attack"},
		FrequencyReference: 50,
		ZThreshold:         2.0,
		ShortWindow:        7,
		LongWindow:         30,
		TrendTolerance:     0.01,
		StaleAfter:         time.Hour,
	})
	srv.now = func() time.Time { return fixedNow }
	return srv, st, sched
}

// seedDays stores one article per day with the given score, oldest first,
// ending two days before fixedNow so nothing falls inside the 24h risk
// window.
func seedDays(t *testing.T, st *storage.Store, country string, scores []float64) {
	t.Helper()
	articles := make([]models.Article, 0, len(scores))
	for i, score := range scores {
		day := fixedNow.AddDate(0, 0, i-len(scores)-1)
		articles = append(articles, models.Article{
			ID:          fmt.Sprintf("%s-%d", country, i),
			Country:     country,
			Headline:    fmt.Sprintf("%s headline %d", country, i),
			Score:       score,
			Label:       "POSITIVE",
			Confidence:  0.8,
			Category:    "technology",
			Source:      "Example Wire",
			URL:         fmt.Sprintf("https://example.com/%s/%d", country, i),
			RiskLevel:   models.RiskLevelNormal,
			PublishedAt: day,
			FetchedAt:   day,
		})
	}
	if _, err := st.InsertArticles(context.Background(), articles); err != nil {
		t.Fatalf("failed to seed articles: %v", err)
	}
}

func doGET(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Router().ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response from %s: %v", path, err)
		}
	}
	return w, body
}

func TestHealthz(t *testing.T) {
	srv, _, _ := testServer(t)
	w, body := doGET(t, srv, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["ok"] != true {
		t.Errorf("expected ok=true, got %v", body)
	}
}

func TestUnknownCountryReturns404(t *testing.T) {
	srv, _, _ := testServer(t)
	for _, path := range []string{
		"/api/countries/zz/series",
		"/api/countries/zz/risk",
		"/api/countries/zz/anomalies",
		"/api/countries/zz/trend",
		"/api/countries/zz/articles",
	} {
		w, _ := doGET(t, srv, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestSeriesEndpoint(t *testing.T) {
	srv, st, _ := testServer(t)
	seedDays(t, st, "us", []float64{0.1, 0.2, 0.3})

	w, body := doGET(t, srv, "/api/countries/us/series")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	points, ok := body["points"].([]any)
	if !ok || len(points) != 3 {
		t.Fatalf("expected 3 series points, got %v", body["points"])
	}
}

func TestRiskEndpointEmptyWindowDefaultsToZero(t *testing.T) {
	srv, st, _ := testServer(t)
	// Old data only, outside the 24h risk window.
	seedDays(t, st, "us", []float64{0.1, 0.2, 0.3, 0.4, 0.5})

	w, body := doGET(t, srv, "/api/countries/us/risk")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["score"] != float64(0) {
		t.Errorf("expected score 0 for empty window, got %v", body["score"])
	}
}

func TestRiskEndpointRecentArticles(t *testing.T) {
	srv, st, _ := testServer(t)
	recent := fixedNow.Add(-2 * time.Hour)
	articles := []models.Article{
		{
			ID: "us-r1", Country: "us", Headline: "major breach reported",
			Score: -0.9, Label: "NEGATIVE", Confidence: 0.9, Category: "security",
			Source: "Wire", URL: "https://example.com/us/r1",
			RiskLevel: models.RiskLevelCritical, PublishedAt: recent, FetchedAt: recent,
		},
		{
			ID: "us-r2", Country: "us", Headline: "systems under attack",
			Score: -0.8, Label: "NEGATIVE", Confidence: 0.8, Category: "security",
			Source: "Wire", URL: "https://example.com/us/r2",
			RiskLevel: models.RiskLevelCritical, PublishedAt: recent, FetchedAt: recent,
		},
	}
	if _, err := st.InsertArticles(context.Background(), articles); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	w, body := doGET(t, srv, "/api/countries/us/risk")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	score, _ := body["score"].(float64)
	if score <= 0 {
		t.Errorf("expected positive risk score for negative recent news, got %v", score)
	}
	if body["country"] != "us" {
		t.Errorf("expected country us, got %v", body["country"])
	}
}

func TestAnomaliesEndpointInsufficientData(t *testing.T) {
	srv, st, _ := testServer(t)
	seedDays(t, st, "us", []float64{0.5})

	w, body := doGET(t, srv, "/api/countries/us/anomalies")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["insufficient_data"] != true {
		t.Errorf("expected insufficient_data flag, got %v", body)
	}
}

func TestAnomaliesEndpointFlagsSpike(t *testing.T) {
	srv, st, _ := testServer(t)
	seedDays(t, st, "us", []float64{0.1, 0.1, 0.1, 0.1, 1.0})

	w, body := doGET(t, srv, "/api/countries/us/anomalies")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	anomalies, ok := body["anomalies"].([]any)
	if !ok || len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %v", body["anomalies"])
	}
}

func TestTrendEndpointDegraded(t *testing.T) {
	srv, st, _ := testServer(t)
	scores := make([]float64, 10)
	for i := range scores {
		scores[i] = float64(i) * 0.05
	}
	seedDays(t, st, "us", scores)

	w, body := doGET(t, srv, "/api/countries/us/trend")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["direction"] != models.TrendUpward {
		t.Errorf("expected upward trend, got %v", body["direction"])
	}
	if body["degraded"] != true {
		t.Errorf("expected degraded flag for short history, got %v", body["degraded"])
	}
}

func TestArticlesEndpoint(t *testing.T) {
	srv, st, _ := testServer(t)
	seedDays(t, st, "gr", []float64{0.1, 0.2})

	w, body := doGET(t, srv, "/api/countries/gr/articles")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	articles, ok := body["articles"].([]any)
	if !ok || len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %v", body["articles"])
	}
}

func TestOverviewMarksStaleAndMissingCountries(t *testing.T) {
	srv, st, sched := testServer(t)
	seedDays(t, st, "us", []float64{0.2, 0.3})

	sched.RecordCycle(collector.CycleReport{
		StartedAt: fixedNow.Add(-10 * time.Minute),
		Countries: []collector.CountryResult{
			{Code: "us", Name: "United States", Fetched: 2, Inserted: 2},
			{Code: "gr", Name: "Greece", Err: fmt.Errorf("fetch failed")},
		},
	})

	w, body := doGET(t, srv, "/api/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	countries, ok := body["countries"].([]any)
	if !ok || len(countries) != 2 {
		t.Fatalf("expected 2 countries in overview, got %v", body["countries"])
	}

	byCode := make(map[string]map[string]any)
	for _, entry := range countries {
		m := entry.(map[string]any)
		byCode[m["code"].(string)] = m
	}

	if byCode["us"]["stale"] != false {
		t.Errorf("expected us to be fresh, got %v", byCode["us"])
	}
	if byCode["us"]["has_data"] != true {
		t.Errorf("expected us to have data, got %v", byCode["us"])
	}
	if byCode["gr"]["stale"] != true {
		t.Errorf("expected gr to be stale after a failed cycle, got %v", byCode["gr"])
	}
	if byCode["gr"]["has_data"] != false {
		t.Errorf("expected gr to have no data, got %v", byCode["gr"])
	}
}

func TestCountriesEndpoint(t *testing.T) {
	srv, st, _ := testServer(t)
	seedDays(t, st, "us", []float64{0.1})
	seedDays(t, st, "gr", []float64{0.2})

	w, body := doGET(t, srv, "/api/countries")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	codes, ok := body["countries"].([]any)
	if !ok || len(codes) != 2 {
		t.Fatalf("expected 2 countries, got %v", body["countries"])
	}
}
