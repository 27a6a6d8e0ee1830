// Package collector runs the periodic scan cycle: a bounded worker pool
// fetches each configured country's news concurrently, classifies the
// headlines through the external classifier, and stores the results.
//
// A single country's fetch or classification failure is recorded and
// logged at this boundary; it never aborts the cycle or the other
// countries' workers. The cycle completes with partial data and the
// analytics layer operates on whatever was stored.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aura-global/aura/internal/classifier"
	"github.com/aura-global/aura/internal/logger"
	"github.com/aura-global/aura/internal/models"
	"github.com/aura-global/aura/internal/storage"
)

// NewsSource fetches raw articles for a country by display name.
type NewsSource interface {
	FetchArticles(ctx context.Context, countryName string) ([]models.RawArticle, error)
}

// FeedSource fetches raw articles from a per-country RSS feed.
type FeedSource interface {
	HasFeed(country string) bool
	FetchArticles(ctx context.Context, country string) ([]models.RawArticle, error)
}

// Alerter delivers critical-article notifications.
type Alerter interface {
	SendCriticalAlert(country string, articles []models.Article) error
}

// Config holds the collector's per-cycle parameters.
type Config struct {
	Countries         map[string]string // code -> display name
	Workers           int
	CriticalThreshold float64
	WarningThreshold  float64
	PositiveThreshold float64
}

// CountryResult records one country's outcome within a cycle.
type CountryResult struct {
	Code     string
	Name     string
	Fetched  int
	Inserted int
	Critical int
	Err      error
}

// CycleReport summarizes one completed scan cycle.
type CycleReport struct {
	StartedAt     time.Time
	Duration      time.Duration
	Countries     []CountryResult
	TotalFetched  int
	TotalInserted int
	TotalCritical int
}

// Failed returns the country codes whose fetch or store failed this cycle.
func (r CycleReport) Failed() []string {
	var failed []string
	for _, c := range r.Countries {
		if c.Err != nil {
			failed = append(failed, c.Code)
		}
	}
	return failed
}

// Collector wires the sources, classifier, store, and alerter together.
type Collector struct {
	source     NewsSource
	feeds      FeedSource // optional
	classifier classifier.Classifier
	store      *storage.Store
	alerter    Alerter // optional
	cfg        Config
}

// New creates a collector. feeds and alerter may be nil.
func New(source NewsSource, feeds FeedSource, cls classifier.Classifier, store *storage.Store, alerter Alerter, cfg Config) *Collector {
	if cfg.Workers < 1 {
		cfg.Workers = 3
	}
	return &Collector{
		source:     source,
		feeds:      feeds,
		classifier: cls,
		store:      store,
		alerter:    alerter,
		cfg:        cfg,
	}
}

// RunCycle performs one scan pass across all configured countries. At
// most cfg.Workers fetches are in flight at once; results are committed
// in completion order. The scheduler is updated with the cycle outcome.
// The returned error is fatal only when no country could be attempted.
func (c *Collector) RunCycle(ctx context.Context, sched *Scheduler, cycleTime time.Time) (CycleReport, error) {
	if len(c.cfg.Countries) == 0 {
		return CycleReport{}, fmt.Errorf("no countries configured")
	}

	report := CycleReport{StartedAt: cycleTime}

	// Deterministic worker submission order; completion order is free.
	codes := make([]string, 0, len(c.cfg.Countries))
	for code := range c.cfg.Countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var (
		mu      sync.Mutex
		results []CountryResult
	)

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			res := c.processCountry(ctx, code, c.cfg.Countries[code], cycleTime)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			// Per-country failures are recorded, never propagated:
			// one slow or broken country must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Code < results[j].Code })
	report.Countries = results
	for _, res := range results {
		report.TotalFetched += res.Fetched
		report.TotalInserted += res.Inserted
		report.TotalCritical += res.Critical
	}
	report.Duration = time.Since(cycleTime)

	sched.RecordCycle(report)

	logger.Info("Scan cycle complete: %d fetched, %d inserted, %d critical, %d countries failed",
		report.TotalFetched, report.TotalInserted, report.TotalCritical, len(report.Failed()))

	return report, nil
}

// processCountry fetches, classifies, and stores one country's articles.
func (c *Collector) processCountry(ctx context.Context, code, name string, cycleTime time.Time) CountryResult {
	res := CountryResult{Code: code, Name: name}

	items, fetchErr := c.source.FetchArticles(ctx, name)
	if fetchErr != nil {
		logger.Error("Fetch failed for %s: %v", code, fetchErr)
	}

	if c.feeds != nil && c.feeds.HasFeed(code) {
		feedItems, err := c.feeds.FetchArticles(ctx, code)
		if err != nil {
			logger.Warn("RSS fetch failed for %s: %v", code, err)
		} else {
			items = append(items, feedItems...)
		}
	}

	if len(items) == 0 {
		if fetchErr != nil {
			res.Err = fetchErr
		}
		return res
	}
	res.Fetched = len(items)

	var articles []models.Article
	var critical []models.Article
	for _, item := range items {
		result, err := c.classifier.Classify(ctx, item.Title)
		if err != nil {
			logger.Warn("Classification failed for %q (%s): %v", item.Title, code, err)
			continue
		}

		publishedAt := item.PublishedAt
		if publishedAt.After(cycleTime) {
			publishedAt = cycleTime
		}

		score := result.Score()
		article := models.Article{
			ID:          uuid.New().String(),
			Country:     code,
			Headline:    item.Title,
			Score:       score,
			Label:       result.Label,
			Confidence:  result.Confidence,
			Category:    result.Category,
			Source:      item.Source,
			URL:         item.URL,
			RiskLevel:   models.RiskLevelFor(score, c.cfg.CriticalThreshold, c.cfg.WarningThreshold, c.cfg.PositiveThreshold),
			PublishedAt: publishedAt,
			FetchedAt:   cycleTime,
		}
		articles = append(articles, article)
		if article.RiskLevel == models.RiskLevelCritical {
			critical = append(critical, article)
		}
	}

	if len(articles) == 0 {
		res.Err = fmt.Errorf("no articles classified for %s", code)
		return res
	}

	inserted, err := c.store.InsertArticles(ctx, articles)
	if err != nil {
		res.Err = fmt.Errorf("failed to store articles for %s: %w", code, err)
		logger.Error("%v", res.Err)
		return res
	}
	res.Inserted = inserted
	res.Critical = len(critical)

	if c.alerter != nil && len(critical) > 0 {
		if err := c.alerter.SendCriticalAlert(code, critical); err != nil {
			logger.Warn("Failed to send critical alert for %s: %v", code, err)
		}
	}

	logger.Debug("%s: fetched=%d classified=%d inserted=%d critical=%d",
		code, res.Fetched, len(articles), inserted, len(critical))
	return res
}
