// Package server exposes the read-only dashboard API. Every endpoint
// derives its response from the store and the pure analytics functions
// at request time; nothing here mutates state.
package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aura-global/aura/internal/analytics"
	"github.com/aura-global/aura/internal/collector"
	"github.com/aura-global/aura/internal/models"
	"github.com/aura-global/aura/internal/storage"
)

// riskWindow is how far back the on-demand risk assessment looks.
const riskWindow = 24 * time.Hour

// Config holds the analytics parameters the handlers need.
type Config struct {
	Countries          map[string]string
	CriticalKeywords   []string
	FrequencyReference int
	ZThreshold         float64
	ShortWindow        int
	LongWindow         int
	TrendTolerance     float64
	StaleAfter         time.Duration
}

// Server serves the dashboard API from the store and scheduler state.
type Server struct {
	store *storage.Store
	sched *collector.Scheduler
	cfg   Config
	now   func() time.Time
}

// New creates a dashboard server backed by the given store and scheduler.
func New(store *storage.Store, sched *collector.Scheduler, cfg Config) *Server {
	return &Server{store: store, sched: sched, cfg: cfg, now: time.Now}
}

// Router builds the gin handler with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.GET("/overview", s.handleOverview)
	api.GET("/countries", s.handleCountries)
	api.GET("/countries/:code/series", s.handleSeries)
	api.GET("/countries/:code/risk", s.handleRisk)
	api.GET("/countries/:code/anomalies", s.handleAnomalies)
	api.GET("/countries/:code/trend", s.handleTrend)
	api.GET("/countries/:code/articles", s.handleArticles)

	return r
}

// Run serves the API until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleOverview reports each configured country's latest cycle outcome
// and current risk, marking countries whose data is stale or missing so
// that partial cycles stay visible instead of silently blending in.
func (s *Server) handleOverview(c *gin.Context) {
	now := s.now().UTC()

	type countryOverview struct {
		Code    string                    `json:"code"`
		Name    string                    `json:"name"`
		Risk    *models.RiskAssessment    `json:"risk,omitempty"`
		Status  *collector.CountryStatus  `json:"status,omitempty"`
		Stale   bool                      `json:"stale"`
		HasData bool                      `json:"has_data"`
	}

	statuses := make(map[string]collector.CountryStatus)
	for _, st := range s.sched.Snapshot() {
		statuses[st.Code] = st
	}

	codes := make([]string, 0, len(s.cfg.Countries))
	for code := range s.cfg.Countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	overview := make([]countryOverview, 0, len(codes))
	for _, code := range codes {
		entry := countryOverview{Code: code, Name: s.cfg.Countries[code]}

		if st, ok := statuses[code]; ok {
			st := st
			entry.Status = &st
			entry.Stale = st.LastError != "" || now.Sub(st.UpdatedAt) > s.cfg.StaleAfter
		} else {
			entry.Stale = true
		}

		lastFetched, err := s.store.LastFetchedAt(c.Request.Context(), code)
		if err == nil && !lastFetched.IsZero() {
			entry.HasData = true
			if risk, err := s.assessRisk(c.Request.Context(), code, now); err == nil {
				entry.Risk = &risk
			}
		}
		overview = append(overview, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"last_cycle": s.sched.LastCycle(),
		"cycles":     s.sched.Cycles(),
		"countries":  overview,
	})
}

func (s *Server) handleCountries(c *gin.Context) {
	codes, err := s.store.Countries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": codes})
}

func (s *Server) handleSeries(c *gin.Context) {
	code, ok := s.countryCode(c)
	if !ok {
		return
	}
	series, err := s.store.DailySeries(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleRisk(c *gin.Context) {
	code, ok := s.countryCode(c)
	if !ok {
		return
	}
	risk, err := s.assessRisk(c.Request.Context(), code, s.now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, risk)
}

func (s *Server) handleAnomalies(c *gin.Context) {
	code, ok := s.countryCode(c)
	if !ok {
		return
	}
	series, err := s.store.DailySeries(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	points, err := analytics.DetectAnomalies(series.Points, s.cfg.ZThreshold)
	if models.IsInsufficientData(err) {
		c.JSON(http.StatusOK, gin.H{
			"country":           code,
			"insufficient_data": true,
			"reason":            err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"country":   code,
		"threshold": s.cfg.ZThreshold,
		"points":    points,
		"anomalies": analytics.Anomalies(points),
	})
}

func (s *Server) handleTrend(c *gin.Context) {
	code, ok := s.countryCode(c)
	if !ok {
		return
	}
	series, err := s.store.DailySeries(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	trend, err := analytics.PredictTrend(code, series.Points, s.cfg.ShortWindow, s.cfg.LongWindow, s.cfg.TrendTolerance)
	if models.IsInsufficientData(err) {
		c.JSON(http.StatusOK, gin.H{
			"country":           code,
			"insufficient_data": true,
			"reason":            err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (s *Server) handleArticles(c *gin.Context) {
	code, ok := s.countryCode(c)
	if !ok {
		return
	}
	limit := 50
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	articles, err := s.store.RecentArticles(c.Request.Context(), code, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": code, "articles": articles})
}

// assessRisk computes the on-demand risk assessment over the recent window.
func (s *Server) assessRisk(ctx context.Context, code string, now time.Time) (models.RiskAssessment, error) {
	articles, err := s.store.ArticlesSince(ctx, code, now.Add(-riskWindow))
	if err != nil {
		return models.RiskAssessment{}, err
	}
	return analytics.Assess(code, articles, analytics.RiskParams{
		CriticalKeywords:   s.cfg.CriticalKeywords,
		FrequencyReference: s.cfg.FrequencyReference,
	})
}

// countryCode validates the :code path parameter against the configured
// country set, writing a 404 when it is unknown.
func (s *Server) countryCode(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if _, ok := s.cfg.Countries[code]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown country code: " + code})
		return "", false
	}
	return code, true
}
