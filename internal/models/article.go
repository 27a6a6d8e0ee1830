// Package models defines the core domain entities for the aura service.
// These models represent classified news articles, per-country daily series,
// and the derived analytics values (risk, anomaly, trend). All stored models
// include built-in validation to ensure data integrity throughout the pipeline.
//
// Terminology:
//   - Article: one classified news item, unique per (country, url).
//   - Series point: one day's aggregate of a country's stored articles.
//   - Risk/anomaly/trend values are pure functions of the current series
//     snapshot and are recomputed on every call, never persisted.
package models

import (
	"errors"
	"time"
)

// Risk level labels derived from an article's sentiment score.
const (
	RiskLevelCritical = "critical"
	RiskLevelWarning  = "warning"
	RiskLevelPositive = "positive"
	RiskLevelNormal   = "normal"
)

// Article represents a single classified news item for one country.
// The (Country, URL) pair is the dedup key: inserting the same pair twice
// leaves exactly one stored row. Articles are immutable once stored.
type Article struct {
	ID          string    `json:"id"`
	Country     string    `json:"country"`  // lowercase country code, e.g. "us"
	Headline    string    `json:"headline"`
	Score       float64   `json:"score"` // sentiment in [-1, 1]
	Label       string    `json:"label"` // classifier label, e.g. "POSITIVE"
	Confidence  float64   `json:"confidence"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	RiskLevel   string    `json:"risk_level"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Validate checks that all article fields are valid.
func (a *Article) Validate() error {
	if a.ID == "" {
		return errors.New("article ID must not be empty")
	}
	if a.Country == "" {
		return errors.New("country code must not be empty")
	}
	if a.Headline == "" {
		return errors.New("headline must not be empty")
	}
	if a.URL == "" {
		return errors.New("URL must not be empty")
	}
	if a.Score < -1.0 || a.Score > 1.0 {
		return errors.New("score must be between -1.0 and 1.0")
	}
	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	if a.FetchedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("fetched at must not be in the future")
	}
	if !a.PublishedAt.IsZero() && a.PublishedAt.After(a.FetchedAt) {
		return errors.New("published at must be <= fetched at")
	}
	return nil
}

// RiskLevelFor maps a sentiment score to a risk level label using the
// given thresholds (critical <= warning < 0 < positive).
func RiskLevelFor(score, critical, warning, positive float64) string {
	switch {
	case score <= critical:
		return RiskLevelCritical
	case score <= warning:
		return RiskLevelWarning
	case score >= positive:
		return RiskLevelPositive
	default:
		return RiskLevelNormal
	}
}
