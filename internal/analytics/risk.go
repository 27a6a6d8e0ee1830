// Package analytics derives per-country signals from stored article series.
//
// Risk scoring combines four normalized sub-signals with fixed weights:
//
//	score = 0.4×sentiment + 0.3×frequency + 0.2×volatility + 0.1×keywords
//
// Each sub-signal is normalized linearly to [0, 100] before weighting:
// sentiment from the window's mean score (mean −1 → 100, mean +1 → 0),
// frequency from the article count against a reference count, volatility
// from the sample standard deviation of scores, and keywords from the
// fraction of headlines containing a critical keyword. The composite is
// clamped to [0, 100] and is strictly increasing in each sub-signal.
//
// Anomaly detection flags series points whose Z-score magnitude reaches
// a threshold (default 2.0); trend prediction compares short and long
// trailing moving averages at the latest point. Both are pure functions
// of the series snapshot passed in.
package analytics

import (
	"math"
	"strings"
	"time"

	"github.com/aura-global/aura/internal/models"
)

// Fixed sub-signal weights. They sum to 1.0 so a composite of four
// 100-valued signals is exactly 100.
const (
	WeightSentiment  = 0.4
	WeightFrequency  = 0.3
	WeightVolatility = 0.2
	WeightKeywords   = 0.1
)

// Composite score bins for category labels.
const (
	CategoryVeryLow  = "very_low"
	CategoryLow      = "low"
	CategoryModerate = "moderate"
	CategoryHigh     = "high"
	CategoryCritical = "critical"
)

// RiskParams holds the tunable normalization inputs for risk scoring.
type RiskParams struct {
	CriticalKeywords   []string
	FrequencyReference int // article count that maps to a full frequency signal
}

// NormalizeWindow reduces a per-country window of classified articles to
// the four [0, 100] sub-signals. An empty window yields zero signals, which
// the scorer resolves to the defined default score of 0. A window with a
// single article has volatility 0 by definition.
//
// An article with a NaN or out-of-range score indicates an upstream
// contract violation and returns a ValidationError; it is never treated
// as zero.
func NormalizeWindow(articles []models.Article, params RiskParams) (models.Signals, error) {
	if len(articles) == 0 {
		return models.Signals{}, nil
	}

	ref := params.FrequencyReference
	if ref < 1 {
		ref = 1
	}

	var sum float64
	criticalHits := 0
	for _, a := range articles {
		if math.IsNaN(a.Score) {
			return models.Signals{}, &models.ValidationError{Field: "score", Reason: "missing sentiment score (NaN)"}
		}
		if a.Score < -1.0 || a.Score > 1.0 {
			return models.Signals{}, &models.ValidationError{Field: "score", Reason: "sentiment score outside [-1, 1]"}
		}
		sum += a.Score
		if containsKeyword(a.Headline, params.CriticalKeywords) {
			criticalHits++
		}
	}

	n := float64(len(articles))
	mean := sum / n

	// Sample standard deviation of scores; 0 when n < 2 (no variance
	// with one sample).
	var sigma float64
	if len(articles) >= 2 {
		var variance float64
		for _, a := range articles {
			diff := a.Score - mean
			variance += diff * diff
		}
		variance /= n - 1
		sigma = math.Sqrt(variance)
	}

	return models.Signals{
		Sentiment:        (1 - mean) / 2 * 100,
		Frequency:        math.Min(n/float64(ref), 1.0) * 100,
		Volatility:       math.Min(sigma, 1.0) * 100,
		CriticalKeywords: float64(criticalHits) / n * 100,
	}, nil
}

// Score combines the four normalized sub-signals into the composite risk
// score in [0, 100]. Deterministic given identical inputs. A signal
// outside [0, 100] or NaN returns a ValidationError.
func Score(sig models.Signals) (float64, error) {
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"sentiment", sig.Sentiment},
		{"frequency", sig.Frequency},
		{"volatility", sig.Volatility},
		{"critical_keywords", sig.CriticalKeywords},
	} {
		if math.IsNaN(check.value) {
			return 0, &models.ValidationError{Field: check.name, Reason: "signal is NaN"}
		}
		if check.value < 0 || check.value > 100 {
			return 0, &models.ValidationError{Field: check.name, Reason: "signal outside [0, 100]"}
		}
	}

	score := WeightSentiment*sig.Sentiment +
		WeightFrequency*sig.Frequency +
		WeightVolatility*sig.Volatility +
		WeightKeywords*sig.CriticalKeywords

	return math.Max(0, math.Min(100, score)), nil
}

// Assess normalizes a country's article window and scores it in one step.
func Assess(country string, articles []models.Article, params RiskParams) (models.RiskAssessment, error) {
	signals, err := NormalizeWindow(articles, params)
	if err != nil {
		return models.RiskAssessment{}, err
	}

	score, err := Score(signals)
	if err != nil {
		return models.RiskAssessment{}, err
	}

	return models.RiskAssessment{
		Country:      country,
		Score:        score,
		Level:        riskCategory(score),
		Signals:      signals,
		ArticleCount: len(articles),
		ComputedAt:   time.Now(),
	}, nil
}

// riskCategory buckets a composite score into a coarse label.
func riskCategory(score float64) string {
	switch {
	case score < 20:
		return CategoryVeryLow
	case score < 40:
		return CategoryLow
	case score < 60:
		return CategoryModerate
	case score < 80:
		return CategoryHigh
	default:
		return CategoryCritical
	}
}

func containsKeyword(headline string, keywords []string) bool {
	lower := strings.ToLower(headline)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
