package models

import (
	"errors"
	"time"
)

// SeriesPoint is one day's aggregate of a country's stored articles.
type SeriesPoint struct {
	Date         time.Time `json:"date"` // truncated to the day, UTC
	AvgScore     float64   `json:"avg_score"`
	Count        int       `json:"count"`
	StdDev       float64   `json:"std_dev"`
	CriticalHits int       `json:"critical_hits"`
}

// CountrySeries is the ordered per-day aggregate series for one country,
// ascending by date. It is derived from stored articles and append-only:
// new scan cycles only ever add or update the most recent day.
type CountrySeries struct {
	Country string        `json:"country"`
	Points  []SeriesPoint `json:"points"`
}

// Values returns the daily average scores in date order.
func (cs *CountrySeries) Values() []float64 {
	vals := make([]float64, len(cs.Points))
	for i, p := range cs.Points {
		vals[i] = p.AvgScore
	}
	return vals
}

// Validate checks that the series is ordered by ascending date.
func (cs *CountrySeries) Validate() error {
	if cs.Country == "" {
		return errors.New("series country must not be empty")
	}
	for i := 1; i < len(cs.Points); i++ {
		if !cs.Points[i-1].Date.Before(cs.Points[i].Date) {
			return errors.New("series points must be ordered by ascending date")
		}
	}
	return nil
}

// Signals holds the four normalized risk sub-signals, each in [0, 100].
type Signals struct {
	Sentiment        float64 `json:"sentiment"`
	Frequency        float64 `json:"frequency"`
	Volatility       float64 `json:"volatility"`
	CriticalKeywords float64 `json:"critical_keywords"`
}

// RiskAssessment is the composite risk value for one country over one
// window. It is recomputed on each request and never stored.
type RiskAssessment struct {
	Country      string    `json:"country"`
	Score        float64   `json:"score"` // [0, 100]
	Level        string    `json:"level"`
	Signals      Signals   `json:"signals"`
	ArticleCount int       `json:"article_count"`
	ComputedAt   time.Time `json:"computed_at"`
}

// AnomalyPoint marks one series point with its Z-score magnitude.
type AnomalyPoint struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	ZScore    float64   `json:"z_score"` // magnitude, >= 0
	Anomalous bool      `json:"anomalous"`
}

// Trend direction labels.
const (
	TrendUpward   = "upward"
	TrendDownward = "downward"
	TrendFlat     = "flat"
)

// TrendReport compares the short and long moving averages of a country's
// series at the latest point. Degraded is set when the history is shorter
// than the long window and the long average was computed over all
// available points instead.
type TrendReport struct {
	Country    string  `json:"country"`
	Direction  string  `json:"direction"`
	Current    float64 `json:"current"`
	ShortAvg   float64 `json:"short_avg"`
	LongAvg    float64 `json:"long_avg"`
	Volatility float64 `json:"volatility"`
	PointsUsed int     `json:"points_used"`
	Degraded   bool    `json:"degraded"`
}
