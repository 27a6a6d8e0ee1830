package analytics

import (
	"math"

	"github.com/aura-global/aura/internal/models"
)

// PredictTrend compares the trailing short- and long-window moving
// averages of a country's daily series at the latest point.
//
// If short > long by more than tolerance the direction is "upward"; if
// short < long by more than tolerance it is "downward"; otherwise "flat".
// When the history is shorter than a window, the average is taken over
// all available points and the report is marked Degraded. The prediction
// is fully recomputed from the series on every call; there is no
// persisted model state.
func PredictTrend(country string, points []models.SeriesPoint, shortWindow, longWindow int, tolerance float64) (models.TrendReport, error) {
	if len(points) < minSeriesLen {
		return models.TrendReport{}, &models.InsufficientDataError{Needed: minSeriesLen, Got: len(points)}
	}
	if shortWindow < 1 {
		shortWindow = 7
	}
	if longWindow <= shortWindow {
		longWindow = shortWindow + 1
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.AvgScore
	}

	shortAvg := trailingMean(values, shortWindow)
	longAvg := trailingMean(values, longWindow)

	direction := models.TrendFlat
	switch {
	case shortAvg > longAvg+tolerance:
		direction = models.TrendUpward
	case shortAvg < longAvg-tolerance:
		direction = models.TrendDownward
	}

	used := longWindow
	if len(values) < longWindow {
		used = len(values)
	}

	return models.TrendReport{
		Country:    country,
		Direction:  direction,
		Current:    values[len(values)-1],
		ShortAvg:   shortAvg,
		LongAvg:    longAvg,
		Volatility: sampleStdDev(values[len(values)-used:]),
		PointsUsed: used,
		Degraded:   len(values) < longWindow,
	}, nil
}

// trailingMean averages the last window values, or all values when the
// series is shorter than the window.
func trailingMean(values []float64, window int) float64 {
	if window > len(values) {
		window = len(values)
	}
	var sum float64
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// sampleStdDev is the Bessel-corrected standard deviation (divide by n-1).
// Returns 0 for fewer than two values.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
