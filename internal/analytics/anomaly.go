package analytics

import (
	"math"

	"github.com/aura-global/aura/internal/models"
)

// minSeriesLen is the smallest series the detector and predictor accept.
const minSeriesLen = 2

// DetectAnomalies computes the Z-score of every point against the series
// mean and flags those whose magnitude reaches the threshold.
//
// The standard deviation is the population σ over the full series (divide
// by n), and the comparison is inclusive, so a lone spike in an otherwise
// constant series at exactly threshold×σ is flagged. A constant series
// (σ = 0) produces no anomalies rather than dividing by zero. A series
// shorter than two points returns an InsufficientDataError.
func DetectAnomalies(points []models.SeriesPoint, threshold float64) ([]models.AnomalyPoint, error) {
	if len(points) < minSeriesLen {
		return nil, &models.InsufficientDataError{Needed: minSeriesLen, Got: len(points)}
	}
	if threshold <= 0 {
		threshold = 2.0
	}

	n := float64(len(points))
	var sum float64
	for _, p := range points {
		sum += p.AvgScore
	}
	mean := sum / n

	var variance float64
	for _, p := range points {
		diff := p.AvgScore - mean
		variance += diff * diff
	}
	variance /= n
	sigma := math.Sqrt(variance)

	result := make([]models.AnomalyPoint, len(points))
	for i, p := range points {
		ap := models.AnomalyPoint{
			Date:  p.Date,
			Value: p.AvgScore,
		}
		if sigma > 0 {
			z := math.Abs(p.AvgScore-mean) / sigma
			ap.ZScore = z
			ap.Anomalous = z >= threshold
		}
		result[i] = ap
	}

	return result, nil
}

// Anomalies filters a detection result down to the flagged points.
func Anomalies(points []models.AnomalyPoint) []models.AnomalyPoint {
	var flagged []models.AnomalyPoint
	for _, p := range points {
		if p.Anomalous {
			flagged = append(flagged, p)
		}
	}
	return flagged
}
