package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/aura-global/aura/internal/models"
)

func seriesOf(values ...float64) []models.SeriesPoint {
	points := make([]models.SeriesPoint, len(values))
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		points[i] = models.SeriesPoint{
			Date:     base.AddDate(0, 0, i),
			AvgScore: v,
			Count:    1,
		}
	}
	return points
}

func TestDetectAnomaliesConstantSeries(t *testing.T) {
	// sigma = 0 must not divide by zero and must flag nothing
	result, err := DetectAnomalies(seriesOf(50, 50, 50, 50, 50), 2.0)
	if err != nil {
		t.Fatalf("DetectAnomalies failed: %v", err)
	}

	for _, p := range result {
		if p.Anomalous {
			t.Errorf("constant series flagged point %v as anomalous", p.Date)
		}
		if p.ZScore != 0 {
			t.Errorf("constant series Z-score should be 0, got %v", p.ZScore)
		}
	}
}

func TestDetectAnomaliesSpike(t *testing.T) {
	// mean = 28, population sigma = 36, so the spike sits at Z = 2.0 exactly
	result, err := DetectAnomalies(seriesOf(10, 10, 10, 10, 100), 2.0)
	if err != nil {
		t.Fatalf("DetectAnomalies failed: %v", err)
	}

	last := result[len(result)-1]
	if !last.Anomalous {
		t.Errorf("spike point should be flagged, Z = %v", last.ZScore)
	}
	if math.Abs(last.ZScore-2.0) > 1e-9 {
		t.Errorf("spike Z-score = %v, want 2.0", last.ZScore)
	}

	for _, p := range result[:len(result)-1] {
		if p.Anomalous {
			t.Errorf("baseline point %v wrongly flagged (Z = %v)", p.Value, p.ZScore)
		}
	}
}

func TestDetectAnomaliesZScoreMagnitudeRanksSeverity(t *testing.T) {
	result, err := DetectAnomalies(seriesOf(0, 0, 0, 0, 0, 0, 0, 0, 0, 50), 2.0)
	if err != nil {
		t.Fatalf("DetectAnomalies failed: %v", err)
	}

	spike := result[len(result)-1]
	for _, p := range result[:len(result)-1] {
		if p.ZScore >= spike.ZScore {
			t.Errorf("baseline Z %v should rank below spike Z %v", p.ZScore, spike.ZScore)
		}
	}
}

func TestDetectAnomaliesInsufficientData(t *testing.T) {
	for _, points := range [][]models.SeriesPoint{nil, seriesOf(42)} {
		_, err := DetectAnomalies(points, 2.0)
		if err == nil {
			t.Fatalf("series of length %d should be insufficient", len(points))
		}
		if !models.IsInsufficientData(err) {
			t.Errorf("expected InsufficientDataError, got %T", err)
		}
	}
}

func TestAnomaliesFilter(t *testing.T) {
	result, err := DetectAnomalies(seriesOf(10, 10, 10, 10, 100), 2.0)
	if err != nil {
		t.Fatalf("DetectAnomalies failed: %v", err)
	}

	flagged := Anomalies(result)
	if len(flagged) != 1 {
		t.Fatalf("expected 1 flagged point, got %d", len(flagged))
	}
	if flagged[0].Value != 100 {
		t.Errorf("flagged value = %v, want 100", flagged[0].Value)
	}
}
