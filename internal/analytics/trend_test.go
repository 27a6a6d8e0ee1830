package analytics

import (
	"testing"

	"github.com/aura-global/aura/internal/models"
)

func TestPredictTrendUpward(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = -0.5 + float64(i)*0.03 // monotonically increasing
	}

	report, err := PredictTrend("us", seriesOf(values...), 7, 30, 0.01)
	if err != nil {
		t.Fatalf("PredictTrend failed: %v", err)
	}
	if report.Direction != models.TrendUpward {
		t.Errorf("Direction = %q, want %q (short %v vs long %v)",
			report.Direction, models.TrendUpward, report.ShortAvg, report.LongAvg)
	}
	if report.Degraded {
		t.Error("30-point series with a 30-point window should not be degraded")
	}
	if report.PointsUsed != 30 {
		t.Errorf("PointsUsed = %d, want 30", report.PointsUsed)
	}
}

func TestPredictTrendDownward(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 0.5 - float64(i)*0.03
	}

	report, err := PredictTrend("fr", seriesOf(values...), 7, 30, 0.01)
	if err != nil {
		t.Fatalf("PredictTrend failed: %v", err)
	}
	if report.Direction != models.TrendDownward {
		t.Errorf("Direction = %q, want %q", report.Direction, models.TrendDownward)
	}
}

func TestPredictTrendFlat(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 0.25
	}

	report, err := PredictTrend("it", seriesOf(values...), 7, 30, 0.01)
	if err != nil {
		t.Fatalf("PredictTrend failed: %v", err)
	}
	if report.Direction != models.TrendFlat {
		t.Errorf("Direction = %q, want %q", report.Direction, models.TrendFlat)
	}
	if report.Volatility != 0 {
		t.Errorf("flat series volatility = %v, want 0", report.Volatility)
	}
}

func TestPredictTrendDegradedWindow(t *testing.T) {
	// 10 points of history against a 30-point long window: the long
	// average falls back to all available points.
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(i) * 0.05
	}

	report, err := PredictTrend("es", seriesOf(values...), 7, 30, 0.01)
	if err != nil {
		t.Fatalf("PredictTrend failed: %v", err)
	}
	if !report.Degraded {
		t.Error("short history should be reported as degraded, not fail")
	}
	if report.PointsUsed != 10 {
		t.Errorf("PointsUsed = %d, want 10", report.PointsUsed)
	}
	if report.Direction != models.TrendUpward {
		t.Errorf("Direction = %q, want %q", report.Direction, models.TrendUpward)
	}
}

func TestPredictTrendInsufficientData(t *testing.T) {
	_, err := PredictTrend("gr", seriesOf(0.1), 7, 30, 0.01)
	if err == nil {
		t.Fatal("single-point series should be insufficient")
	}
	if !models.IsInsufficientData(err) {
		t.Errorf("expected InsufficientDataError, got %T", err)
	}
}

func TestTrailingMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := trailingMean(values, 2); got != 4.5 {
		t.Errorf("trailingMean(window 2) = %v, want 4.5", got)
	}
	if got := trailingMean(values, 5); got != 3 {
		t.Errorf("trailingMean(window 5) = %v, want 3", got)
	}
	// window longer than the series uses every point
	if got := trailingMean(values, 10); got != 3 {
		t.Errorf("trailingMean(window 10) = %v, want 3", got)
	}
}
