package visuals

import (
	"fmt"
	"strings"
	"testing"

	"liquidity-mcs/internal/simulation"
	"liquidity-mcs/internal/stats"
)

func sampleMonths(n int) []simulation.MonthlyStats {
	months := make([]simulation.MonthlyStats, n)
	for i := range months {
		months[i] = simulation.MonthlyStats{
			Month:                fmt.Sprintf("2025-%02d", i%12+1),
			ShortfallProbability: float64(i) / float64(n),
			Inflow:               stats.Percentiles{P50: 100},
			CashOutflow:          stats.Percentiles{P50: 90, P80: 120},
		}
	}
	return months
}

func TestGenerateShortfallChart(t *testing.T) {
	chart := GenerateShortfallChart(sampleMonths(4))

	for _, want := range []string{"```mermaid", "xychart-beta", "\"2025-04\"", "bar [0.0, 25.0, 50.0, 75.0]", "0 --> 100"} {
		if !strings.Contains(chart, want) {
			t.Errorf("chart missing %q:\n%s", want, chart)
		}
	}
	if GenerateShortfallChart(nil) != "" {
		t.Error("empty input should produce no chart")
	}
}

func TestGenerateShortfallChart_Subsamples(t *testing.T) {
	chart := GenerateShortfallChart(sampleMonths(150))
	bar := chart[strings.Index(chart, "bar ["):]
	if n := strings.Count(bar, ",") + 1; n > maxPoints+1 {
		t.Errorf("expected at most %d points, got %d", maxPoints+1, n)
	}
}

func TestGenerateCashBandChart(t *testing.T) {
	chart := GenerateCashBandChart(sampleMonths(3))
	if strings.Count(chart, "    line [") != 3 {
		t.Errorf("expected three series:\n%s", chart)
	}
	if !strings.Contains(chart, "\"Amount\" 0 --> 13") {
		t.Errorf("y-axis should leave headroom above the P80:\n%s", chart)
	}
}

func TestGenerateBreachChart(t *testing.T) {
	radar := &simulation.BreachRadarResults{
		Distribution:        []float64{0, 0.25, 0.15},
		Months:              []string{"2025-01", "2025-02", "2025-03"},
		NoBreachProbability: 0.6,
	}
	chart := GenerateBreachChart(radar)
	if !strings.Contains(chart, "bar [0.0, 25.0, 15.0]") {
		t.Errorf("unexpected chart:\n%s", chart)
	}

	radar.NoBreachProbability = 1
	if GenerateBreachChart(radar) != "" {
		t.Error("a radar without breaches should produce no chart")
	}
	if GenerateBreachChart(nil) != "" {
		t.Error("nil radar should produce no chart")
	}
}

func TestGenerateDriverPie(t *testing.T) {
	pie := GenerateDriverPie([]simulation.Driver{
		{Factor: "market", Contribution: 0.2},
		{Factor: "lag", Contribution: 0},
		{Factor: "threats", Contribution: 0.05},
	})
	if !strings.HasPrefix(pie, "```mermaid\npie title") || strings.Contains(pie, "lag") {
		t.Errorf("unexpected pie:\n%s", pie)
	}
	if GenerateDriverPie([]simulation.Driver{{Factor: "lag"}}) != "" {
		t.Error("zero contributions should produce no pie")
	}
}
