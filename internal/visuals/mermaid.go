package visuals

import (
	"fmt"
	"math"
	"strings"

	"liquidity-mcs/internal/simulation"
)

// maxPoints is where Mermaid's xychart starts overlapping its axis labels.
const maxPoints = 60

func monthLabels(months []simulation.MonthlyStats, step int) []int {
	var idx []int
	for i := range months {
		if i%step == 0 || i == len(months)-1 {
			idx = append(idx, i)
		}
	}
	return idx
}

func subsampleRate(n int) int {
	if n > maxPoints {
		return int(math.Ceil(float64(n) / float64(maxPoints)))
	}
	return 1
}

// GenerateShortfallChart creates a Mermaid bar chart of the monthly shortfall probability in percent.
func GenerateShortfallChart(months []simulation.MonthlyStats) string {
	if len(months) == 0 {
		return ""
	}

	var labels []string
	var values []string
	for _, i := range monthLabels(months, subsampleRate(len(months))) {
		labels = append(labels, fmt.Sprintf("\"%s\"", months[i].Month))
		values = append(values, fmt.Sprintf("%.1f", months[i].ShortfallProbability*100))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Funding Shortfall Probability\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Probability (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateCashBandChart creates a Mermaid line chart of median inflow against
// the P50 and P80 cash outflow.
func GenerateCashBandChart(months []simulation.MonthlyStats) string {
	if len(months) == 0 {
		return ""
	}

	var labels, inflow, p50, p80 []string
	maxY := 0.0
	for _, i := range monthLabels(months, subsampleRate(len(months))) {
		m := months[i]
		labels = append(labels, fmt.Sprintf("\"%s\"", m.Month))
		inflow = append(inflow, fmt.Sprintf("%.1f", m.Inflow.P50))
		p50 = append(p50, fmt.Sprintf("%.1f", m.CashOutflow.P50))
		p80 = append(p80, fmt.Sprintf("%.1f", m.CashOutflow.P80))
		maxY = max(maxY, m.Inflow.P50, m.CashOutflow.P80)
	}
	if maxY == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Inflow vs Cash Out (P50 / P80)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Amount\" 0 --> %d\n", int(math.Ceil(maxY*1.1))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(inflow, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(p50, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(p80, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateBreachChart creates a Mermaid bar chart of the first-breach month distribution.
func GenerateBreachChart(radar *simulation.BreachRadarResults) string {
	if radar == nil || len(radar.Distribution) == 0 || radar.NoBreachProbability >= 1 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0.0
	for i, p := range radar.Distribution {
		if i >= len(radar.Months) {
			break
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", radar.Months[i]))
		values = append(values, fmt.Sprintf("%.1f", p*100))
		maxVal = max(maxVal, p*100)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Breach Radar (First Shortfall Month)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Trials (%%)\" 0 --> %d\n", int(math.Min(100, math.Ceil(maxVal*1.2)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateDriverPie creates a Mermaid pie of each factor's share of the shortfall probability.
func GenerateDriverPie(drivers []simulation.Driver) string {
	var sb strings.Builder
	n := 0
	for _, d := range drivers {
		if d.Contribution <= 0 {
			continue
		}
		if n == 0 {
			sb.WriteString("```mermaid\n")
			sb.WriteString("pie title Shortfall Drivers\n")
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" : %.4f\n", d.Factor, d.Contribution))
		n++
	}
	if n == 0 {
		return ""
	}
	sb.WriteString("```")
	return sb.String()
}
