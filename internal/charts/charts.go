// Package charts renders usage breakdowns as PNG images for the balance
// pages.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"a9admin/internal/core"
)

// UsagePie renders token usage per engine as a pie chart PNG. Returns nil
// bytes when there is no usage to draw.
func UsagePie(title string, points []core.ChartPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}

	total := 0.0
	for _, p := range points {
		total += p.Value
	}
	if total <= 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, len(points))
	for _, p := range points {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %.2f (%.1f%%)", p.Name, p.Value, p.Value/total*100),
			Value: p.Value,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render usage pie chart: %w", err)
	}

	return buffer.Bytes(), nil
}
