package output

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

// GanttChart draws a plan's shipments against the planning periods: one row
// per product and supplier, one bar from order period to arrival period.
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	Periods      int
}

// GanttBar represents a single shipment in the chart
type GanttBar struct {
	Row      string
	Shipment entities.Shipment
	X        int
	Width    int
	Color    string
}

// NewGanttChart sizes a chart for the result's shipments over periods
func NewGanttChart(result *dto.PlanResult, periods int) *GanttChart {
	rows := make(map[string]bool)
	for _, s := range result.Shipments {
		rows[rowLabel(s)] = true
	}
	rowHeight := 30
	return &GanttChart{
		Width:        1200,
		Height:       max(len(rows), 1)*rowHeight + 140,
		MarginLeft:   200,
		MarginTop:    60,
		MarginRight:  100,
		MarginBottom: 80,
		RowHeight:    rowHeight,
		Periods:      max(periods, 1),
	}
}

// GenerateSVG creates an SVG representation of the chart
func (gc *GanttChart) GenerateSVG(result *dto.PlanResult) string {
	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height))
	svg.WriteString(`<defs><style>`)
	svg.WriteString(`.row-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.order-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.order-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style></defs>`)
	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">%s plan: %s</text>`,
		gc.Width/2, html.EscapeString(result.Strategy.String()), html.EscapeString(result.Status.String())))

	rows := gc.organizeBars(gc.createBars(result.Shipments))
	labels := make([]string, 0, len(rows))
	for label := range rows {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	gc.drawPeriodGrid(&svg, len(labels))
	for i, label := range labels {
		y := gc.MarginTop + i*gc.RowHeight
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="row-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-10, y+gc.RowHeight/2+4, html.EscapeString(label)))
		for _, bar := range rows[label] {
			svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="order-bar"/>`,
				bar.X, y+4, bar.Width, gc.RowHeight-8, bar.Color))
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="order-text">%g</text>`,
				bar.X+3, y+gc.RowHeight/2+3, bar.Shipment.Quantity))
		}
	}

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) periodWidth() float64 {
	return float64(gc.Width-gc.MarginLeft-gc.MarginRight) / float64(gc.Periods)
}

// createBars spans each shipment from the start of its order period to the
// end of its arrival period
func (gc *GanttChart) createBars(shipments []entities.Shipment) []GanttBar {
	bars := make([]GanttBar, 0, len(shipments))
	pw := gc.periodWidth()
	for _, s := range shipments {
		color := "#2e7d32"
		if s.Late {
			color = "#c62828"
		} else if s.ArrivalPeriod > s.OrderPeriod {
			color = "#1565c0"
		}
		bars = append(bars, GanttBar{
			Row:      rowLabel(s),
			Shipment: s,
			X:        gc.MarginLeft + int(float64(s.OrderPeriod)*pw),
			Width:    max(int(float64(s.ArrivalPeriod-s.OrderPeriod+1)*pw), 2),
			Color:    color,
		})
	}
	return bars
}

func (gc *GanttChart) organizeBars(bars []GanttBar) map[string][]GanttBar {
	rows := make(map[string][]GanttBar)
	for _, bar := range bars {
		rows[bar.Row] = append(rows[bar.Row], bar)
	}
	for label := range rows {
		sort.Slice(rows[label], func(i, j int) bool {
			return rows[label][i].Shipment.OrderPeriod < rows[label][j].Shipment.OrderPeriod
		})
	}
	return rows
}

func (gc *GanttChart) drawPeriodGrid(svg *strings.Builder, rowCount int) {
	pw := gc.periodWidth()
	bottom := gc.MarginTop + max(rowCount, 1)*gc.RowHeight
	for t := 0; t <= gc.Periods; t++ {
		x := gc.MarginLeft + int(float64(t)*pw)
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`, x, gc.MarginTop, x, bottom))
		if t < gc.Periods {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%d</text>`,
				x+int(pw/2), bottom+15, t))
		}
	}
}

func rowLabel(s entities.Shipment) string {
	return fmt.Sprintf("%s / %s", s.ProductID, s.SupplierID)
}
