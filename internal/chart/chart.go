// package chart draws the report charts directly onto a PDF page with fpdf
// primitives. All coordinates are in millimeters; every Draw* helper renders
// at the current Y position across the full content width and advances the
// cursor past the chart.
package chart

import (
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/rsd-team/rsd-service/internal/service"
)

// StatusColors maps status buckets to their GitHub-like palette entries.
var StatusColors = map[string]string{
	"backlog":   "#8B949E",
	"blocked":   "#f97316",
	"progress":  "#BF8700",
	"review":    "#2188FF",
	"done":      "#986EE2",
	"no_status": "#8B949E",
	"duplicate": "#64748b",
}

const (
	chartHeight  = 60
	titleHeight  = 8
	legendHeight = 5
	axisPad      = 4

	gridHex = "#D0D7DE"
	textHex = "#24292F"
)

// RGB is a parsed "#rrggbb" color.
type RGB struct {
	R, G, B int
}

// Hex parses "#rrggbb" (case-insensitive). Malformed values fall back to
// the neutral gray used for unknown statuses.
func Hex(s string) RGB {
	if len(s) != 7 || s[0] != '#' {
		return RGB{0x8B, 0x94, 0x9E}
	}

	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{0x8B, 0x94, 0x9E}
	}

	return RGB{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}
}

func setFill(pdf *fpdf.Fpdf, hex string) {
	c := Hex(hex)
	pdf.SetFillColor(c.R, c.G, c.B)
}

func setDraw(pdf *fpdf.Fpdf, hex string) {
	c := Hex(hex)
	pdf.SetDrawColor(c.R, c.G, c.B)
}

func setText(pdf *fpdf.Fpdf, hex string) {
	c := Hex(hex)
	pdf.SetTextColor(c.R, c.G, c.B)
}

func contentWidth(pdf *fpdf.Fpdf) float64 {
	w, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()

	return w - left - right
}

func drawTitle(pdf *fpdf.Fpdf, title string) {
	setText(pdf, textHex)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, titleHeight, title, "", 1, "L", false, 0, "")
}

func drawLegend(pdf *fpdf.Fpdf, entries []service.LineSeries) {
	left, _, _, _ := pdf.GetMargins()
	x := left

	pdf.SetFont("Helvetica", "", 7)
	setText(pdf, textHex)

	y := pdf.GetY()
	for _, entry := range entries {
		setFill(pdf, entry.Color)
		pdf.Rect(x, y+1, 3, 3, "F")
		pdf.SetXY(x+4, y)
		pdf.CellFormat(pdf.GetStringWidth(entry.Name)+2, legendHeight, entry.Name, "", 0, "L", false, 0, "")
		x = pdf.GetX() + 3
	}

	pdf.SetY(y + legendHeight)
}

// DrawLine renders a multi-series line chart.
func DrawLine(pdf *fpdf.Fpdf, c service.LineChart) {
	if c.Points == 0 || len(c.Series) == 0 {
		return
	}

	drawTitle(pdf, c.Title)
	drawLegend(pdf, c.Series)

	left, _, _, _ := pdf.GetMargins()
	width := contentWidth(pdf)
	top := pdf.GetY() + axisPad
	bottom := top + chartHeight

	maxValue := 1.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v > maxValue {
				maxValue = v
			}
		}
	}

	setDraw(pdf, gridHex)
	pdf.SetLineWidth(0.2)
	pdf.Line(left, bottom, left+width, bottom)
	pdf.Line(left, top, left, bottom)

	setText(pdf, textHex)
	pdf.SetFont("Helvetica", "", 7)
	pdf.Text(left+1, top+2, fmt.Sprintf("%.0f", maxValue))
	pdf.Text(left+1, bottom-1, "0")

	xStep := width
	if c.Points > 1 {
		xStep = width / float64(c.Points-1)
	}

	pdf.SetLineWidth(0.6)
	pdf.SetLineCapStyle("round")

	for _, s := range c.Series {
		setDraw(pdf, s.Color)
		for i := 1; i < len(s.Values) && i < c.Points; i++ {
			x1 := left + float64(i-1)*xStep
			x2 := left + float64(i)*xStep
			y1 := bottom - s.Values[i-1]/maxValue*chartHeight
			y2 := bottom - s.Values[i]/maxValue*chartHeight
			pdf.Line(x1, y1, x2, y2)
		}
	}

	pdf.SetLineWidth(0.2)
	pdf.SetLineCapStyle("butt")
	pdf.SetY(bottom + axisPad)
}

// DrawBar renders a vertical bar chart with one color per category and the
// category names under the bars.
func DrawBar(pdf *fpdf.Fpdf, c service.BarChart) {
	if len(c.Categories) == 0 {
		return
	}

	drawTitle(pdf, c.Title)

	left, _, _, _ := pdf.GetMargins()
	width := contentWidth(pdf)
	top := pdf.GetY() + axisPad
	bottom := top + chartHeight

	maxValue := 1.0
	for _, v := range c.Values {
		if v > maxValue {
			maxValue = v
		}
	}

	setDraw(pdf, gridHex)
	pdf.SetLineWidth(0.2)
	pdf.Line(left, bottom, left+width, bottom)
	pdf.Line(left, top, left, bottom)

	setText(pdf, textHex)
	pdf.SetFont("Helvetica", "", 7)
	pdf.Text(left+1, top+2, fmt.Sprintf("%.0f", maxValue))

	slot := width / float64(len(c.Categories))
	barWidth := slot * 0.7

	for i, category := range c.Categories {
		v := 0.0
		if i < len(c.Values) {
			v = c.Values[i]
		}

		barHeight := v / maxValue * chartHeight
		x := left + float64(i)*slot + (slot-barWidth)/2
		y := bottom - barHeight

		color := "#8B949E"
		if i < len(c.Colors) {
			color = c.Colors[i]
		}

		setFill(pdf, color)
		pdf.Rect(x, y, barWidth, barHeight, "F")

		setText(pdf, textHex)
		pdf.SetFont("Helvetica", "B", 7)
		if v > 0 {
			pdf.Text(x+barWidth/2-pdf.GetStringWidth(fmt.Sprintf("%.0f", v))/2, y-1, fmt.Sprintf("%.0f", v))
		}

		pdf.SetFont("Helvetica", "", 7)
		pdf.Text(x+barWidth/2-pdf.GetStringWidth(category)/2, bottom+3.5, category)
	}

	pdf.SetY(bottom + 2*axisPad)
}

// DrawStackedBar renders horizontal stacked bars, one row per label, with a
// total at the end of each bar.
func DrawStackedBar(pdf *fpdf.Fpdf, c service.StackedBarChart) {
	if len(c.Labels) == 0 {
		return
	}

	const (
		rowHeight  = 5.0
		rowGap     = 2.0
		labelWidth = 60.0
	)

	drawTitle(pdf, c.Title)

	legend := make([]service.LineSeries, 0, len(c.Stacks))
	for _, s := range c.Stacks {
		for _, v := range s.Values {
			if v > 0 {
				legend = append(legend, service.LineSeries{Name: s.Name, Color: s.Color})
				break
			}
		}
	}
	drawLegend(pdf, legend)

	left, _, _, _ := pdf.GetMargins()
	width := contentWidth(pdf)
	barArea := width - labelWidth - 10

	maxTotal := 1.0
	totals := make([]float64, len(c.Labels))
	for i := range c.Labels {
		for _, s := range c.Stacks {
			if i < len(s.Values) {
				totals[i] += s.Values[i]
			}
		}
		if totals[i] > maxTotal {
			maxTotal = totals[i]
		}
	}

	y := pdf.GetY() + rowGap

	for i, label := range c.Labels {
		setText(pdf, textHex)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetXY(left, y)
		pdf.CellFormat(labelWidth, rowHeight, label, "", 0, "R", false, 0, "")

		x := left + labelWidth + 2
		for _, s := range c.Stacks {
			v := 0.0
			if i < len(s.Values) {
				v = s.Values[i]
			}
			if v <= 0 {
				continue
			}

			segment := v / maxTotal * barArea
			setFill(pdf, s.Color)
			pdf.Rect(x, y, segment, rowHeight, "F")
			x += segment
		}

		if totals[i] > 0 {
			pdf.SetFont("Helvetica", "", 7)
			pdf.Text(x+1.5, y+3.5, fmt.Sprintf("%.0f", totals[i]))
		}

		y += rowHeight + rowGap
	}

	pdf.SetY(y + rowGap)
}

// DrawDonut renders a completion donut centered at (x, y) with the percent
// in the middle and the label above it. The percent is clamped to [0,100].
func DrawDonut(pdf *fpdf.Fpdf, x, y, radius float64, label string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	setText(pdf, "#4b5f5a")
	pdf.SetFont("Helvetica", "B", 7)
	pdf.Text(x-pdf.GetStringWidth(label)/2, y-radius-3, label)

	pdf.SetLineWidth(2.5)
	setDraw(pdf, "#9ca3af")
	pdf.Arc(x, y, radius, radius, 0, 0, 360, "D")

	if percent > 0 {
		setDraw(pdf, "#4aa879")
		// Arc angles are counterclockwise from three o'clock; start at
		// twelve and sweep the completed share.
		sweep := float64(percent) / 100 * 360
		pdf.Arc(x, y, radius, radius, 0, 90-sweep, 90, "D")
	}

	pdf.SetLineWidth(0.2)
	setText(pdf, "#1b1f1e")
	pdf.SetFont("Helvetica", "B", 9)
	text := fmt.Sprintf("%d%%", percent)
	pdf.Text(x-pdf.GetStringWidth(text)/2, y+1.5, text)
}

// DrawProgressBar renders a thin horizontal gauge used on summary stat
// cards. The ratio is clamped to [0,1].
func DrawProgressBar(pdf *fpdf.Fpdf, x, y, width float64, ratio float64) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	const barHeight = 2.5

	setFill(pdf, "#eef5f2")
	pdf.Rect(x, y, width, barHeight, "F")

	if ratio > 0 {
		setFill(pdf, "#3f8f7b")
		pdf.Rect(x, y, width*ratio, barHeight, "F")
	}

	setFill(pdf, "#3f8f7b")
	pdf.Circle(x+width*ratio, y+barHeight/2, 1.6, "F")
}
