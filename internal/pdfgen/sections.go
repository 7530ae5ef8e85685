package pdfgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rsd-team/rsd-service/internal/chart"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/internal/week"
)

func (d *document) cover(cons domain.Consolidation, summary string) {
	pdf := d.pdf

	d.textColor(inkHex)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 11, d.tr("Weekly status report"), "", 1, "L", false, 0, "")

	d.textColor(mutedHex)
	pdf.SetFont("Helvetica", "", 11)

	period := cons.PeriodLabel
	if period == "" {
		period = cons.WeekID
	}
	pdf.CellFormat(0, 6, d.tr(fmt.Sprintf("%s (%s)", period, cons.WeekID)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if paragraphs := splitParagraphs(summary); len(paragraphs) > 0 {
		d.subheading("Executive summary")
		d.textColor(inkHex)
		pdf.SetFont("Helvetica", "", 10)

		for _, p := range paragraphs {
			pdf.MultiCell(0, 5, d.tr(p), "", "L", false)
			pdf.Ln(2)
		}

		pdf.Ln(2)
	}

	d.statCards(cons.Stats)
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

type statCard struct {
	title   string
	value   string
	subtext string
	ratio   float64
}

func (d *document) statCards(stats domain.Aggregates) {
	reportsOf := fmt.Sprintf("of %d reports", stats.ReportCount)
	denominator := stats.ReportCount
	if denominator == 0 {
		denominator = 1
	}

	cards := []statCard{
		{"Deliveries recorded", strconv.Itoa(stats.DeliveryCount), reportsOf, float64(stats.DeliveryCount) / float64(denominator)},
		{"Self-assessment", fmt.Sprintf("%.1f/5", stats.AvgSelfAssessment), "overall average", stats.AvgSelfAssessment / 5},
		{"Next-week confidence", fmt.Sprintf("%.1f/5", stats.AvgNextWeek), "average expectation", stats.AvgNextWeek / 5},
		{"Difficulties recorded", strconv.Itoa(stats.DifficultyCount), reportsOf, float64(stats.DifficultyCount) / float64(denominator)},
	}

	const (
		gap   = 5.0
		cardH = 28.0
	)

	pdf := d.pdf
	cardW := (d.contentWidth() - gap) / 2
	left, _, _, _ := pdf.GetMargins()

	for row := 0; row < 2; row++ {
		d.ensure(cardH + gap)
		y := pdf.GetY()

		for col := 0; col < 2; col++ {
			card := cards[row*2+col]
			x := left + float64(col)*(cardW+gap)

			d.fillColor(cardHex)
			pdf.RoundedRect(x, y, cardW, cardH, 3, "1234", "F")

			d.textColor(mutedHex)
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetXY(x+5, y+4)
			pdf.CellFormat(cardW-10, 4, d.tr(card.title), "", 0, "L", false, 0, "")

			d.textColor(inkHex)
			pdf.SetFont("Helvetica", "B", 15)
			pdf.SetXY(x+5, y+9)
			pdf.CellFormat(cardW-10, 7, d.tr(card.value), "", 0, "L", false, 0, "")

			d.textColor(mutedHex)
			pdf.SetFont("Helvetica", "", 7)
			pdf.SetXY(x+5, y+16)
			pdf.CellFormat(cardW-10, 4, d.tr(card.subtext), "", 0, "L", false, 0, "")

			chart.DrawProgressBar(pdf, x+5, y+22, cardW-10, card.ratio)
		}

		pdf.SetY(y + cardH + gap)
	}
}

type taskRef struct {
	title string
	url   string
}

func addUniqueTask(list []taskRef, task domain.Task) []taskRef {
	for _, existing := range list {
		if existing.url == task.TaskURL {
			return list
		}
	}

	title := task.Title
	if title == "" {
		title = task.TaskURL
	}

	return append(list, taskRef{title: title, url: task.TaskURL})
}

// taskSummary lists the tasks touched in the reported week: started during
// the week, finished during the week, and carried over from before it.
func (d *document) taskSummary(cons domain.Consolidation) {
	weekStart, weekEnd, err := week.Range(cons.WeekID)
	if err != nil {
		return
	}

	var worked, completed, carryover []taskRef
	var durations []int

	inWeek := func(t time.Time) bool {
		return !t.Before(weekStart) && !t.After(weekEnd)
	}

	for _, report := range cons.Reports() {
		for _, task := range report.Tasks {
			if task.TaskURL == "" {
				continue
			}

			if task.EndDate != nil && task.DaysSpent >= 0 {
				durations = append(durations, task.DaysSpent)
			}

			if inWeek(task.StartDate) {
				worked = addUniqueTask(worked, task)
			}
			if task.EndDate != nil && inWeek(*task.EndDate) {
				completed = addUniqueTask(completed, task)
			}
			if task.StartDate.Before(weekStart) && (task.EndDate == nil || !task.EndDate.Before(weekStart)) {
				carryover = addUniqueTask(carryover, task)
			}
		}
	}

	if len(worked) == 0 && len(completed) == 0 && len(carryover) == 0 {
		return
	}

	d.ensure(30)
	d.heading("Week at a glance")

	d.taskList("Worked on this week", worked)
	d.taskList("Completed this week", completed)
	d.taskList("Carried over", carryover)

	if len(durations) > 0 {
		sum, max := 0, 0
		for _, days := range durations {
			sum += days
			if days > max {
				max = days
			}
		}
		avg := float64(sum) / float64(len(durations))

		d.textColor(mutedHex)
		d.pdf.SetFont("Helvetica", "I", 9)
		d.pdf.CellFormat(0, 5,
			d.tr(fmt.Sprintf("Average completion: %.1f days (max %d, across %d tasks)", avg, max, len(durations))),
			"", 1, "L", false, 0, "")
	}

	d.pdf.Ln(3)
}

func (d *document) taskList(title string, tasks []taskRef) {
	if len(tasks) == 0 {
		return
	}

	pdf := d.pdf

	d.ensure(7 + float64(len(tasks))*5)
	d.subheading(title)

	pdf.SetFont("Helvetica", "", 9)
	for _, task := range tasks {
		d.textColor(inkHex)
		pdf.MultiCell(0, 4.6, d.tr("- "+task.title), "", "L", false)

		if task.url != task.title {
			d.textColor(mutedHex)
			pdf.SetFont("Helvetica", "", 7)
			pdf.SetX(pdf.GetX() + 4)
			pdf.MultiCell(0, 3.6, task.url, "", "L", false)
			pdf.SetFont("Helvetica", "", 9)
		}
	}

	pdf.Ln(2)
}

func (d *document) insightsSection(insights *service.Insights) {
	pdf := d.pdf

	pdf.AddPage()
	d.heading("Project insights")

	if insights.CurrentIteration != "" {
		d.textColor(mutedHex)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, d.tr("Current iteration: "+insights.CurrentIteration), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	if insights.Burnup != nil {
		d.ensure(80)
		chart.DrawLine(pdf, *insights.Burnup)
		pdf.Ln(4)
	}

	if insights.WeeklyChart != nil {
		d.ensure(80)
		chart.DrawBar(pdf, *insights.WeeklyChart)
		pdf.Ln(4)
	}

	if insights.Weekly != nil {
		d.statusTable(*insights.Weekly)
	}

	if insights.Total != nil {
		d.effortTable(*insights.Total)
	}

	if insights.LabelsChart != nil {
		height := 20 + float64(len(insights.LabelsChart.Labels))*6
		d.ensure(height)
		chart.DrawStackedBar(pdf, *insights.LabelsChart)
		pdf.Ln(4)
	}

	if insights.Milestones != nil {
		d.milestoneSection(*insights.Milestones)
	}
}

func (d *document) tableRow(widths []float64, cells []string, bold bool) {
	pdf := d.pdf

	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 8)

	d.drawColor(lineHex)
	for i, cell := range cells {
		align := "C"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, d.tr(cell), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func (d *document) statusTable(table service.StatusTable) {
	d.ensure(22)
	d.subheading("Weekly progress")

	cols := 7
	w := d.contentWidth() / float64(cols)
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = w
	}

	d.textColor(inkHex)
	d.tableRow(widths, []string{"Backlog", "Blocked", "In progress", "In review", "Done", "Done %", "Done+review %"}, true)
	d.tableRow(widths, []string{
		strconv.Itoa(table.Backlog),
		strconv.Itoa(table.Blocked),
		strconv.Itoa(table.Progress),
		strconv.Itoa(table.Review),
		strconv.Itoa(table.Done),
		fmt.Sprintf("%d%%", table.DonePercent),
		fmt.Sprintf("%d%%", table.DoneReviewPercent),
	}, false)

	d.pdf.Ln(4)
}

func (d *document) effortTable(table service.EffortTable) {
	d.ensure(28)
	d.subheading("Milestone effort")

	width := d.contentWidth()
	widths := []float64{width * 0.25, width * 0.15, width * 0.15, width * 0.15, width * 0.15, width * 0.15}

	d.textColor(inkHex)
	d.tableRow(widths, []string{"", "Total", "In review", "Done", "Done %", "Done+review %"}, true)
	d.tableRow(widths, []string{
		"Items",
		strconv.Itoa(table.CountTotal),
		strconv.Itoa(table.CountReview),
		strconv.Itoa(table.CountDone),
		fmt.Sprintf("%d%%", table.DoneCountPercent),
		fmt.Sprintf("%d%%", table.DoneReviewCountPercent),
	}, false)
	d.tableRow(widths, []string{
		"Difficulty points",
		formatPoints(table.DifficultyTotal),
		formatPoints(table.DifficultyReview),
		formatPoints(table.DifficultyDone),
		fmt.Sprintf("%d%%", table.DoneDifficultyPercent),
		fmt.Sprintf("%d%%", table.DoneReviewDifficultyPercent),
	}, false)

	d.pdf.Ln(4)
}

func formatPoints(v float64) string {
	if v == float64(int(v)) {
		return strconv.Itoa(int(v))
	}

	return fmt.Sprintf("%.1f", v)
}

func (d *document) milestoneSection(section service.MilestoneSection) {
	pdf := d.pdf

	title := "Milestones"
	if section.Month != "" {
		title = "Milestones - " + section.Month
	}

	d.ensure(40)
	d.heading(title)

	if len(section.Cards) > 0 {
		const (
			radius = 9.0
			cardW  = 34.0
			cardH  = 30.0
		)

		perRow := int(d.contentWidth() / cardW)
		if perRow < 1 {
			perRow = 1
		}

		left, _, _, _ := pdf.GetMargins()
		for i := 0; i < len(section.Cards); i += perRow {
			d.ensure(cardH + 2)
			y := pdf.GetY()

			row := section.Cards[i:]
			if len(row) > perRow {
				row = row[:perRow]
			}

			for j, card := range row {
				x := left + float64(j)*cardW + cardW/2
				chart.DrawDonut(pdf, x, y+cardH/2+2, radius, d.tr(card.Name), card.Percent)
			}

			pdf.SetY(y + cardH + 2)
		}

		pdf.Ln(2)
	}

	if len(section.Rows) > 0 {
		width := d.contentWidth()
		widths := []float64{width * 0.36, width * 0.16, width * 0.16, width * 0.16, width * 0.16}

		d.ensure(8 + float64(len(section.Rows))*6)
		d.textColor(inkHex)
		d.tableRow(widths, []string{"Milestone", "Closed (week)", "Closed (prev.)", "Closed total", "Issues"}, true)

		for _, row := range section.Rows {
			d.tableRow(widths, []string{
				row.Name,
				strconv.Itoa(row.ClosedWeek),
				strconv.Itoa(row.ClosedPrevious),
				strconv.Itoa(row.TotalClosed),
				strconv.Itoa(row.TotalIssues),
			}, false)
		}

		pdf.Ln(4)
	}

	d.statusTable(section.Status)
}
