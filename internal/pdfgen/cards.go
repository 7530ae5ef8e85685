package pdfgen

import (
	"fmt"
	"strings"

	"github.com/rsd-team/rsd-service/internal/domain"
)

const (
	cardPad     = 5.0
	cardGap     = 4.0
	cardHeaderH = 7.0
	cardFooterH = 5.0
	blockLabelH = 4.5
	blockLineH  = 4.4
	blockGap    = 1.5
)

type cardBlock struct {
	label string
	text  string
}

func reportBlocks(rep domain.Report) []cardBlock {
	blocks := []cardBlock{{"Summary", rep.Summary}}

	if strings.TrimSpace(rep.Progress) != "" {
		blocks = append(blocks, cardBlock{"Progress", rep.Progress})
	}

	if rep.HadDifficulties {
		text := strings.TrimSpace(rep.DifficultiesDescription)
		if text == "" {
			text = "Difficulties reported without a description."
		}
		blocks = append(blocks, cardBlock{"Difficulties", text})
	}

	if strings.TrimSpace(rep.NextSteps) != "" {
		blocks = append(blocks, cardBlock{"Next steps", rep.NextSteps})
	}

	if rep.HadDeliveries {
		text := strings.TrimSpace(rep.DeliveriesNotes)
		if text == "" {
			text = "Deliveries recorded."
		}
		if len(rep.DeliveriesLinks) > 0 {
			text += "\n" + strings.Join(rep.DeliveriesLinks, "\n")
		}
		blocks = append(blocks, cardBlock{"Deliveries", text})
	}

	return blocks
}

func taskLine(task domain.Task) string {
	details := task.StartDate.Format("02/01")

	if task.EndDate != nil {
		details += " to " + task.EndDate.Format("02/01")
		unit := "days"
		if task.DaysSpent == 1 {
			unit = "day"
		}
		details += fmt.Sprintf(", %d %s", task.DaysSpent, unit)
	} else {
		details += ", in progress"
	}

	if task.Difficulty != nil {
		details += ", difficulty " + formatPoints(*task.Difficulty)
	}

	return fmt.Sprintf("- %s (%s)", task.Title, details)
}

// cardHeight walks the same blocks reportCard draws and sums their heights,
// so the page-break decision matches the rendered output.
func (d *document) cardHeight(rep domain.Report, width float64) float64 {
	textW := width - 2*cardPad
	height := cardPad + cardHeaderH

	for _, block := range reportBlocks(rep) {
		d.pdf.SetFont("Helvetica", "", 9)
		height += blockLabelH
		height += float64(len(d.pdf.SplitText(d.tr(block.text), textW))) * blockLineH
		height += blockGap
	}

	if len(rep.Tasks) > 0 {
		height += blockLabelH
		d.pdf.SetFont("Helvetica", "", 8.5)
		for _, task := range rep.Tasks {
			height += float64(len(d.pdf.SplitText(d.tr(taskLine(task)), textW))) * blockLineH
		}
		height += blockGap
	}

	return height + cardFooterH + cardPad
}

func (d *document) reportCard(rep domain.Report) {
	pdf := d.pdf
	width := d.contentWidth()
	left, _, _, _ := pdf.GetMargins()
	textW := width - 2*cardPad

	height := d.cardHeight(rep, width)
	d.ensure(height + cardGap)

	x := left
	y := pdf.GetY()

	// A card taller than a full page falls back to the automatic page
	// break; the background would not span pages, so it is skipped.
	boxed := height <= d.usableHeight()
	if boxed {
		d.fillColor(cardHex)
		pdf.RoundedRect(x, y, width, height, 3, "1234", "F")
	}

	d.fillColor(brandHex)
	pdf.Rect(x, y, 1.4, cardHeaderH+cardPad, "F")

	pdf.SetXY(x+cardPad, y+cardPad)
	d.textColor(inkHex)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(textW, cardHeaderH-2, d.tr(rep.DeveloperName), "", 1, "L", false, 0, "")
	pdf.SetY(y + cardPad + cardHeaderH)

	for _, block := range reportBlocks(rep) {
		pdf.SetX(x + cardPad)
		d.textColor(mutedHex)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(textW, blockLabelH, d.tr(strings.ToUpper(block.label)), "", 1, "L", false, 0, "")

		pdf.SetX(x + cardPad)
		d.textColor(inkHex)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(textW, blockLineH, d.tr(block.text), "", "L", false)
		pdf.SetY(pdf.GetY() + blockGap)
	}

	if len(rep.Tasks) > 0 {
		pdf.SetX(x + cardPad)
		d.textColor(mutedHex)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(textW, blockLabelH, "TASKS", "", 1, "L", false, 0, "")

		d.textColor(inkHex)
		pdf.SetFont("Helvetica", "", 8.5)
		for _, task := range rep.Tasks {
			pdf.SetX(x + cardPad)
			pdf.MultiCell(textW, blockLineH, d.tr(taskLine(task)), "", "L", false)
		}
		pdf.SetY(pdf.GetY() + blockGap)
	}

	pdf.SetX(x + cardPad)
	d.textColor(mutedHex)
	pdf.SetFont("Helvetica", "I", 8)
	footer := fmt.Sprintf("Self-assessment %d/5, next-week confidence %d/5", rep.SelfAssessment, rep.NextWeekExpectation)
	pdf.CellFormat(textW, cardFooterH, d.tr(footer), "", 1, "L", false, 0, "")

	if boxed {
		pdf.SetY(y + height + cardGap)
	} else {
		pdf.Ln(cardGap)
	}
}

func (d *document) developerCards(cons domain.Consolidation) {
	if len(cons.Projects) == 0 {
		return
	}

	d.pdf.AddPage()
	d.heading("Team reports")

	for _, project := range cons.Projects {
		for _, team := range project.Teams {
			d.ensure(40)
			d.subheading(CardTitle(project.ProjectName, team.TeamName))

			d.textColor(mutedHex)
			d.pdf.SetFont("Helvetica", "", 8)
			meta := fmt.Sprintf("%d reports, %d tasks, %d deliveries",
				team.Stats.ReportCount, team.Stats.TaskCount, team.Stats.DeliveryCount)
			d.pdf.CellFormat(0, 5, d.tr(meta), "", 1, "L", false, 0, "")
			d.pdf.Ln(1)

			for _, rep := range team.Reports {
				d.reportCard(rep)
			}

			d.pdf.Ln(2)
		}
	}
}
