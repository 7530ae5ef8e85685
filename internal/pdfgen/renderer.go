// package pdfgen renders the consolidated weekly report into a PDF file
// under the service data directory.
package pdfgen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/chart"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const (
	inkHex   = "#1b1f1e"
	mutedHex = "#4b5f5a"
	cardHex  = "#f7fbf9"
	lineHex  = "#e2ece7"
	brandHex = "#3f8f7b"
)

// Renderer writes consolidated reports as PDF files under <dataDir>/rsd.
// It satisfies service.Renderer.
type Renderer struct {
	log     *slog.Logger
	dataDir string
}

var _ service.Renderer = (*Renderer)(nil)

func NewRenderer(log *slog.Logger, dataDir string) *Renderer {
	return &Renderer{log: log, dataDir: dataDir}
}

// Render builds the weekly PDF and returns the path it was written to. The
// file name must be a bare name; anything that would escape the reports
// directory is rejected.
func (r *Renderer) Render(cons domain.Consolidation, insights *service.Insights, summary string, fileName string) (string, error) {
	const op = "internal.pdfgen.Renderer.Render"

	log := r.log.With(
		slog.String("op", op),
		slog.String("week_id", cons.WeekID),
		slog.String("file_name", fileName),
	)

	if fileName == "" || fileName != filepath.Base(fileName) || strings.Contains(fileName, "..") {
		return "", fmt.Errorf("%s: %w: file name %q escapes the reports directory", op, apperrors.ErrInvalidRequest, fileName)
	}

	doc := newDocument()
	doc.cover(cons, summary)
	doc.taskSummary(cons)
	if insights != nil {
		doc.insightsSection(insights)
	}
	doc.developerCards(cons)

	if err := doc.pdf.Error(); err != nil {
		return "", fmt.Errorf("%s: build pdf: %w", op, err)
	}

	outDir := filepath.Join(r.dataDir, "rsd")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("%s: create reports dir: %w", op, err)
	}

	target := filepath.Join(outDir, fileName)
	if err := doc.pdf.OutputFileAndClose(target); err != nil {
		log.Error("failed to write pdf", sl.Err(err))

		return "", fmt.Errorf("%s: write pdf: %w", op, err)
	}

	log.Info("pdf rendered", slog.String("path", target))

	return target, nil
}

// document wraps the PDF under construction. All text goes through tr so
// accented report content survives the core-font encoding.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument() *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) textColor(hex string) {
	c := chart.Hex(hex)
	d.pdf.SetTextColor(c.R, c.G, c.B)
}

func (d *document) fillColor(hex string) {
	c := chart.Hex(hex)
	d.pdf.SetFillColor(c.R, c.G, c.B)
}

func (d *document) drawColor(hex string) {
	c := chart.Hex(hex)
	d.pdf.SetDrawColor(c.R, c.G, c.B)
}

func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()

	return w - left - right
}

// usableHeight is the vertical space between the top margin and the page
// break trigger.
func (d *document) usableHeight() float64 {
	_, h := d.pdf.GetPageSize()
	_, top, _, bottom := d.pdf.GetMargins()

	return h - top - bottom - 3
}

func (d *document) breakY() float64 {
	_, h := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()

	return h - bottom - 3
}

// ensure starts a new page when a block of the given height does not fit
// in the remaining space but would fit on a fresh page.
func (d *document) ensure(height float64) {
	if height > d.usableHeight() {
		return
	}

	if d.pdf.GetY()+height > d.breakY() {
		d.pdf.AddPage()
	}
}

func (d *document) heading(text string) {
	d.textColor(inkHex)
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(0, 9, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *document) subheading(text string) {
	d.textColor(inkHex)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(0, 7, d.tr(text), "", 1, "L", false, 0, "")
}

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldText(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}

	return strings.ToLower(strings.TrimSpace(out))
}

// CardTitle names a team section. When the team name already mentions the
// project (ignoring case and accents) the project prefix is dropped.
func CardTitle(projectName, teamName string) string {
	project := strings.TrimSpace(projectName)
	team := strings.TrimSpace(teamName)

	if team == "" {
		return project
	}

	if project == "" || strings.Contains(foldText(team), foldText(project)) {
		return team
	}

	return project + " — " + team
}
