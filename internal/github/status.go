package github

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status buckets, in board order. Boards name their columns freely, so
// statuses are matched by keyword; the keyword lists include the Portuguese
// column names seen in the wild.
const (
	StatusBacklog   = "backlog"
	StatusBlocked   = "blocked"
	StatusProgress  = "progress"
	StatusReview    = "review"
	StatusDone      = "done"
	StatusDuplicate = "duplicate"
	StatusCancelled = "cancelled"
	StatusNone      = "no_status"
)

var statusKeywords = []struct {
	bucket   string
	keywords []string
}{
	{StatusCancelled, []string{"cancel", "canceled", "cancelled"}},
	{StatusDuplicate, []string{"duplicate", "duplicado"}},
	{StatusDone, []string{"done", "concl", "closed", "finalizado"}},
	{StatusReview, []string{"review", "revis", "qa"}},
	{StatusProgress, []string{"progress", "andamento", "doing", "wip"}},
	{StatusBlocked, []string{"blocked", "bloqueado", "imped"}},
	{StatusBacklog, []string{"backlog", "todo", "pendente", "to do", "ready", "planning"}},
}

// BucketStatus maps a free-form board column name to one of the known
// status buckets. Unmatched non-empty statuses fall back to backlog.
func BucketStatus(status string) string {
	normalized := strings.ToLower(strings.TrimSpace(status))
	if normalized == "" {
		return StatusNone
	}

	for _, entry := range statusKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(normalized, keyword) {
				return entry.bucket
			}
		}
	}

	return StatusBacklog
}

var numericRe = regexp.MustCompile(`-?\d+(?:[\.,]\d+)?`)

// parseNumericFromText extracts the first number from a free-form value,
// accepting a comma as the decimal separator. Returns 0 when none is found.
func parseNumericFromText(value string) float64 {
	match := numericRe.FindString(value)
	if match == "" {
		return 0
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0
	}

	return v
}

// difficultyScale maps t-shirt sizes and priority labels to effort points.
// Order matters: "XS" and "XL" must be tried before "S" and "L".
var difficultyScale = []struct {
	prefix string
	value  float64
}{
	{"XS", 1},
	{"XL", 5},
	{"S", 2},
	{"M", 3},
	{"L", 4},
	{"P0", 5},
	{"P1", 4},
	{"P2", 3},
	{"P3", 2},
	{"P4", 1},
}

// MapDifficultyLabel converts a difficulty label to its numeric effort
// value. Labels that are not on the scale are parsed as plain numbers.
func MapDifficultyLabel(label string) float64 {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	if normalized == "" {
		return 0
	}

	for _, entry := range difficultyScale {
		if strings.HasPrefix(normalized, entry.prefix) {
			return entry.value
		}
	}

	return parseNumericFromText(label)
}

var accentStripper = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeText lowercases a value and strips diacritics so that milestone
// names match regardless of accents.
func normalizeText(value string) string {
	stripped, _, err := transform.String(accentStripper, value)
	if err != nil {
		stripped = value
	}

	return strings.ToLower(strings.TrimSpace(stripped))
}

// milestoneMatches reports whether a milestone name contains the target,
// ignoring case and accents.
func milestoneMatches(value, target string) bool {
	if value == "" || target == "" {
		return false
	}

	return strings.Contains(normalizeText(value), normalizeText(target))
}

func fieldMatch(name, target string) bool {
	if target == "" {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(target))
}
