// package llm produces the executive summary for a consolidated week. It
// talks to an OpenAI-compatible chat-completions endpoint when one is
// configured and falls back to a deterministic summary built from the
// aggregates otherwise.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/service"
)

const (
	maxPromptVariants = 3
	maxOutputTokens   = 360

	// Acceptance thresholds for a generated summary.
	minSummaryLength   = 220
	minParagraphLength = 60
)

var (
	apiKeyRe  = regexp.MustCompile(`sk-[A-Za-z0-9_-]+`)
	hexAuthRe = regexp.MustCompile(`(?i)[a-f0-9]{32,}`)
)

// Summarizer satisfies service.Summarizer.
type Summarizer struct {
	log        *slog.Logger
	httpClient *http.Client
	apiURL     string
	model      string
	apiKey     string
}

var _ service.Summarizer = (*Summarizer)(nil)

func NewSummarizer(log *slog.Logger, cfg config.LLM) *Summarizer {
	return &Summarizer{
		log:        log,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

// Summarize returns two executive-summary paragraphs separated by a blank
// line. It never fails: when the model is unconfigured, unreachable or keeps
// producing unacceptable text, the deterministic fallback is returned.
func (s *Summarizer) Summarize(ctx context.Context, cons domain.Consolidation) (string, error) {
	const op = "internal.llm.Summarizer.Summarize"

	log := s.log.With(slog.String("op", op), slog.String("week_id", cons.WeekID))

	if s.apiURL == "" || s.model == "" || s.apiKey == "" {
		return fallbackSummary(cons), nil
	}

	for variant := 0; variant < maxPromptVariants; variant++ {
		content, err := s.complete(ctx, buildPrompt(cons, variant))
		if err != nil {
			log.Warn("llm summary failed", slog.String("error", redactSecrets(err.Error())))
			break
		}

		if acceptableSummary(content) {
			return strings.TrimSpace(content), nil
		}

		log.Debug("llm summary rejected", slog.Int("variant", variant))
	}

	return fallbackSummary(cons), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxOutputTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := normalizeBaseURL(s.apiURL) + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := "unexpected status"
		if decoded.Error != nil {
			message = decoded.Error.Message
		}

		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, message)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}

// normalizeBaseURL appends /v1 unless the configured URL already ends
// with it.
func normalizeBaseURL(raw string) string {
	url := strings.TrimRight(raw, "/")
	if strings.HasSuffix(url, "/v1") {
		return url
	}

	return url + "/v1"
}

func redactSecrets(text string) string {
	text = apiKeyRe.ReplaceAllString(text, "[REDACTED]")

	return hexAuthRe.ReplaceAllString(text, "[REDACTED]")
}

var bannedOpeners = []string{"dear", "hello", "hi ", "prezados", "ola", "olá", "executive summary", "resumo executivo"}

// acceptableSummary rejects text that is too short, opens with a greeting
// or a redundant heading, or does not split into two real paragraphs.
func acceptableSummary(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" || len(normalized) < minSummaryLength {
		return false
	}

	for _, opener := range bannedOpeners {
		if strings.HasPrefix(normalized, opener) {
			return false
		}
	}

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	if len(paragraphs) < 2 {
		return false
	}

	for _, p := range paragraphs[:2] {
		if len(p) < minParagraphLength {
			return false
		}
	}

	return true
}

func teamBreakdown(cons domain.Consolidation) []string {
	var lines []string

	for _, project := range cons.Projects {
		for _, team := range project.Teams {
			name := team.TeamName
			if len(cons.Projects) > 1 {
				name = project.ProjectName + " / " + team.TeamName
			}

			lines = append(lines, fmt.Sprintf("%s: %d reports, %d tasks, %d deliveries",
				name, team.Stats.ReportCount, team.Stats.TaskCount, team.Stats.DeliveryCount))
		}
	}

	return lines
}

func safeText(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}

	return fallback
}

func buildPrompt(cons domain.Consolidation, variant int) string {
	var reportLines []string

	for _, report := range cons.Reports() {
		header := report.DeveloperName
		if report.TeamName != "" {
			header = fmt.Sprintf("%s (%s)", report.DeveloperName, report.TeamName)
		}

		difficulties := "(no difficulties reported)"
		if report.HadDifficulties {
			difficulties = safeText(report.DifficultiesDescription, "(difficulties reported without a description)")
		}

		reportLines = append(reportLines, strings.Join([]string{
			"- " + header,
			"  Progress: " + safeText(report.Progress, "(no progress reported)"),
			"  Difficulties: " + difficulties,
			"  Next steps: " + safeText(report.NextSteps, "(no next steps reported)"),
		}, "\n"))
	}

	reportsBlock := strings.Join(reportLines, "\n")
	if reportsBlock == "" {
		reportsBlock = "- (no reports)"
	}

	var teamLines []string
	for _, line := range teamBreakdown(cons) {
		teamLines = append(teamLines, "- "+line)
	}
	teamsBlock := strings.Join(teamLines, "\n")
	if teamsBlock == "" {
		teamsBlock = "- (no teams)"
	}

	period := cons.PeriodLabel
	if period == "" {
		period = cons.WeekID
	}

	basePrompt := fmt.Sprintf(
		"Write an executive summary in 2 short paragraphs (2 to 3 sentences each), "+
			"with no greetings and no heading. The text must be objective and consistent "+
			"with the reports, highlighting progress, deliveries and risks. "+
			"Use a professional and direct tone.\n\n"+
			"Period: %s\nReports: %d\nTasks: %d\nDeliveries: %d\nDifficulties: %d\n"+
			"Progress by team:\n%s\n\nDetailed reports:\n%s\n",
		period, cons.Stats.ReportCount, cons.Stats.TaskCount,
		cons.Stats.DeliveryCount, cons.Stats.DifficultyCount,
		teamsBlock, reportsBlock,
	)

	switch variant {
	case 1:
		return "Summarize the week in 2 short paragraphs, no greetings. " +
			"Paragraph 1: progress and deliveries. Paragraph 2: risks, difficulties and next steps.\n\n" +
			basePrompt
	case 2:
		return "Write a concise executive summary (2 paragraphs) focused on outcomes and points of " +
			"attention, without salutations. Avoid vague wording and do not invent facts.\n\n" +
			basePrompt
	default:
		return basePrompt
	}
}

// fallbackSummary builds a deterministic two-paragraph summary from the
// consolidation aggregates.
func fallbackSummary(cons domain.Consolidation) string {
	period := cons.PeriodLabel
	if period == "" {
		period = cons.WeekID
	}

	teams := strings.Join(teamBreakdown(cons), "; ")
	if teams == "" {
		teams = "no per-team breakdown available"
	}

	first := fmt.Sprintf(
		"Period: %s. %d reports were submitted covering %d tasks, with %d deliveries recorded.",
		period, cons.Stats.ReportCount, cons.Stats.TaskCount, cons.Stats.DeliveryCount)

	second := fmt.Sprintf(
		"%d difficulties were reported; the main risks should be handled by the teams listed: %s. "+
			"Prioritizing backlog items and unblocking dependencies that affect deliveries is recommended.",
		cons.Stats.DifficultyCount, teams)

	return first + "\n\n" + second
}
