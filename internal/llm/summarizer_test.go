package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testCons() domain.Consolidation {
	return domain.Consolidation{
		WeekID:      "2026-W05",
		PeriodLabel: "26/01 to 01/02/2026",
		Projects: []domain.ProjectGroup{
			{
				ProjectName: "AgroSmart",
				Teams: []domain.TeamGroup{
					{
						TeamName: "Backend",
						Reports: []domain.Report{
							{DeveloperName: "Ana", TeamName: "Backend", Progress: "Shipped importer", NextSteps: "Production rollout"},
						},
						Stats: domain.Aggregates{ReportCount: 1, TaskCount: 2, DeliveryCount: 1},
					},
				},
			},
		},
		Stats: domain.Aggregates{ReportCount: 1, TaskCount: 2, DeliveryCount: 1, DifficultyCount: 1},
	}
}

const acceptableText = "The week closed with steady progress across the ingestion pipeline, and the importer " +
	"reached staging with its retry logic in place. One delivery was recorded and validated.\n\n" +
	"The main risk remains the pending production rollout, which depends on an infrastructure review. " +
	"The team plans to close it early next week."

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) (*Summarizer, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	s := NewSummarizer(discardLogger(), config.LLM{APIURL: ts.URL, Model: "test-model", APIKey: "sk-test"})
	s.httpClient = ts.Client()

	return s, ts
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()

	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
}

func TestSummarizeUnconfiguredFallsBack(t *testing.T) {
	s := NewSummarizer(discardLogger(), config.LLM{})

	summary, err := s.Summarize(context.Background(), testCons())
	require.NoError(t, err)

	assert.Contains(t, summary, "Period: 26/01 to 01/02/2026")
	assert.Contains(t, summary, "Backend: 1 reports, 2 tasks, 1 deliveries")
	assert.Len(t, strings.Split(summary, "\n\n"), 2)
}

func TestSummarizeUsesModelOutput(t *testing.T) {
	var gotPath string
	var gotBody chatRequest

	s, _ := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		chatReply(t, w, acceptableText)
	})

	summary, err := s.Summarize(context.Background(), testCons())
	require.NoError(t, err)

	assert.Equal(t, acceptableText, summary)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Contains(t, gotBody.Messages[0].Content, "Reports: 1")
}

func TestSummarizeRetriesVariantsThenFallsBack(t *testing.T) {
	calls := 0

	s, _ := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		chatReply(t, w, "Too short.")
	})

	summary, err := s.Summarize(context.Background(), testCons())
	require.NoError(t, err)

	assert.Equal(t, maxPromptVariants, calls)
	assert.Contains(t, summary, "Period:")
}

func TestSummarizeServerErrorFallsBack(t *testing.T) {
	calls := 0

	s, _ := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "boom sk-verysecretkey"}})
	})

	summary, err := s.Summarize(context.Background(), testCons())
	require.NoError(t, err)

	// A hard failure aborts instead of cycling through prompt variants.
	assert.Equal(t, 1, calls)
	assert.Contains(t, summary, "Period:")
}

func TestAcceptableSummary(t *testing.T) {
	longParagraph := strings.Repeat("Progress on the data pipeline continued. ", 4)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"too short", "All good.\n\nNothing to report.", false},
		{"greeting opener", "Dear team,\n\n" + longParagraph + "\n\n" + longParagraph, false},
		{"heading opener", "Executive summary\n\n" + longParagraph + "\n\n" + longParagraph, false},
		{"single paragraph", longParagraph + longParagraph, false},
		{"acceptable", acceptableText, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, acceptableSummary(tc.text))
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1", normalizeBaseURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/v1", normalizeBaseURL("https://api.example.com/"))
	assert.Equal(t, "https://api.example.com/v1", normalizeBaseURL("https://api.example.com/v1"))
}

func TestRedactSecrets(t *testing.T) {
	redacted := redactSecrets("auth failed for sk-abc123XYZ with token deadbeefdeadbeefdeadbeefdeadbeef99")

	assert.NotContains(t, redacted, "sk-abc123XYZ")
	assert.NotContains(t, redacted, "deadbeef")
	assert.Contains(t, redacted, "[REDACTED]")
}
