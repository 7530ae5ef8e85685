package config

import (
	"testing"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectsJSON = `{
	"agrosmart": {
		"name": "Agrosmart",
		"teams": {
			"backend":  {"name": "Agrosmart Backend", "members": ["Ana", "Bruno"]},
			"frontend": {"name": "Frontend", "members": ["Carla"]}
		},
		"github_project_id": "PVT_kwDO123"
	},
	"solo": {"name": "Solo Project", "members": ["Diego"]}
}`

func TestParseProjects_ResolveProjectAndTeam(t *testing.T) {
	set, err := ParseProjects(projectsJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"agrosmart", "solo"}, set.Slugs())

	slug, project, err := set.Project("agrosmart")
	require.NoError(t, err)
	assert.Equal(t, "agrosmart", slug)
	assert.Equal(t, "Agrosmart", project.Name)
	assert.Equal(t, "PVT_kwDO123", project.GitHubProjectID)

	// Empty slug picks the first project in sorted order.
	slug, _, err = set.Project("")
	require.NoError(t, err)
	assert.Equal(t, "agrosmart", slug)

	_, _, err = set.Project("nope")
	assert.ErrorIs(t, err, apperrors.ErrUnknownProject)

	teamSlug, team, err := set.Team("agrosmart", "backend")
	require.NoError(t, err)
	assert.Equal(t, "backend", teamSlug)
	assert.Equal(t, "Agrosmart Backend", team.Name)
	assert.True(t, team.HasMember("Ana"))
	assert.False(t, team.HasMember("Carla"))

	// Team required when a project has multiple teams.
	_, _, err = set.Team("agrosmart", "")
	assert.ErrorIs(t, err, apperrors.ErrAmbiguousTeam)

	_, _, err = set.Team("agrosmart", "mobile")
	assert.ErrorIs(t, err, apperrors.ErrUnknownTeam)
}

func TestParseProjects_ImplicitDefaultTeam(t *testing.T) {
	set, err := ParseProjects(projectsJSON)
	require.NoError(t, err)

	teamSlug, team, err := set.Team("solo", "")
	require.NoError(t, err)
	assert.Equal(t, "default", teamSlug)
	assert.Equal(t, "Solo Project", team.Name)
	assert.Equal(t, []string{"Diego"}, team.Members)
}

func TestParseProjects_Empty(t *testing.T) {
	set, err := ParseProjects("")
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	_, _, err = set.Project("")
	assert.ErrorIs(t, err, apperrors.ErrUnknownProject)
}

func TestParseChannels_ResolveWebhook(t *testing.T) {
	raw := `{
		"agrosmart": {"channels": [
			{"name": "disabled", "enabled": false, "webhook_url": "https://hooks.example/dead"},
			{"name": "backend-only", "enabled": true, "webhook_url": "https://hooks.example/backend", "team_slug": "backend"},
			{"name": "general", "enabled": true, "webhook_url": "https://hooks.example/general"}
		]}
	}`

	set, err := ParseChannels(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example/backend", set.ResolveWebhook("agrosmart", "backend"))
	assert.Equal(t, "https://hooks.example/backend", set.ResolveWebhook("agrosmart", ""))
	assert.Equal(t, "", set.ResolveWebhook("agrosmart", "frontend"))
	assert.Equal(t, "", set.ResolveWebhook("unknown", ""))
}

func TestParseMilestoneURLs(t *testing.T) {
	raw := `{
		"flat":    ["https://github.com/acme/app/milestone/1"],
		"monthly": {
			"2026-01": ["https://github.com/acme/app/milestone/2"],
			"2026-02": ["https://github.com/acme/app/milestone/3"]
		}
	}`

	set, err := ParseMilestoneURLs(raw)
	require.NoError(t, err)

	assert.True(t, set.Configured("flat"))
	assert.False(t, set.Configured("unknown"))

	urls, month := set.Resolve("flat", "")
	assert.Equal(t, []string{"https://github.com/acme/app/milestone/1"}, urls)
	assert.Empty(t, month)

	// Latest month wins when none is requested.
	urls, month = set.Resolve("monthly", "")
	assert.Equal(t, "2026-02", month)
	assert.Equal(t, []string{"https://github.com/acme/app/milestone/3"}, urls)

	urls, month = set.Resolve("monthly", "2026-01")
	assert.Equal(t, "2026-01", month)
	assert.Equal(t, []string{"https://github.com/acme/app/milestone/2"}, urls)

	// Unknown month falls back to the latest.
	_, month = set.Resolve("monthly", "2030-12")
	assert.Equal(t, "2026-02", month)

	assert.Equal(t, []string{"2026-01", "2026-02"}, set.Months("monthly"))
}
