// package config loads service configuration with cleanenv and decodes the
// JSON-valued environment variables (PROJECTS, PROJECT_TEAMS_CONFIG,
// PROJECT_MILESTONE_URLS) once at startup into immutable lookup structures.
// Handlers receive these lookups explicitly; nothing reads ambient state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rsd-team/rsd-service/internal/apperrors"
)

type Config struct {
	Env     string `yaml:"env" env:"ENV" env-default:"local"`
	BaseURL string `yaml:"base_url" env:"BASE_URL" env-required:"true"`
	DataDir string `yaml:"data_dir" env:"DATA_DIR" env-default:"./data"`

	Postgres Postgres `yaml:"postgres"`
	Server   Server   `yaml:"server"`

	GitHubToken string `yaml:"github_token" env:"GITHUB_TOKEN"`

	LLM LLM `yaml:"llm"`

	ProjectsJSON      string `yaml:"projects" env:"PROJECTS"`
	ChannelsJSON      string `yaml:"project_teams_config" env:"PROJECT_TEAMS_CONFIG"`
	MilestoneURLsJSON string `yaml:"project_milestone_urls" env:"PROJECT_MILESTONE_URLS"`

	Projects      ProjectSet    `yaml:"-" env:"-"`
	Channels      ChannelSet    `yaml:"-" env:"-"`
	MilestoneURLs MilestoneURLs `yaml:"-" env:"-"`
}

type Postgres struct {
	Username        string        `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
}

type Server struct {
	Host    string        `yaml:"host" env:"SERVER_HOST" env-default:"localhost"`
	Port    string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type LLM struct {
	APIURL string `yaml:"api_url" env:"LLM_API_URL"`
	Model  string `yaml:"model" env:"LLM_MODEL"`
	APIKey string `yaml:"api_key" env:"LLM_API_KEY"`
}

// Load reads configuration from CONFIG_PATH when set, otherwise from the
// environment alone, and decodes the JSON lookup maps.
func Load() (*Config, error) {
	var cfg Config

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file does not exist: %w", err)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from env: %w", err)
		}
	}

	if err := cfg.decodeLookups(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) decodeLookups() error {
	projects, err := ParseProjects(c.ProjectsJSON)
	if err != nil {
		return fmt.Errorf("invalid PROJECTS: %w", err)
	}

	channels, err := ParseChannels(c.ChannelsJSON)
	if err != nil {
		return fmt.Errorf("invalid PROJECT_TEAMS_CONFIG: %w", err)
	}

	milestones, err := ParseMilestoneURLs(c.MilestoneURLsJSON)
	if err != nil {
		return fmt.Errorf("invalid PROJECT_MILESTONE_URLS: %w", err)
	}

	c.Projects = projects
	c.Channels = channels
	c.MilestoneURLs = milestones

	return nil
}

// TeamConfig is one team inside a project, with its display name and
// member roster.
type TeamConfig struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// HasMember reports whether the developer is listed on the team.
func (t TeamConfig) HasMember(developer string) bool {
	for _, m := range t.Members {
		if m == developer {
			return true
		}
	}

	return false
}

// ProjectConfig describes one configured project. A project may carry
// explicit teams or a flat member list; in the latter case it resolves to
// a single implicit "default" team named after the project.
type ProjectConfig struct {
	Name            string                `json:"name"`
	Members         []string              `json:"members,omitempty"`
	Teams           map[string]TeamConfig `json:"teams,omitempty"`
	GitHubProjectID string                `json:"github_project_id,omitempty"`
}

// ResolvedTeams returns the project's team map, synthesizing the implicit
// default team when none are configured.
func (p ProjectConfig) ResolvedTeams() map[string]TeamConfig {
	if len(p.Teams) > 0 {
		return p.Teams
	}

	return map[string]TeamConfig{
		"default": {Name: p.Name, Members: p.Members},
	}
}

// ProjectSet is the immutable project lookup built once at startup.
type ProjectSet struct {
	projects map[string]ProjectConfig
	slugs    []string
}

// ParseProjects decodes the PROJECTS JSON map. An empty value yields an
// empty set, not an error.
func ParseProjects(raw string) (ProjectSet, error) {
	set := ProjectSet{projects: map[string]ProjectConfig{}}
	if raw == "" {
		return set, nil
	}

	if err := json.Unmarshal([]byte(raw), &set.projects); err != nil {
		return ProjectSet{}, err
	}

	for slug := range set.projects {
		set.slugs = append(set.slugs, slug)
	}

	sort.Strings(set.slugs)

	return set, nil
}

// Slugs returns all project slugs in sorted order.
func (s ProjectSet) Slugs() []string { return s.slugs }

// Len returns the number of configured projects.
func (s ProjectSet) Len() int { return len(s.slugs) }

// Project resolves a project slug. An empty slug selects the first project
// (sorted order), matching lookups on single-project deployments.
func (s ProjectSet) Project(slug string) (string, ProjectConfig, error) {
	if len(s.slugs) == 0 {
		return "", ProjectConfig{}, fmt.Errorf("%w: no project configured", apperrors.ErrUnknownProject)
	}

	if slug == "" {
		slug = s.slugs[0]
	}

	project, ok := s.projects[slug]
	if !ok {
		return "", ProjectConfig{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownProject, slug)
	}

	return slug, project, nil
}

// Team resolves a team slug within a project. An empty team slug is allowed
// only when the project has exactly one team.
func (s ProjectSet) Team(projectSlug, teamSlug string) (string, TeamConfig, error) {
	_, project, err := s.Project(projectSlug)
	if err != nil {
		return "", TeamConfig{}, err
	}

	teams := project.ResolvedTeams()

	if teamSlug == "" {
		if len(teams) != 1 {
			return "", TeamConfig{}, apperrors.ErrAmbiguousTeam
		}

		for slug := range teams {
			teamSlug = slug
		}
	}

	team, ok := teams[teamSlug]
	if !ok {
		return "", TeamConfig{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownTeam, teamSlug)
	}

	return teamSlug, team, nil
}

// Schedule is one weekday/time rule for a notification channel. Days use
// ISO weekday numbering with 0=Monday; times are "HH:MM" wall-clock values.
type Schedule struct {
	Days  []int    `json:"days"`
	Times []string `json:"times"`
}

// MessageConfig customizes a notification kind on a channel and carries
// its schedule entries.
type MessageConfig struct {
	Title     string     `json:"title,omitempty"`
	Text      string     `json:"text,omitempty"`
	Schedules []Schedule `json:"schedules"`
}

// Channel is one configured webhook destination for a project, optionally
// scoped to a single team.
type Channel struct {
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	WebhookURL string         `json:"webhook_url"`
	TeamSlug   string         `json:"team_slug,omitempty"`
	Collect    *MessageConfig `json:"collect,omitempty"`
	Publish    *MessageConfig `json:"publish,omitempty"`
}

// ChannelSet maps project slugs to their notification channels.
type ChannelSet map[string][]Channel

type channelProject struct {
	Channels []Channel `json:"channels"`
}

// ParseChannels decodes the PROJECT_TEAMS_CONFIG JSON map.
func ParseChannels(raw string) (ChannelSet, error) {
	set := ChannelSet{}
	if raw == "" {
		return set, nil
	}

	var decoded map[string]channelProject
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	for slug, project := range decoded {
		set[slug] = project.Channels
	}

	return set, nil
}

// ResolveWebhook returns the webhook URL of the first enabled channel
// matching the project and, when given, the team scope. Returns "" when
// nothing matches.
func (c ChannelSet) ResolveWebhook(projectSlug, teamSlug string) string {
	for _, channel := range c[projectSlug] {
		if !channel.Enabled || channel.WebhookURL == "" {
			continue
		}

		if teamSlug != "" && channel.TeamSlug != teamSlug {
			continue
		}

		return channel.WebhookURL
	}

	return ""
}

// MilestoneURLs maps project slugs to GitHub milestone URLs. A project's
// value is either a flat URL list or a map of month label to URL list.
type MilestoneURLs map[string]milestoneEntry

type milestoneEntry struct {
	urls   []string
	months map[string][]string
}

func (e *milestoneEntry) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err == nil {
		e.urls = urls
		return nil
	}

	return json.Unmarshal(data, &e.months)
}

// ParseMilestoneURLs decodes the PROJECT_MILESTONE_URLS JSON map.
func ParseMilestoneURLs(raw string) (MilestoneURLs, error) {
	set := MilestoneURLs{}
	if raw == "" {
		return set, nil
	}

	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, err
	}

	return set, nil
}

// Configured reports whether the project has any milestone URLs at all.
func (m MilestoneURLs) Configured(projectSlug string) bool {
	entry, ok := m[projectSlug]
	if !ok {
		return false
	}

	return len(entry.urls) > 0 || len(entry.months) > 0
}

// Resolve returns the milestone URLs for a project. When the entry is
// keyed by month, the requested month is used if present, otherwise the
// latest month (labels like "2026-01" sort chronologically).
func (m MilestoneURLs) Resolve(projectSlug, month string) (urls []string, selectedMonth string) {
	entry, ok := m[projectSlug]
	if !ok {
		return nil, ""
	}

	if len(entry.urls) > 0 {
		return entry.urls, ""
	}

	if len(entry.months) == 0 {
		return nil, ""
	}

	keys := make([]string, 0, len(entry.months))
	for key := range entry.months {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	selectedMonth = keys[len(keys)-1]
	if month != "" {
		if _, ok := entry.months[month]; ok {
			selectedMonth = month
		}
	}

	return entry.months[selectedMonth], selectedMonth
}

// Months lists the month labels configured for a project, sorted.
func (m MilestoneURLs) Months(projectSlug string) []string {
	entry, ok := m[projectSlug]
	if !ok || len(entry.months) == 0 {
		return nil
	}

	keys := make([]string, 0, len(entry.months))
	for key := range entry.months {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
