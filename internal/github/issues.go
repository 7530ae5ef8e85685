package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// parseIssueURL validates a GitHub issue or pull request URL and extracts
// its owner, repository and number. Accepts /issues/, /pull/ and /pulls/
// paths.
func parseIssueURL(raw string) (owner, repo string, number int, err error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", 0, fmt.Errorf("github: invalid issue url %q", raw)
	}

	parts := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 4 {
		return "", "", 0, fmt.Errorf("github: invalid issue url %q", raw)
	}

	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")

	switch parts[2] {
	case "issues", "pull", "pulls":
	default:
		return "", "", 0, fmt.Errorf("github: invalid issue url %q", raw)
	}

	number, err = strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("github: invalid issue url %q", raw)
	}

	return owner, repo, number, nil
}

// IssueTitle resolves the display title of the issue or pull request behind
// the URL. Titles are cached per URL for the client's lifetime; only
// successful lookups are cached, so transient failures can be retried on a
// later call.
func (c *Client) IssueTitle(ctx context.Context, rawURL string) (string, error) {
	c.mu.Lock()
	if title, ok := c.titleCache[rawURL]; ok {
		c.mu.Unlock()
		return title, nil
	}
	c.mu.Unlock()

	owner, repo, number, err := parseIssueURL(rawURL)
	if err != nil {
		return "", err
	}

	// The issues endpoint also serves pull requests.
	var issue struct {
		Title string `json:"title"`
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	if err := c.getJSON(ctx, path, nil, &issue); err != nil {
		return "", err
	}

	if issue.Title != "" {
		c.mu.Lock()
		c.titleCache[rawURL] = issue.Title
		c.mu.Unlock()
	}

	return issue.Title, nil
}
