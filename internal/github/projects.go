package github

import (
	"context"
	"strings"
	"time"
)

// Board field names looked up on ProjectV2 items. Matching is
// case-insensitive.
const (
	statusFieldName     = "Status"
	iterationFieldName  = "Iteration"
	milestoneFieldName  = "Milestone"
	difficultyFieldName = "Difficulty"
	estimateFieldName   = "Estimate (Hours)"
)

// ProjectItem is one issue on a ProjectV2 board, flattened to the fields
// the charts need. Pull requests are dropped during fetch.
type ProjectItem struct {
	CreatedAt       time.Time
	Status          string
	StatusUpdatedAt *time.Time
	IterationTitle  string
	IterationStart  *time.Time
	IterationEnd    *time.Time
	Milestone       string
	Difficulty      float64
	EstimateHours   float64
	Labels          []string
	Repository      string
}

// isDuplicate reports whether the item is a duplicate either by status or
// by label.
func (p ProjectItem) isDuplicate() bool {
	if BucketStatus(p.Status) == StatusDuplicate {
		return true
	}

	for _, label := range p.Labels {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "duplicate", "duplicado":
			return true
		}
	}

	return false
}

const projectItemsQuery = `
query($projectId: ID!, $cursor: String) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: 100, after: $cursor) {
        pageInfo { hasNextPage endCursor }
        nodes {
          id
          createdAt
          fieldValues(first: 100) {
            nodes {
              __typename
              ... on ProjectV2ItemFieldSingleSelectValue {
                name
                updatedAt
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldNumberValue {
                number
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldTextValue {
                text
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldDateValue {
                date
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldMilestoneValue {
                milestone { title }
                field { ... on ProjectV2FieldCommon { name } }
              }
              ... on ProjectV2ItemFieldIterationValue {
                iterationId
                title
                startDate
                duration
                field { ... on ProjectV2FieldCommon { name } }
              }
            }
          }
          content {
            __typename
            ... on Issue {
              title
              labels(first: 50) { nodes { name } }
              repository { name }
            }
            ... on PullRequest {
              title
            }
            ... on DraftIssue {
              title
            }
          }
        }
      }
    }
  }
}`

type fieldValueNode struct {
	Typename  string   `json:"__typename"`
	Name      string   `json:"name"`
	Text      string   `json:"text"`
	Date      string   `json:"date"`
	Number    *float64 `json:"number"`
	UpdatedAt string   `json:"updatedAt"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	IterationID string `json:"iterationId"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	Duration    int    `json:"duration"`
	Field       struct {
		Name string `json:"name"`
	} `json:"field"`
}

type projectItemsPage struct {
	Node struct {
		Items struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				CreatedAt   string           `json:"createdAt"`
				FieldValues struct {
					Nodes []fieldValueNode `json:"nodes"`
				} `json:"fieldValues"`
				Content struct {
					Typename string `json:"__typename"`
					Labels   struct {
						Nodes []struct {
							Name string `json:"name"`
						} `json:"nodes"`
					} `json:"labels"`
					Repository struct {
						Name string `json:"name"`
					} `json:"repository"`
				} `json:"content"`
			} `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}

// FetchProjectItems pages through a ProjectV2 board and returns its issues.
func (c *Client) FetchProjectItems(ctx context.Context, projectID string) ([]ProjectItem, error) {
	var items []ProjectItem
	var cursor *string

	for {
		var page projectItemsPage
		err := c.graphql(ctx, projectItemsQuery, map[string]any{
			"projectId": projectID,
			"cursor":    cursor,
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, node := range page.Node.Items.Nodes {
			if node.Content.Typename == "PullRequest" {
				continue
			}

			item := ProjectItem{
				CreatedAt:  parseTime(node.CreatedAt),
				Repository: node.Content.Repository.Name,
			}

			for _, label := range node.Content.Labels.Nodes {
				if name := strings.TrimSpace(label.Name); name != "" {
					item.Labels = append(item.Labels, name)
				}
			}

			for _, field := range node.FieldValues.Nodes {
				applyFieldValue(&item, field)
			}

			items = append(items, item)
		}

		info := page.Node.Items.PageInfo
		if !info.HasNextPage {
			break
		}

		cursor = &info.EndCursor
	}

	return items, nil
}

func applyFieldValue(item *ProjectItem, field fieldValueNode) {
	name := field.Field.Name

	if fieldMatch(name, statusFieldName) && field.Typename == "ProjectV2ItemFieldSingleSelectValue" {
		item.Status = field.Name
		if t := parseTime(field.UpdatedAt); !t.IsZero() {
			item.StatusUpdatedAt = &t
		}
	}

	if fieldMatch(name, iterationFieldName) && field.IterationID != "" {
		item.IterationTitle = field.Title
		if start := parseDate(field.StartDate); !start.IsZero() {
			item.IterationStart = &start
			end := start.AddDate(0, 0, field.Duration)
			item.IterationEnd = &end
		}
	}

	if fieldMatch(name, milestoneFieldName) {
		switch field.Typename {
		case "ProjectV2ItemFieldSingleSelectValue":
			item.Milestone = field.Name
		case "ProjectV2ItemFieldTextValue":
			item.Milestone = field.Text
		case "ProjectV2ItemFieldMilestoneValue":
			if field.Milestone != nil {
				item.Milestone = field.Milestone.Title
			}
		}
	}

	if fieldMatch(name, difficultyFieldName) {
		switch field.Typename {
		case "ProjectV2ItemFieldNumberValue":
			if field.Number != nil {
				item.Difficulty = *field.Number
			}
		case "ProjectV2ItemFieldSingleSelectValue":
			item.Difficulty = MapDifficultyLabel(field.Name)
		case "ProjectV2ItemFieldTextValue":
			item.Difficulty = MapDifficultyLabel(field.Text)
		}
	}

	if fieldMatch(name, estimateFieldName) {
		switch field.Typename {
		case "ProjectV2ItemFieldNumberValue":
			if field.Number != nil {
				item.EstimateHours = *field.Number
			}
		case "ProjectV2ItemFieldTextValue":
			item.EstimateHours = parseNumericFromText(field.Text)
		case "ProjectV2ItemFieldSingleSelectValue":
			item.EstimateHours = parseNumericFromText(field.Name)
		}
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}

	return t
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}

	return t
}
