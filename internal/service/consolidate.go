package service

import (
	"sort"

	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/week"
)

// Consolidate groups a week's reports by project then team, both in
// alphabetical slug order, and computes aggregate statistics at every level.
func Consolidate(weekID string, reports []domain.Report) domain.Consolidation {
	label, _ := week.Label(weekID)

	cons := domain.Consolidation{
		WeekID:      weekID,
		PeriodLabel: label,
		Stats:       aggregate(reports),
	}

	byProject := map[string][]domain.Report{}
	for _, r := range reports {
		byProject[r.ProjectSlug] = append(byProject[r.ProjectSlug], r)
	}

	projectSlugs := make([]string, 0, len(byProject))
	for slug := range byProject {
		projectSlugs = append(projectSlugs, slug)
	}
	sort.Strings(projectSlugs)

	for _, projectSlug := range projectSlugs {
		projectReports := byProject[projectSlug]

		group := domain.ProjectGroup{
			ProjectSlug: projectSlug,
			ProjectName: projectReports[0].ProjectName,
			Stats:       aggregate(projectReports),
		}

		byTeam := map[string][]domain.Report{}
		for _, r := range projectReports {
			byTeam[r.TeamSlug] = append(byTeam[r.TeamSlug], r)
		}

		teamSlugs := make([]string, 0, len(byTeam))
		for slug := range byTeam {
			teamSlugs = append(teamSlugs, slug)
		}
		sort.Strings(teamSlugs)

		for _, teamSlug := range teamSlugs {
			teamReports := byTeam[teamSlug]

			sort.SliceStable(teamReports, func(i, j int) bool {
				return teamReports[i].DeveloperName < teamReports[j].DeveloperName
			})

			group.Teams = append(group.Teams, domain.TeamGroup{
				TeamSlug: teamSlug,
				TeamName: teamReports[0].TeamName,
				Reports:  teamReports,
				Stats:    aggregate(teamReports),
			})
		}

		cons.Projects = append(cons.Projects, group)
	}

	return cons
}

func aggregate(reports []domain.Report) domain.Aggregates {
	stats := domain.Aggregates{ReportCount: len(reports)}
	if len(reports) == 0 {
		return stats
	}

	var selfSum, nextSum int

	for _, r := range reports {
		stats.TaskCount += len(r.Tasks)
		selfSum += r.SelfAssessment
		nextSum += r.NextWeekExpectation

		if r.HadDeliveries {
			stats.DeliveryCount++
		}

		if r.HadDifficulties {
			stats.DifficultyCount++
		}
	}

	n := float64(len(reports))
	stats.AvgSelfAssessment = float64(selfSum) / n
	stats.AvgNextWeek = float64(nextSum) / n
	stats.DeliveriesPercent = stats.DeliveryCount * 100 / len(reports)
	stats.DifficultiesPercent = stats.DifficultyCount * 100 / len(reports)

	return stats
}
