package campaign

import (
	"fmt"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
)

// BuildPlan expands the search configuration into an ordered task list:
// the cross-product of the first MaxIndustries industries and first
// MaxRoles roles, followed by a keyword-only phase. The plan is bounded
// by configuration alone, never by page content.
func BuildPlan(cfg config.SearchConfig) []models.SearchTask {
	industries := clip(cfg.Industries, cfg.MaxIndustries)
	roles := clip(cfg.Roles, cfg.MaxRoles)

	tasks := make([]models.SearchTask, 0, len(industries)*len(roles)+len(cfg.Keywords))
	for _, industry := range industries {
		for _, role := range roles {
			query := fmt.Sprintf("%s %s", industry, role)
			tasks = append(tasks, models.SearchTask{
				Label: query,
				Query: query,
				Kind:  models.TaskIndustryRole,
			})
		}
	}
	for _, keyword := range cfg.Keywords {
		tasks = append(tasks, models.SearchTask{
			Label: keyword,
			Query: keyword,
			Kind:  models.TaskKeyword,
		})
	}
	return tasks
}

func clip(values []string, max int) []string {
	if max < 0 {
		max = 0
	}
	if len(values) > max {
		return values[:max]
	}
	return values
}
