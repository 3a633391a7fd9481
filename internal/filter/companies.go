package filter

import "github.com/nhle/company-tasks/internal/model"

// CompanyTaskCounts returns a copy of companies with TaskCount set to the
// number of non-archived tasks referencing each company.
func CompanyTaskCounts(companies []model.Company, tasks []model.Task) []model.Company {
	counts := make(map[string]int, len(companies))
	for _, t := range tasks {
		if t.Archived {
			continue
		}
		counts[t.CompanyID]++
	}

	out := make([]model.Company, len(companies))
	for i, c := range companies {
		c.TaskCount = counts[c.ID]
		out[i] = c
	}
	return out
}

// CompanyName looks up a company's display name. A task referencing a
// company missing from the snapshot reports ("", false); such tasks are
// kept and shown with an unknown company.
func CompanyName(companies []model.Company, id string) (string, bool) {
	for _, c := range companies {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

// SelectedCompanyName returns the header label for the sidebar selection,
// or "" when nothing (or an invisible company) is selected.
func SelectedCompanyName(vis Visibility, sidebar *string) string {
	if sidebar == nil || *sidebar == "" {
		return ""
	}
	name, _ := CompanyName(vis.Companies, *sidebar)
	return name
}
