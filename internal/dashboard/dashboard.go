// Package dashboard ties the pipeline together: it owns the loaded row set
// and the current filter criteria, and derives every view from them.
package dashboard

import (
	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/pkg/constants"
)

// View is everything derived from (rows, criteria).
type View struct {
	Criteria   dataset.Criteria  `json:"criteria" yaml:"criteria"`
	Rows       []dataset.Row     `json:"rows" yaml:"rows"`
	Summary    aggregate.Summary `json:"summary" yaml:"summary"`
	Categories []string          `json:"categories" yaml:"categories"`
	TotalRows  int               `json:"totalRows" yaml:"totalRows"`
}

// Compute filters rows and aggregates the result. Categories are taken
// from the unfiltered rows, led by the "All" option.
func Compute(rows []dataset.Row, criteria dataset.Criteria) View {
	filtered := dataset.Filter(rows, criteria)
	return View{
		Criteria:   criteria,
		Rows:       filtered,
		Summary:    aggregate.Summarize(filtered),
		Categories: append([]string{constants.AllCategories}, dataset.Categories(rows)...),
		TotalRows:  len(rows),
	}
}
