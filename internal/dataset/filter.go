package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/datetime"
)

// Criteria is an inclusive calendar-day window plus an optional exact
// category match. Nil bounds are open; an empty Category or the "All"
// sentinel disables category filtering.
type Criteria struct {
	Start    *time.Time `json:"start" yaml:"start"`
	End      *time.Time `json:"end" yaml:"end"`
	Category string     `json:"category" yaml:"category"`
}

// AllRows returns criteria that keep every row with a parseable date.
func AllRows() Criteria {
	return Criteria{Category: constants.AllCategories}
}

// ParseCriteria builds Criteria from text inputs. Empty bounds are open and an
// empty category means "All"; a non-empty bound that is not a date is an error.
func ParseCriteria(start, end, category string) (Criteria, error) {
	criteria := AllRows()

	if strings.TrimSpace(start) != "" {
		t, err := datetime.ParseDate(start)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid start date: %w", err)
		}
		day := datetime.Day(t)
		criteria.Start = &day
	}
	if strings.TrimSpace(end) != "" {
		t, err := datetime.ParseDate(end)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid end date: %w", err)
		}
		day := datetime.Day(t)
		criteria.End = &day
	}
	if category != "" {
		criteria.Category = category
	}
	return criteria, nil
}

// AllCategories reports whether category filtering is disabled.
func (c Criteria) AllCategories() bool {
	return c.Category == "" || c.Category == constants.AllCategories
}

// Match reports whether row satisfies c. Rows whose date does not parse never
// match.
func (c Criteria) Match(row Row) bool {
	date, err := datetime.ParseDate(row.Date)
	if err != nil {
		return false
	}
	if c.Start != nil && datetime.DayBefore(date, *c.Start) {
		return false
	}
	if c.End != nil && datetime.DayAfter(date, *c.End) {
		return false
	}
	if !c.AllCategories() && row.Category != c.Category {
		return false
	}
	return true
}

func (c Criteria) String() string {
	bound := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.Format(constants.DayLayout)
	}
	category := c.Category
	if c.AllCategories() {
		category = constants.AllCategories
	}
	return fmt.Sprintf("%s..%s category=%s", bound(c.Start), bound(c.End), category)
}

// Filter returns the rows matching c in their original relative order.
func Filter(rows []Row, c Criteria) []Row {
	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if c.Match(row) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
