package validation

import (
	"fmt"
	"time"

	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/datetime"
)

// CriteriaWarnings reports filter settings that are legal but select no rows
// regardless of the data. Nil bounds are open.
func CriteriaWarnings(start, end *time.Time, category string, knownCategories []string) []string {
	var warnings []string

	if start != nil && end != nil && datetime.DayAfter(*start, *end) {
		warnings = append(warnings, fmt.Sprintf("start date %s is after end date %s - no rows can match",
			start.Format(constants.DayLayout), end.Format(constants.DayLayout)))
	}

	if category != "" && category != constants.AllCategories {
		found := false
		for _, known := range knownCategories {
			if known == category {
				found = true
				break
			}
		}
		if !found {
			warnings = append(warnings, fmt.Sprintf("category '%s' does not occur in the data", category))
		}
	}

	return warnings
}
