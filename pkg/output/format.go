// Package output provides utilities for formatting and displaying dashboard views.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/dashboard"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/format"
	"github.com/iwvelando/data-dashboard/pkg/mathutil"
	"gopkg.in/yaml.v3"
)

// Write renders view in the named format.
func Write(w io.Writer, formatName string, view dashboard.View, locale *format.Locale) error {
	switch formatName {
	case "", constants.OutputFormatPretty:
		return Pretty(w, view, locale)
	case constants.OutputFormatCSV:
		return CSV(w, view)
	case constants.OutputFormatJSON:
		return JSON(w, view)
	case constants.OutputFormatYAML:
		return YAML(w, view)
	case constants.OutputFormatXLSX:
		return XLSX(w, view)
	}
	return fmt.Errorf("unsupported output format %q", formatName)
}

// ContentType is the media type of the named format.
func ContentType(formatName string) string {
	switch formatName {
	case constants.OutputFormatCSV:
		return "text/csv; charset=utf-8"
	case constants.OutputFormatJSON:
		return "application/json"
	case constants.OutputFormatYAML:
		return "application/yaml"
	case constants.OutputFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}

// FileExtension is the file name extension of the named format.
func FileExtension(formatName string) string {
	if formatName == constants.OutputFormatPretty || formatName == "" {
		return "txt"
	}
	return formatName
}

// Pretty outputs a human-readable rather than machine-readable summary.
func Pretty(w io.Writer, view dashboard.View, locale *format.Locale) error {
	if locale == nil {
		locale = format.MustLocale(constants.DefaultLocale, constants.DefaultCurrencySymbol)
	}
	kpi := view.Summary.KPI

	var b strings.Builder
	fmt.Fprintf(&b, "--- Dashboard (%s) ---\n", view.Criteria)
	fmt.Fprintf(&b, "Rows:         %d of %d\n", len(view.Rows), view.TotalRows)
	fmt.Fprintf(&b, "Total:        %s\n", locale.WholeCurrency(kpi.Total))
	fmt.Fprintf(&b, "Monthly Avg:  %s\n", locale.WholeCurrency(kpi.MonthlyAvg))
	fmt.Fprintf(&b, "Top Category: %s\n", kpi.TopCategoryLabel())

	for _, section := range []struct {
		title string
		view  aggregate.View
	}{
		{"Date", view.Summary.ByDate},
		{"Category", view.Summary.ByCategory},
		{"Region", view.Summary.ByRegion},
	} {
		fmt.Fprintf(&b, "\n%-12s | Amount\n", section.title)
		fmt.Fprintf(&b, "%-12s | ______\n", strings.Repeat("_", len(section.title)))
		for _, p := range section.view {
			fmt.Fprintf(&b, "%-12s | %s\n", p.Key, format.Currency(mathutil.Float(p.Value)))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CSV outputs the filtered rows in the same layout the parser reads.
func CSV(w io.Writer, view dashboard.View) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		constants.ColumnDate, constants.ColumnCategory, constants.ColumnAmount, constants.ColumnRegion,
	}); err != nil {
		return err
	}
	for _, row := range view.Rows {
		if err := writer.Write([]string{row.Date, row.Category, format.Fixed(row.Amount), row.Region}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSON outputs the whole view as indented JSON.
func JSON(w io.Writer, view dashboard.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// YAML outputs the whole view as YAML.
func YAML(w io.Writer, view dashboard.View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}
