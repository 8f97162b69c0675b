package output

import (
	"fmt"
	"io"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/dashboard"
	"github.com/iwvelando/data-dashboard/pkg/mathutil"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX workbook, in order.
const (
	SheetKPIs       = "KPIs"
	SheetData       = "Data"
	SheetByDate     = "By Date"
	SheetByCategory = "By Category"
	SheetByRegion   = "By Region"
)

// XLSX outputs a workbook with the KPIs, the filtered rows and one sheet per
// aggregate view. Amounts are stored as numbers with two-decimal formatting.
func XLSX(w io.Writer, view dashboard.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetKPIs); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E3F2FD"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	kpi := view.Summary.KPI
	kpiRows := [][]interface{}{
		{"Metric", "Value"},
		{"Total", mathutil.Float(kpi.Total)},
		{"Monthly Avg", mathutil.Float(kpi.MonthlyAvg)},
		{"Top Category", kpi.TopCategoryLabel()},
		{"Filter", view.Criteria.String()},
	}
	if err := writeRows(f, SheetKPIs, kpiRows); err != nil {
		return err
	}
	if err := styleSheet(f, SheetKPIs, headerStyle, amountStyle, "B", 3); err != nil {
		return err
	}

	data := [][]interface{}{{"Date", "Category", "Amount", "Region"}}
	for _, row := range view.Rows {
		data = append(data, []interface{}{row.Date, row.Category, mathutil.Float(row.Amount), row.Region})
	}
	if err := addSheet(f, SheetData, data, headerStyle, amountStyle, "C"); err != nil {
		return err
	}

	for _, grouped := range []struct {
		sheet  string
		header string
		view   aggregate.View
	}{
		{SheetByDate, "Date", view.Summary.ByDate},
		{SheetByCategory, "Category", view.Summary.ByCategory},
		{SheetByRegion, "Region", view.Summary.ByRegion},
	} {
		rows := [][]interface{}{{grouped.header, "Amount"}}
		for _, p := range grouped.view {
			rows = append(rows, []interface{}{p.Key, mathutil.Float(p.Value)})
		}
		if err := addSheet(f, grouped.sheet, rows, headerStyle, amountStyle, "B"); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func addSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle, amountStyle int, amountCol string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return styleSheet(f, sheet, headerStyle, amountStyle, amountCol, len(rows))
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleSheet(f *excelize.File, sheet string, headerStyle, amountStyle int, amountCol string, lastRow int) error {
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	if lastRow < 2 {
		return nil
	}
	return f.SetCellStyle(sheet, fmt.Sprintf("%s2", amountCol), fmt.Sprintf("%s%d", amountCol, lastRow), amountStyle)
}
