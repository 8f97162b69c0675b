// Package report assembles the exported dashboard document: title, timestamp,
// KPI line, the captured charts and a sample of the filtered rows.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/chart"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/format"
)

// BlockKind is the kind of content a Block carries.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockText    BlockKind = "text"
	BlockColumns BlockKind = "columns"
	BlockImage   BlockKind = "image"
	BlockTable   BlockKind = "table"
)

// Style is a named text style.
type Style string

const (
	StyleH1   Style = "h1"
	StyleH2   Style = "h2"
	StyleH3   Style = "h3"
	StyleBody Style = "body"
)

// Block is one element of the document, laid out top to bottom.
type Block struct {
	Kind         BlockKind
	Style        Style
	Text         string
	Columns      []string
	Chart        chart.Kind
	Image        []byte
	Width        float64
	Table        *Table
	MarginBottom float64
}

// Table is a header row plus data rows of preformatted cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Document is the ordered description of the report.
type Document struct {
	ID          string
	FileName    string
	Title       string
	GeneratedAt string
	Blocks      []Block
}

// Chart image widths in points, in report order.
var chartWidths = map[chart.Kind]float64{
	chart.DateSeries:  500,
	chart.CategoryBar: 500,
	chart.RegionShare: 400,
}

// Assemble lays out the report. Charts whose capture failed are left out
// entirely, and at most constants.ReportSampleRows rows are tabulated.
func Assemble(kpi aggregate.KPI, captures chart.Captures, rows []dataset.Row, now time.Time) Document {
	generatedAt := now.Format(constants.TimestampLayout)

	doc := Document{
		ID:          uuid.NewString(),
		FileName:    constants.ReportFileName,
		Title:       constants.ReportTitle,
		GeneratedAt: generatedAt,
	}

	doc.Blocks = append(doc.Blocks,
		Block{Kind: BlockHeading, Style: StyleH1, Text: constants.ReportTitle},
		Block{Kind: BlockText, Style: StyleBody, Text: generatedAt, MarginBottom: 10},
		Block{Kind: BlockHeading, Style: StyleH2, Text: "KPIs"},
		Block{Kind: BlockColumns, Style: StyleBody, Columns: KPIColumns(kpi), MarginBottom: 10},
	)

	for _, kind := range chart.Kinds() {
		img, ok := captures.Image(kind)
		if !ok {
			continue
		}
		margin := 10.0
		if kind == chart.RegionShare {
			margin = 0
		}
		doc.Blocks = append(doc.Blocks,
			Block{Kind: BlockHeading, Style: StyleH3, Text: kind.Title()},
			Block{Kind: BlockImage, Chart: kind, Image: img, Width: chartWidths[kind], MarginBottom: margin},
		)
	}

	doc.Blocks = append(doc.Blocks,
		Block{Kind: BlockHeading, Style: StyleH3, Text: "Sample Data"},
		Block{Kind: BlockTable, Style: StyleBody, Table: SampleTable(rows)},
	)

	return doc
}

// KPIColumns renders the three KPI cells with two-decimal amounts.
func KPIColumns(kpi aggregate.KPI) []string {
	return []string{
		fmt.Sprintf("Total: %s", format.Fixed(kpi.Total)),
		fmt.Sprintf("Monthly Avg: %s", format.Fixed(kpi.MonthlyAvg)),
		fmt.Sprintf("Top Category: %s", kpi.TopCategoryLabel()),
	}
}

// SampleTable tabulates the first constants.ReportSampleRows rows.
func SampleTable(rows []dataset.Row) *Table {
	if len(rows) > constants.ReportSampleRows {
		rows = rows[:constants.ReportSampleRows]
	}
	table := &Table{
		Header: []string{"Date", "Category", "Amount", "Region"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{row.Date, row.Category, format.Fixed(row.Amount), row.Region})
	}
	return table
}

// Charts lists the chart sections present, in order.
func (d Document) Charts() []chart.Kind {
	var kinds []chart.Kind
	for _, block := range d.Blocks {
		if block.Kind == BlockImage {
			kinds = append(kinds, block.Chart)
		}
	}
	return kinds
}

// Table returns the sample table block's table, if any.
func (d Document) Table() *Table {
	for _, block := range d.Blocks {
		if block.Kind == BlockTable {
			return block.Table
		}
	}
	return nil
}

// WriteCSV writes the table as CSV text with the lowercase column names the
// row parser reads, so a report sample can be loaded back in.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		constants.ColumnDate, constants.ColumnCategory, constants.ColumnAmount, constants.ColumnRegion,
	}); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}
