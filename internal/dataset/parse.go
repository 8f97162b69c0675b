package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const utf8BOM = "\uFEFF"

// ParseError reports that the input could not be tokenized as delimited rows
// (malformed quoting, inconsistent column counts). When it is returned no rows
// are produced.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse CSV at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse CSV: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stats summarizes a successful parse.
type Stats struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Parser converts CSV text with a header row into rows.
type Parser struct {
	logger *zap.Logger
}

// NewParser returns a Parser that logs row rejections at debug level.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse reads CSV text from r using a no-op logger.
func Parse(r io.Reader) ([]Row, Stats, error) {
	return NewParser(nil).Parse(r)
}

// ParseString is Parse over an in-memory string.
func ParseString(text string) ([]Row, Stats, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads the header row and then every data row of r. Header names are
// matched case-sensitively; a missing region column yields empty regions.
// Rows with an empty date, an empty category, or an amount that is not a
// finite number with at most 32 decimal places are dropped and counted in
// Stats.Rejected. Blank lines are
// skipped. Output order follows input order.
func (p *Parser) Parse(r io.Reader) ([]Row, Stats, error) {
	reader := csv.NewReader(r)
	// Every record must have as many fields as the header.
	reader.FieldsPerRecord = 0

	var stats Stats

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, stats, nil
	}
	if err != nil {
		return nil, stats, newParseError(err)
	}
	columns := indexHeader(header)

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Stats{}, newParseError(err)
		}

		row, reason := columns.coerce(record)
		if reason != "" {
			stats.Rejected++
			line, _ := reader.FieldPos(0)
			p.logger.Debug("row rejected",
				zap.String("op", "dataset.Parse"),
				zap.Int("line", line),
				zap.String("reason", reason),
			)
			continue
		}
		rows = append(rows, row)
	}

	stats.Accepted = len(rows)
	return rows, stats, nil
}

func newParseError(err error) *ParseError {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}

type columnIndex struct {
	date     int
	category int
	amount   int
	region   int
}

func indexHeader(header []string) columnIndex {
	columns := columnIndex{date: -1, category: -1, amount: -1, region: -1}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		switch {
		case name == constants.ColumnDate && columns.date < 0:
			columns.date = i
		case name == constants.ColumnCategory && columns.category < 0:
			columns.category = i
		case name == constants.ColumnAmount && columns.amount < 0:
			columns.amount = i
		case name == constants.ColumnRegion && columns.region < 0:
			columns.region = i
		}
	}
	return columns
}

// coerce builds a Row from a record, returning a non-empty rejection reason
// when the record fails validation.
func (c columnIndex) coerce(record []string) (Row, string) {
	row := Row{
		Date:     field(record, c.date),
		Category: field(record, c.category),
		Region:   field(record, c.region),
	}
	if row.Date == "" {
		return Row{}, "empty date"
	}
	if row.Category == "" {
		return Row{}, "empty category"
	}

	amount, ok := coerceAmount(field(record, c.amount))
	if !ok {
		return Row{}, "amount is not a finite number of bounded scale"
	}
	row.Amount = amount
	return row, ""
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// minAmountExponent bounds the scale of an accepted amount. Summing decimals
// rescales every operand to the smallest exponent seen, so an amount written
// as 1e-20000000 would make every later aggregation carry millions of digits.
const minAmountExponent = -32

// coerceAmount treats a missing amount as zero and rejects anything that is
// not a finite number or is written with more than 32 decimal places.
func coerceAmount(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, true
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	if f, _ := amount.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	if amount.Exponent() < minAmountExponent {
		return decimal.Zero, false
	}
	return amount, true
}
