// Package constants provides shared constants for the data-dashboard application.
package constants

// Date layouts used for grouping keys and user-facing timestamps.
const (
	// DayLayout is the canonical calendar-day format used for date keys and
	// filter bounds.
	DayLayout = "2006-01-02"

	// MonthLayout is the calendar-month format used for monthly grouping.
	MonthLayout = "2006-01"

	// TimestampLayout is the report generation timestamp format (YYYY-MM-DD HH:mm).
	TimestampLayout = "2006-01-02 15:04"

	// InvalidDateKey labels rows whose date could not be parsed when they are
	// grouped by day or month.
	InvalidDateKey = "Invalid Date"
)

// Dataset constants
const (
	// AllCategories is the category sentinel that disables category filtering.
	AllCategories = "All"

	// UnknownRegion labels rows with an empty region in the region aggregate.
	UnknownRegion = "Unknown"

	// ReportSampleRows is the maximum number of rows in the report sample table.
	ReportSampleRows = 15

	// AmountPlaces is the number of decimal places amounts are rendered with.
	AmountPlaces = 2
)

// CSV header names, matched case-sensitively.
const (
	ColumnDate     = "date"
	ColumnCategory = "category"
	ColumnAmount   = "amount"
	ColumnRegion   = "region"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"
)

// OutputFormats lists every supported output format.
var OutputFormats = []string{
	OutputFormatPretty,
	OutputFormatCSV,
	OutputFormatJSON,
	OutputFormatYAML,
	OutputFormatXLSX,
}

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix prefixes environment variable overrides, e.g. DASHBOARD_SERVER_ADDRESS.
	EnvPrefix = "DASHBOARD"
)

// Report constants
const (
	// ReportTitle is the title line of the exported report.
	ReportTitle = "Data Dashboard Report"

	// ReportFileName is the file name of the exported report.
	ReportFileName = "dashboard_report.pdf"

	// DefaultChartWidth and DefaultChartHeight size rendered chart images in pixels.
	DefaultChartWidth  = 800
	DefaultChartHeight = 400

	// DefaultLocale and DefaultCurrencySymbol drive KPI display formatting.
	DefaultLocale         = "en"
	DefaultCurrencySymbol = "$"
)

// Sample data constants
const (
	// DefaultSamplePath is the sample CSV path relative to the application base.
	DefaultSamplePath = "docs/sample.csv"

	// DefaultSampleAttempts is how many times a transient sample fetch failure is tried.
	DefaultSampleAttempts = 3

	// DefaultSampleTimeoutSeconds bounds a single sample fetch.
	DefaultSampleTimeoutSeconds = 10
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for CSV files (10 MB)
	DefaultMaxUploadSizeBytes int64 = 10 * 1024 * 1024
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)
