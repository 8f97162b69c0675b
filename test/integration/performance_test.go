package integration

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/dashboard"
	"github.com/iwvelando/data-dashboard/internal/dataset"
)

func syntheticCSV(n int) string {
	categories := []string{"Food", "Travel", "Rent", "Utilities", "Health"}
	regions := []string{"East", "West", "North", "South", ""}
	var b strings.Builder
	b.WriteString("date,category,amount,region\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%s,%d.%02d,%s\n",
			start.AddDate(0, 0, i%365).Format("2006-01-02"),
			categories[i%len(categories)],
			i%500, i%100,
			regions[i%len(regions)],
		)
	}
	return b.String()
}

// TestPerformance checks that a large upload parses and aggregates quickly.
func TestPerformance(t *testing.T) {
	text := syntheticCSV(50000)

	start := time.Now()
	rows, stats, err := dataset.ParseString(text)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	parseTime := time.Since(start)

	start = time.Now()
	view := dashboard.Compute(rows, dataset.AllRows())
	computeTime := time.Since(start)

	if stats.Accepted != 50000 || len(view.Rows) != 50000 {
		t.Fatalf("expected 50000 rows, got %d accepted and %d filtered", stats.Accepted, len(view.Rows))
	}
	if len(view.Summary.ByDate) != 365 {
		t.Errorf("expected 365 dates, got %d", len(view.Summary.ByDate))
	}

	t.Logf("Parse: %v, compute: %v", parseTime, computeTime)
	if parseTime+computeTime > 10*time.Second {
		t.Errorf("pipeline too slow: %v", parseTime+computeTime)
	}
}

func BenchmarkSummarize(b *testing.B) {
	rows, _, err := dataset.ParseString(syntheticCSV(10000))
	if err != nil {
		b.Fatalf("ParseString() error = %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = aggregate.Summarize(rows)
	}
}

func BenchmarkParse(b *testing.B) {
	text := syntheticCSV(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := dataset.ParseString(text); err != nil {
			b.Fatal(err)
		}
	}
}
