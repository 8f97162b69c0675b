package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/internal/chart"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/internal/metrics"
	"github.com/iwvelando/data-dashboard/pkg/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleCSV = "date,category,amount,region\n" +
	"2025-01-01,Food,10,East\n" +
	"2025-02-01,Food,30,West\n" +
	"2025-01-15,Travel,5,East\n"

type fetchFunc func(ctx context.Context) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

func staticFetcher(text string) Fetcher {
	return fetchFunc(func(context.Context) ([]byte, error) {
		return []byte(text), nil
	})
}

func TestCompute(t *testing.T) {
	rows := testutil.ExampleRows()
	criteria, err := dataset.ParseCriteria("2025-01-10", "2025-01-31", "")
	require.NoError(t, err)

	view := Compute(rows, criteria)

	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Travel", view.Rows[0].Category)
	assert.Equal(t, "5", view.Summary.KPI.Total.String())
	assert.Equal(t, "Travel", view.Summary.KPI.TopCategory)
	assert.Equal(t, []string{"All", "Food", "Travel"}, view.Categories)
	assert.Equal(t, 3, view.TotalRows)
}

func TestComputeNoMatches(t *testing.T) {
	view := Compute(testutil.ExampleRows(), dataset.Criteria{Category: "Rent"})

	assert.Empty(t, view.Rows)
	assert.True(t, view.Summary.KPI.Total.IsZero())
	assert.Equal(t, "N/A", view.Summary.KPI.TopCategoryLabel())
	assert.Equal(t, []string{"All", "Food", "Travel"}, view.Categories)
}

func TestSessionLoad(t *testing.T) {
	m := metrics.New()
	s := NewSession(nil, m)

	stats, err := s.Load(strings.NewReader(exampleCSV+"2025-01-20,,3,East\n"), "upload.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)

	view := s.View()
	assert.Equal(t, "45", view.Summary.KPI.Total.String())
	assert.Equal(t, "22.5", view.Summary.KPI.MonthlyAvg.String())
	assert.Equal(t, "upload.csv", s.Status().Source)
	assert.Equal(t, 3.0, promtest.ToFloat64(m.RowsParsed))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.RowsRejected))
}

func TestSessionLoadStructuralErrorKeepsRows(t *testing.T) {
	m := metrics.New()
	s := NewSession(nil, m)
	_, err := s.Load(strings.NewReader(exampleCSV), "first.csv")
	require.NoError(t, err)

	_, err = s.Load(strings.NewReader("date,category,amount\n2025-01-01,Food\n"), "broken.csv")

	var parseErr *dataset.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 3, s.View().TotalRows)
	assert.NotEmpty(t, s.Status().Error)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ParseErrors))
}

func TestSessionCriteria(t *testing.T) {
	s := NewSession(nil, nil)
	_, err := s.Load(strings.NewReader(exampleCSV), "upload.csv")
	require.NoError(t, err)

	s.SetCriteria(dataset.Criteria{Category: "Food"})

	assert.Equal(t, "Food", s.Criteria().Category)
	view := s.View()
	assert.Len(t, view.Rows, 2)
	assert.Equal(t, "40", view.Summary.KPI.Total.String())
}

func TestLoadSample(t *testing.T) {
	s := NewSession(nil, nil)

	require.NoError(t, s.LoadSample(context.Background(), staticFetcher(exampleCSV)))

	status := s.Status()
	assert.False(t, status.Loading)
	assert.Empty(t, status.Error)
	assert.Equal(t, "sample", status.Source)
	assert.NotEmpty(t, status.LoadID)
	assert.Equal(t, 3, s.View().TotalRows)
}

func TestLoadSampleFetchFailure(t *testing.T) {
	m := metrics.New()
	s := NewSession(nil, m)
	failing := fetchFunc(func(context.Context) ([]byte, error) {
		return nil, errors.New("CSV fetch failed: HTTP 404")
	})

	err := s.LoadSample(context.Background(), failing)

	require.Error(t, err)
	status := s.Status()
	assert.False(t, status.Loading)
	assert.Equal(t, "CSV fetch failed: HTTP 404", status.Error)
	assert.Zero(t, s.View().TotalRows)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.SampleFetchFailures))

	// Manual upload still works afterwards.
	_, err = s.Load(strings.NewReader(exampleCSV), "upload.csv")
	require.NoError(t, err)
	assert.Empty(t, s.Status().Error)
	assert.Equal(t, 3, s.View().TotalRows)
}

func TestLoadSampleParseFailure(t *testing.T) {
	s := NewSession(nil, nil)

	err := s.LoadSample(context.Background(), staticFetcher("date,category,amount\n\"unterminated\n"))

	var parseErr *dataset.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.NotEmpty(t, s.Status().Error)
	assert.Zero(t, s.View().TotalRows)
}

func TestLoadSampleCancelledIsDiscarded(t *testing.T) {
	s := NewSession(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := fetchFunc(func(context.Context) ([]byte, error) {
		cancel()
		return []byte(exampleCSV), nil
	})

	err := s.LoadSample(ctx, fetcher)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.View().TotalRows)
	assert.Empty(t, s.Status().Error)
	assert.False(t, s.Status().Loading)
}

func TestLoadSampleCancelledRestoresStatus(t *testing.T) {
	s := NewSession(nil, nil)
	_, err := s.Load(strings.NewReader(exampleCSV), "first.csv")
	require.NoError(t, err)
	_, err = s.Load(strings.NewReader("date,category,amount\n2025-01-01,Food\n"), "broken.csv")
	require.Error(t, err)
	before := s.Status()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := fetchFunc(func(context.Context) ([]byte, error) {
		assert.True(t, s.Status().Loading)
		cancel()
		return nil, context.Canceled
	})

	err = s.LoadSample(ctx, fetcher)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, s.Status())
	assert.Equal(t, 3, s.View().TotalRows)
}

func TestLoadSampleSupersededByUpload(t *testing.T) {
	s := NewSession(nil, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := fetchFunc(func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return []byte("date,category,amount\n2025-03-01,Sample,99\n"), nil
	})

	var wg sync.WaitGroup
	var loadErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		loadErr = s.LoadSample(context.Background(), fetcher)
	}()

	<-started
	assert.True(t, s.Status().Loading)
	_, err := s.Load(strings.NewReader(exampleCSV), "upload.csv")
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, loadErr, ErrSuperseded)
	view := s.View()
	assert.Equal(t, 3, view.TotalRows)
	assert.Nil(t, testutil.FindRow(view.Rows, "Sample"))
	assert.Equal(t, "upload.csv", s.Status().Source)
}

type solidRenderer struct {
	fail map[chart.Kind]bool
}

func (r solidRenderer) Render(kind chart.Kind, _ aggregate.View) ([]byte, error) {
	if r.fail[kind] {
		return nil, fmt.Errorf("no canvas for %s", kind)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, color.White)
		img.Set(x, 1, color.White)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func TestSessionReport(t *testing.T) {
	m := metrics.New()
	s := NewSession(nil, m)
	_, err := s.Load(strings.NewReader(exampleCSV), "upload.csv")
	require.NoError(t, err)

	now := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)
	doc, view := s.Report(context.Background(), solidRenderer{fail: map[chart.Kind]bool{chart.RegionShare: true}}, now)

	assert.Equal(t, []chart.Kind{chart.DateSeries, chart.CategoryBar}, doc.Charts())
	assert.Equal(t, "2025-05-01 12:30", doc.GeneratedAt)
	assert.Len(t, doc.Table().Rows, 3)
	assert.Len(t, view.Rows, 3)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CaptureFailures.WithLabelValues("region-share")))
}

func TestSessionReportNoMatchesOmitsCharts(t *testing.T) {
	m := metrics.New()
	s := NewSession(nil, m)
	_, err := s.Load(strings.NewReader(exampleCSV), "upload.csv")
	require.NoError(t, err)
	s.SetCriteria(dataset.Criteria{Category: "Nope"})

	doc, view := s.Report(context.Background(), chart.NewPNGRenderer(400, 240, nil), time.Now())

	assert.Empty(t, view.Rows)
	assert.Empty(t, doc.Charts())
	require.NotNil(t, doc.Table())
	assert.Empty(t, doc.Table().Rows)
	for _, kind := range chart.Kinds() {
		assert.Equal(t, 1.0, promtest.ToFloat64(m.CaptureFailures.WithLabelValues(string(kind))), string(kind))
	}
}
