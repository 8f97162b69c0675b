package chart

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"sync/atomic"
	"testing"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
)

type stubRenderer struct {
	fail  map[Kind]error
	panic Kind
	calls atomic.Int32
}

func (s *stubRenderer) Render(kind Kind, _ aggregate.View) ([]byte, error) {
	s.calls.Add(1)
	if kind == s.panic {
		panic("boom")
	}
	if err := s.fail[kind]; err != nil {
		return nil, err
	}
	return []byte("png:" + string(kind)), nil
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []Kind{DateSeries, CategoryBar, RegionShare}, Kinds())
	assert.Equal(t, "Amount by Date", DateSeries.Title())
	assert.Equal(t, "Amount by Category", CategoryBar.Title())
	assert.Equal(t, "Share by Region", RegionShare.Title())

	kind, err := ParseKind("region-share")
	require.NoError(t, err)
	assert.Equal(t, RegionShare, kind)

	_, err = ParseKind("scatter")
	assert.Error(t, err)
}

func TestKindView(t *testing.T) {
	summary := aggregate.Summarize(testutil.ExampleRows())
	assert.Equal(t, summary.ByDate, DateSeries.View(summary))
	assert.Equal(t, summary.ByCategory, CategoryBar.View(summary))
	assert.Equal(t, summary.ByRegion, RegionShare.View(summary))
}

func TestCaptureAllIsolatesFailures(t *testing.T) {
	renderer := &stubRenderer{fail: map[Kind]error{CategoryBar: errors.New("no surface")}}
	summary := aggregate.Summarize(testutil.ExampleRows())

	captures := CaptureAll(context.Background(), zap.NewNop(), renderer, summary)

	assert.EqualValues(t, 3, renderer.calls.Load(), "every chart is attempted")
	assert.Len(t, captures.Images, 2)
	require.Len(t, captures.Errors, 1)

	_, ok := captures.Image(CategoryBar)
	assert.False(t, ok)
	img, ok := captures.Image(RegionShare)
	assert.True(t, ok)
	assert.Equal(t, []byte("png:region-share"), img)

	var captureErr *CaptureError
	require.ErrorAs(t, captures.Errors[CategoryBar], &captureErr)
	assert.Equal(t, CategoryBar, captureErr.Kind)
	assert.Contains(t, captureErr.Error(), "no surface")
}

func TestCaptureAllRecoversPanics(t *testing.T) {
	renderer := &stubRenderer{panic: DateSeries}
	captures := CaptureAll(context.Background(), nil, renderer, aggregate.Summary{})

	assert.Len(t, captures.Images, 2)
	require.Contains(t, captures.Errors, DateSeries)
	assert.Contains(t, captures.Errors[DateSeries].Error(), "renderer panic")
}

func TestCaptureAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	renderer := &stubRenderer{}
	captures := CaptureAll(ctx, zap.NewNop(), renderer, aggregate.Summary{})

	assert.Empty(t, captures.Images)
	assert.Len(t, captures.Errors, 3)
	assert.EqualValues(t, 0, renderer.calls.Load())
	assert.ErrorIs(t, captures.Errors[RegionShare], context.Canceled)
}

func TestCaptureRejectsEmptyImage(t *testing.T) {
	_, err := Capture(context.Background(), emptyRenderer{}, DateSeries, aggregate.Summary{})
	var captureErr *CaptureError
	assert.ErrorAs(t, err, &captureErr)
}

type emptyRenderer struct{}

func (emptyRenderer) Render(Kind, aggregate.View) ([]byte, error) { return nil, nil }

func TestPNGRendererExampleSummary(t *testing.T) {
	renderer := NewPNGRenderer(640, 320, nil)
	summary := aggregate.Summarize(testutil.ExampleRows())

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			img, err := renderer.Render(kind, kind.View(summary))
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, 640, cfg.Width)
			assert.Equal(t, 320, cfg.Height)
		})
	}
}

func TestPNGRendererNoData(t *testing.T) {
	renderer := NewPNGRenderer(0, 0, nil)
	assert.Equal(t, 800, renderer.Width)
	assert.Equal(t, 400, renderer.Height)

	for _, kind := range Kinds() {
		_, err := renderer.Render(kind, nil)
		assert.ErrorIs(t, err, ErrNoData, string(kind))
	}

	refundsOnly := aggregate.View{{Key: "East", Value: decimal.NewFromInt(-10)}}
	_, err := renderer.Render(RegionShare, refundsOnly)
	assert.ErrorIs(t, err, ErrNoData)

	invalidDatesOnly := aggregate.View{{Key: "Invalid Date", Value: decimal.NewFromInt(3)}}
	_, err = renderer.Render(DateSeries, invalidDatesOnly)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestColorForIsStable(t *testing.T) {
	first := ColorFor("Food", categoryPalette)
	assert.Equal(t, first, ColorFor("Food", categoryPalette))

	// "Food" hashes to 2195582 in UTF-16 with a *31 rolling hash; 2195582 % 8 == 6.
	assert.Equal(t, drawing.ColorFromHex(categoryPalette[6]), first)
	assert.Equal(t, drawing.ColorFromHex(regionPalette[0]), ColorFor("", regionPalette))
}
