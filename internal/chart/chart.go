// Package chart renders the aggregate views as PNG images. Rendering a chart
// is the "capture" step of report export: each chart is captured on its own
// and a failed capture never prevents the others.
package chart

import (
	"context"
	"fmt"
	"sync"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind identifies one of the three dashboard charts.
type Kind string

const (
	DateSeries  Kind = "date-series"
	CategoryBar Kind = "category-bar"
	RegionShare Kind = "region-share"
)

// Kinds lists the charts in report order.
func Kinds() []Kind {
	return []Kind{DateSeries, CategoryBar, RegionShare}
}

// ParseKind resolves a chart name as used in URLs.
func ParseKind(name string) (Kind, error) {
	for _, kind := range Kinds() {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown chart %q", name)
}

// Title is the heading shown above the chart.
func (k Kind) Title() string {
	switch k {
	case DateSeries:
		return "Amount by Date"
	case CategoryBar:
		return "Amount by Category"
	case RegionShare:
		return "Share by Region"
	}
	return string(k)
}

// View selects the aggregate view a chart kind plots.
func (k Kind) View(summary aggregate.Summary) aggregate.View {
	switch k {
	case DateSeries:
		return summary.ByDate
	case CategoryBar:
		return summary.ByCategory
	case RegionShare:
		return summary.ByRegion
	}
	return nil
}

// CaptureError reports that one chart could not be turned into an image.
type CaptureError struct {
	Kind Kind
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("failed to capture %s chart: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Renderer turns one aggregate view into PNG bytes.
type Renderer interface {
	Render(kind Kind, view aggregate.View) ([]byte, error)
}

// Captures holds the images that rendered and the failures of those that did not.
type Captures struct {
	Images map[Kind][]byte
	Errors map[Kind]error
}

// Image returns the PNG for kind if its capture succeeded.
func (c Captures) Image(kind Kind) ([]byte, bool) {
	img, ok := c.Images[kind]
	return img, ok && len(img) > 0
}

// Capture renders a single chart, wrapping any failure in a CaptureError.
func Capture(ctx context.Context, renderer Renderer, kind Kind, summary aggregate.Summary) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CaptureError{Kind: kind, Err: err}
	}
	img, err := renderer.Render(kind, kind.View(summary))
	if err != nil {
		return nil, &CaptureError{Kind: kind, Err: err}
	}
	if len(img) == 0 {
		return nil, &CaptureError{Kind: kind, Err: fmt.Errorf("renderer produced no image")}
	}
	return img, nil
}

// CaptureAll renders every chart concurrently. It never fails as a whole:
// each failed chart is logged and recorded in Captures.Errors.
func CaptureAll(ctx context.Context, logger *zap.Logger, renderer Renderer, summary aggregate.Summary) Captures {
	if logger == nil {
		logger = zap.NewNop()
	}

	captures := Captures{
		Images: make(map[Kind][]byte),
		Errors: make(map[Kind]error),
	}
	var mu sync.Mutex
	var g errgroup.Group

	for _, kind := range Kinds() {
		kind := kind
		g.Go(func() error {
			img, err := captureSafely(ctx, renderer, kind, summary)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				captures.Errors[kind] = err
				logger.Warn("chart capture failed, omitting from report",
					zap.String("op", "chart.CaptureAll"),
					zap.String("chart", string(kind)),
					zap.Error(err),
				)
				return nil
			}
			captures.Images[kind] = img
			return nil
		})
	}
	_ = g.Wait()

	return captures
}

// captureSafely turns a renderer panic into a CaptureError so one broken
// chart cannot take down the export.
func captureSafely(ctx context.Context, renderer Renderer, kind Kind, summary aggregate.Summary) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = &CaptureError{Kind: kind, Err: fmt.Errorf("renderer panic: %v", r)}
		}
	}()
	return Capture(ctx, renderer, kind, summary)
}
