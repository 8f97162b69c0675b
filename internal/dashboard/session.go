package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/data-dashboard/internal/chart"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/internal/metrics"
	"github.com/iwvelando/data-dashboard/internal/report"
	"go.uber.org/zap"
)

// ErrSuperseded is returned by LoadSample when a newer load or an upload
// replaced the data while the fetch was in flight.
var ErrSuperseded = errors.New("sample load superseded by a newer load")

// Fetcher returns raw CSV text.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Status is the load state shown next to the dashboard.
type Status struct {
	Loading bool   `json:"loading" yaml:"loading"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	LoadID  string `json:"loadId,omitempty" yaml:"loadId,omitempty"`
}

// Session is the in-memory dashboard state. It is safe for concurrent use.
type Session struct {
	mu         sync.RWMutex
	rows       []dataset.Row
	criteria   dataset.Criteria
	status     Status
	generation uint64

	parser  *dataset.Parser
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSession creates an empty session showing all rows. m may be nil.
func NewSession(logger *zap.Logger, m *metrics.Metrics) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		rows:     []dataset.Row{},
		criteria: dataset.AllRows(),
		parser:   dataset.NewParser(logger),
		metrics:  m,
		logger:   logger,
	}
}

// SetRows replaces the row set and supersedes any in-flight sample load.
func (s *Session) SetRows(rows []dataset.Row, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.rows = rows
	s.status = Status{Source: source, LoadID: uuid.NewString()}
}

// Load parses CSV text from r and replaces the row set with it. A structural
// parse failure is recorded in Status and leaves the previous rows in place.
func (s *Session) Load(r io.Reader, source string) (dataset.Stats, error) {
	rows, stats, err := s.parser.Parse(r)
	s.metrics.ObserveParse(stats.Accepted, stats.Rejected, err)
	if err != nil {
		s.logger.Warn("failed to parse uploaded CSV",
			zap.String("op", "dashboard.Load"),
			zap.String("source", source),
			zap.Error(err),
		)
		s.mu.Lock()
		s.generation++
		s.status = Status{Error: err.Error(), Source: s.status.Source, LoadID: s.status.LoadID}
		s.mu.Unlock()
		return stats, err
	}

	s.SetRows(rows, source)
	s.logger.Info("loaded CSV",
		zap.String("op", "dashboard.Load"),
		zap.String("source", source),
		zap.Int("accepted", stats.Accepted),
		zap.Int("rejected", stats.Rejected),
	)
	return stats, nil
}

// LoadSample fetches and parses the sample dataset. The result is committed
// only if no other load or upload started meanwhile and ctx is still live.
// A superseded load leaves the session to whoever superseded it; a cancelled
// one puts back the status it found, so the session ends as if the load
// never started.
func (s *Session) LoadSample(ctx context.Context, fetcher Fetcher) error {
	loadID := uuid.NewString()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	before := s.status
	s.status = Status{Loading: true, Source: s.status.Source, LoadID: loadID}
	s.mu.Unlock()

	logger := s.logger.With(zap.String("op", "dashboard.LoadSample"), zap.String("load_id", loadID))

	body, err := fetcher.Fetch(ctx)
	var rows []dataset.Row
	if err == nil {
		var stats dataset.Stats
		rows, stats, err = s.parser.Parse(bytes.NewReader(body))
		s.metrics.ObserveParse(stats.Accepted, stats.Rejected, err)
	} else if ctx.Err() == nil {
		s.metrics.SampleFetchFailed()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		logger.Debug("discarding superseded sample load")
		return ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.status = before
		logger.Debug("discarding cancelled sample load")
		return ctxErr
	}
	if err != nil {
		s.status = Status{Error: err.Error(), Source: s.status.Source, LoadID: loadID}
		logger.Warn("failed to load sample data", zap.Error(err))
		return fmt.Errorf("failed to load sample data: %w", err)
	}

	s.rows = rows
	s.status = Status{Source: "sample", LoadID: loadID}
	logger.Info("loaded sample data", zap.Int("rows", len(rows)))
	return nil
}

// SetCriteria replaces the filter criteria.
func (s *Session) SetCriteria(criteria dataset.Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = criteria
}

// Criteria returns the current filter criteria.
func (s *Session) Criteria() dataset.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// Status returns the current load state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// View computes the dashboard for the current rows and criteria.
func (s *Session) View() View {
	s.mu.RLock()
	rows, criteria := s.rows, s.criteria
	s.mu.RUnlock()
	return Compute(rows, criteria)
}

// Report captures the charts for the current view and assembles the report
// document. Charts that fail to render are counted and left out.
func (s *Session) Report(ctx context.Context, renderer chart.Renderer, now time.Time) (report.Document, View) {
	view := s.View()
	captures := chart.CaptureAll(ctx, s.logger, renderer, view.Summary)
	for kind := range captures.Errors {
		s.metrics.CaptureFailed(string(kind))
	}
	doc := report.Assemble(view.Summary.KPI, captures, view.Rows, now)
	s.logger.Info("assembled report",
		zap.String("op", "dashboard.Report"),
		zap.String("report_id", doc.ID),
		zap.Int("charts", len(doc.Charts())),
		zap.Int("rows", len(view.Rows)),
	)
	return doc, view
}
