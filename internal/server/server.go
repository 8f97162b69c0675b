// Package server exposes the dashboard session over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/iwvelando/data-dashboard/internal/chart"
	"github.com/iwvelando/data-dashboard/internal/dashboard"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/internal/metrics"
	"github.com/iwvelando/data-dashboard/internal/report"
	"github.com/iwvelando/data-dashboard/internal/sample"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/format"
	"github.com/iwvelando/data-dashboard/pkg/output"
	"github.com/iwvelando/data-dashboard/pkg/validation"
	"go.uber.org/zap"
)

// Options wires the handler to its collaborators. Only Session is required.
type Options struct {
	Logger        *zap.Logger
	Session       *dashboard.Session
	Sample        dashboard.Fetcher
	Renderer      chart.Renderer
	Metrics       *metrics.Metrics
	Locale        *format.Locale
	MaxUploadSize int64
	Version       string
	Now           func() time.Time
}

type handler struct {
	logger        *zap.Logger
	session       *dashboard.Session
	sample        dashboard.Fetcher
	renderer      chart.Renderer
	metrics       *metrics.Metrics
	locale        *format.Locale
	maxUploadSize int64
	version       string
	now           func() time.Time
}

// NewHandler constructs the HTTP handler that serves the dashboard API.
func NewHandler(opts Options) http.Handler {
	h := &handler{
		logger:        opts.Logger,
		session:       opts.Session,
		sample:        opts.Sample,
		renderer:      opts.Renderer,
		metrics:       opts.Metrics,
		locale:        opts.Locale,
		maxUploadSize: opts.MaxUploadSize,
		version:       strings.TrimSpace(opts.Version),
		now:           opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.session == nil {
		h.session = dashboard.NewSession(h.logger, h.metrics)
	}
	if h.sample == nil {
		h.sample = sample.NewLoader(sample.Options{}, h.logger)
	}
	if h.locale == nil {
		h.locale = format.MustLocale(constants.DefaultLocale, constants.DefaultCurrencySymbol)
	}
	if h.renderer == nil {
		h.renderer = chart.NewPNGRenderer(constants.DefaultChartWidth, constants.DefaultChartHeight, h.locale)
	}
	if h.maxUploadSize <= 0 {
		h.maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Put("/filters", h.handleFilters)
		r.Post("/upload", h.handleUpload)
		r.Post("/sample/reload", h.handleSampleReload)
		r.Get("/charts/{kind}", h.handleChart)
		r.Get("/report", h.handleReport)
		r.Get("/export", h.handleExport)
		r.Get("/version", h.handleVersion)
	})
	r.Get("/"+constants.DefaultSamplePath, h.handleSampleFile)
	r.Handle("/metrics", h.metrics.Handler())

	return r
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "server.request"),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type kpiDisplay struct {
	Total       string `json:"total"`
	MonthlyAvg  string `json:"monthlyAvg"`
	TopCategory string `json:"topCategory"`
}

type dashboardResponse struct {
	dashboard.View
	Status   dashboard.Status `json:"status"`
	Display  kpiDisplay       `json:"display"`
	Stats    *dataset.Stats   `json:"stats,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

func (h *handler) dashboardResponse() dashboardResponse {
	view := h.session.View()
	kpi := view.Summary.KPI
	return dashboardResponse{
		View:   view,
		Status: h.session.Status(),
		Display: kpiDisplay{
			Total:       h.locale.WholeCurrency(kpi.Total),
			MonthlyAvg:  h.locale.WholeCurrency(kpi.MonthlyAvg),
			TopCategory: kpi.TopCategoryLabel(),
		},
	}
}

func (h *handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.dashboardResponse())
}

type filtersRequest struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

func (h *handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("invalid filter request: %v", err), "server.handleFilters", err)
		return
	}

	criteria, err := dataset.ParseCriteria(req.Start, req.End, req.Category)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), "server.handleFilters", err)
		return
	}
	h.session.SetCriteria(criteria)

	resp := h.dashboardResponse()
	resp.Warnings = validation.CriteriaWarnings(criteria.Start, criteria.End, criteria.Category, resp.Categories)
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), "server.handleUpload", err)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), "server.handleUpload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing CSV file", "server.handleUpload", err)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handleUpload"),
				zap.Error(closeErr),
			)
		}
	}()

	stats, err := h.session.Load(file, header.Filename)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusUnprocessableEntity, err.Error(), "server.handleUpload", err)
		return
	}

	resp := h.dashboardResponse()
	resp.Stats = &stats
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *handler) handleSampleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.session.LoadSample(r.Context(), h.sample); err != nil {
		status := http.StatusBadGateway
		var parseErr *dataset.ParseError
		switch {
		case errors.Is(err, dashboard.ErrSuperseded):
			status = http.StatusConflict
		case errors.As(err, &parseErr):
			status = http.StatusUnprocessableEntity
		}
		h.respondErrorWithOp(w, r, status, err.Error(), "server.handleSampleReload", err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.dashboardResponse())
}

func (h *handler) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, err := chart.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusNotFound, err.Error(), "server.handleChart", nil)
		return
	}

	img, err := chart.Capture(r.Context(), h.renderer, kind, h.session.View().Summary)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrNoData) {
			status = http.StatusNotFound
		}
		h.respondErrorWithOp(w, r, status, err.Error(), "server.handleChart", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, _ := h.session.Report(r.Context(), h.renderer, h.now())

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, doc); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to build report: %v", err), "server.handleReport", err)
		return
	}
	h.metrics.ReportGenerated()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("X-Report-Id", doc.ID)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = constants.OutputFormatCSV
	}
	if err := validation.ValidateOutputFormat(formatName); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), "server.handleExport", nil)
		return
	}

	var buf bytes.Buffer
	if err := output.Write(&buf, formatName, h.session.View(), h.locale); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to export: %v", err), "server.handleExport", err)
		return
	}

	w.Header().Set("Content-Type", output.ContentType(formatName))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "dashboard."+output.FileExtension(formatName)))
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleSampleFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = w.Write(sample.Bundled())
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, message, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, fields...)
	} else {
		h.logger.Warn(message, fields...)
	}
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}
