// Package main provides the CLI entrypoint for data-dashboard.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/data-dashboard/internal/chart"
	"github.com/iwvelando/data-dashboard/internal/config"
	"github.com/iwvelando/data-dashboard/internal/dashboard"
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/internal/metrics"
	"github.com/iwvelando/data-dashboard/internal/report"
	"github.com/iwvelando/data-dashboard/internal/sample"
	"github.com/iwvelando/data-dashboard/internal/server"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/format"
	"github.com/iwvelando/data-dashboard/pkg/output"
	"github.com/iwvelando/data-dashboard/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	input      string
	sampleURL  string
	start      string
	end        string
	category   string
}

// app is the state shared by every subcommand once flags and config are read.
type app struct {
	conf    *config.Configuration
	logger  *zap.Logger
	locale  *format.Locale
	session *dashboard.Session
	sample  *sample.Loader
	metrics *metrics.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	summary := &summaryOptions{}

	rootCmd := &cobra.Command{
		Use:           "data-dashboard",
		Short:         "Parse, filter and summarize CSV data, export reports, or serve the dashboard API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, opts, summary)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.input, "input", "", "CSV file to load, or - for stdin (default: sample data)")
	flags.StringVar(&opts.sampleURL, "sample-url", "", "base URL to fetch docs/sample.csv from (default: bundled sample)")
	flags.StringVar(&opts.start, "start", "", "inclusive start date (YYYY-MM-DD)")
	flags.StringVar(&opts.end, "end", "", "inclusive end date (YYYY-MM-DD)")
	flags.StringVar(&opts.category, "category", constants.AllCategories, "category to keep, or All")

	summary.bind(rootCmd)

	rootCmd.AddCommand(newSummaryCmd(opts))
	rootCmd.AddCommand(newReportCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))

	return rootCmd
}

type summaryOptions struct {
	outputFormat string
	out          string
}

func (s *summaryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.outputFormat, "output-format", "", "type of output override: pretty, csv, json, yaml, xlsx")
	cmd.Flags().StringVar(&s.out, "out", "", "write output to this file instead of stdout")
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	summary := &summaryOptions{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print KPIs and aggregate views of the filtered rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, opts, summary)
		},
	}
	summary.bind(cmd)
	return cmd
}

func runSummary(cmd *cobra.Command, opts *rootOptions, summary *summaryOptions) error {
	a, err := prepare(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	// CLI override takes precedence over config
	outputFormat := a.conf.Output.Format
	if summary.outputFormat != "" {
		outputFormat = summary.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	w, closeOut, err := openOutput(cmd, summary.out)
	if err != nil {
		return err
	}
	if err := output.Write(w, outputFormat, a.session.View(), a.locale); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write %s output: %w", outputFormat, err)
	}
	return closeOut()
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the filtered dashboard as a PDF report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			if out == "" {
				out = a.conf.Report.OutputFile
			}
			renderer := chart.NewPNGRenderer(a.conf.Report.ChartWidth, a.conf.Report.ChartHeight, a.locale)
			doc, view := a.session.Report(cmd.Context(), renderer, time.Now())

			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := report.WritePDF(w, doc); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			a.logger.Info("report written",
				zap.String("op", "main.report"),
				zap.String("report_id", doc.ID),
				zap.String("path", out),
			)
			if out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d charts, %d of %d rows)\n",
					out, len(doc.Charts()), len(view.Rows), view.TotalRows)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "report file path, or - for stdout (default: report.outputFile)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			if address == "" {
				address = a.conf.Server.Address
			}
			handler := server.NewHandler(server.Options{
				Logger:        a.logger,
				Session:       a.session,
				Sample:        a.sample,
				Renderer:      chart.NewPNGRenderer(a.conf.Report.ChartWidth, a.conf.Report.ChartHeight, a.locale),
				Metrics:       a.metrics,
				Locale:        a.locale,
				MaxUploadSize: a.conf.Server.UploadSizeBytes(),
				Version:       version,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, address, handler, a.logger)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (default: server.address)")
	return cmd
}

// prepare loads configuration, builds the logger, loads the data and applies
// the filter flags.
func prepare(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	conf, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}

	logger, err := config.NewLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	locale, err := format.NewLocale(conf.Report.Locale, conf.Report.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	criteria, err := dataset.ParseCriteria(opts.start, opts.end, opts.category)
	if err != nil {
		return nil, err
	}

	baseURL := conf.Sample.BaseURL
	if opts.sampleURL != "" {
		baseURL = opts.sampleURL
	}

	// Only serve exposes /metrics.
	var m *metrics.Metrics
	if cmd.Name() == "serve" {
		m = metrics.New()
	}

	loader := sample.NewLoader(sample.Options{
		BaseURL:  baseURL,
		Path:     conf.Sample.Path,
		Timeout:  conf.Sample.Timeout,
		Attempts: conf.Sample.Attempts,
	}, logger)

	a := &app{
		conf:    conf,
		logger:  logger,
		locale:  locale,
		session: dashboard.NewSession(logger, m),
		sample:  loader,
		metrics: m,
	}

	if err := a.load(cmd, opts.input); err != nil {
		return nil, err
	}

	a.session.SetCriteria(criteria)
	for _, warning := range validation.CriteriaWarnings(criteria.Start, criteria.End, criteria.Category, a.session.View().Categories) {
		logger.Warn("Filter warning: "+warning, zap.String("op", "main"))
	}
	return a, nil
}

// load reads --input when given. Otherwise the sample is loaded; a failed
// sample load is logged and leaves the dashboard empty.
func (a *app) load(cmd *cobra.Command, input string) error {
	switch input {
	case "":
		if err := a.session.LoadSample(cmd.Context(), a.sample); err != nil {
			a.logger.Warn("continuing without sample data",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return nil
	case "-":
		_, err := a.session.Load(cmd.InOrStdin(), "stdin")
		return err
	}

	file, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()
	_, err = a.session.Load(file, input)
	return err
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, file.Close, nil
}
