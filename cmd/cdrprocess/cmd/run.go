package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cdrcli/internal/config"
	"cdrcli/internal/infrastructure"
	"cdrcli/internal/operations"
	"cdrcli/internal/report"
	"cdrcli/internal/settings"
	"cdrcli/internal/store"
	"cdrcli/pkg/contracts/domain"
)

type runOptions struct {
	*options
	batchSize   int
	metricsFile string
	outputDir   string
}

func newRunCmd(opts *options) *cobra.Command {
	ro := &runOptions{options: opts}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "CDR 파일을 적재하고 미통화 리포트 생성",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().IntVar(&ro.batchSize, "batch-size", 0, "rows per staging transaction (default from config)")
	cmd.Flags().StringVar(&ro.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	cmd.Flags().StringVar(&ro.outputDir, "output-dir", "", "write the report here instead of beside the input")
	return cmd
}

func (o *runOptions) resolveConfig() (*config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	if o.batchSize > 0 {
		cfg.Pipeline.BatchSize = o.batchSize
	}
	if o.metricsFile != "" {
		cfg.Telemetry.MetricsFile = o.metricsFile
	}
	if o.outputDir != "" {
		cfg.Pipeline.OutputDir = o.outputDir
	}
	return cfg, nil
}

func (o *runOptions) run(ctx context.Context, out io.Writer, input string) error {
	cfg, err := o.resolveConfig()
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	// one id for the whole invocation, settings bootstrap included
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	profile, err := settings.Bootstrap(ctx, cfg, logger)
	if err != nil {
		tel.Metrics.RecordRun(ctx, infrastructure.RunStatusFailed)
		o.writeMetrics(tel, cfg, logger)
		return err
	}

	manager, reporter, err := buildManager(cfg, profile, tel, logger)
	if err != nil {
		return err
	}

	var summary domain.RunSummary
	var g errgroup.Group
	g.Go(func() error {
		s, err := manager.Run(ctx, operations.NewRunState(runID, input))
		summary = s
		return err
	})

	printer := newEventPrinter(out)
	operations.Drain(reporter.Events(), printer.Print)
	runErr := g.Wait()

	printSummary(out, summary)
	o.writeMetrics(tel, cfg, logger)
	return runErr
}

// buildManager wires the pipeline to the resolved profile and config
func buildManager(cfg *config.Config, profile settings.Profile, tel *infrastructure.Telemetry, logger *slog.Logger) (*operations.Manager, *operations.Reporter, error) {
	tables := store.TableNames{
		Ledger: cfg.Tables.Ledger,
		Member: cfg.Tables.Member,
		Staff:  cfg.Tables.Staff,
	}
	info := profile.ConnInfo()

	registry, err := operations.NewPipeline(operations.Dependencies{
		Open: func(ctx context.Context) (*store.DB, error) {
			return store.Open(ctx, info, tables, logger)
		},
		Renderer: report.NewRenderer(report.Options{
			Label:          cfg.Report.Label,
			MaxColumnWidth: cfg.Report.MaxColumnWidth,
		}, logger),
		BatchSize: cfg.Pipeline.BatchSize,
		Correlate: store.CorrelateOptions{
			SuccessResult:   cfg.Pipeline.SuccessResult,
			MinSenderLength: cfg.Pipeline.MinSenderLength,
			WindowStart:     cfg.Pipeline.WindowStart,
			WindowEnd:       cfg.Pipeline.WindowEnd,
		},
		OutputDir: cfg.Pipeline.OutputDir,
		Metrics:   tel.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}

	reporter := operations.NewReporter(operations.DefaultEventBuffer, logger)
	manager := operations.NewManager(registry, reporter,
		operations.WithLogger(logger),
		operations.WithTracer(operations.NewRunTracer(tel.Tracer, tel.Metrics)),
	)
	return manager, reporter, nil
}

func (o *runOptions) writeMetrics(tel *infrastructure.Telemetry, cfg *config.Config, logger *slog.Logger) {
	if cfg.Telemetry.MetricsFile == "" {
		return
	}
	if err := tel.WriteMetrics(cfg.Telemetry.MetricsFile); err != nil {
		logger.Warn("metrics_write_failed",
			slog.String("path", cfg.Telemetry.MetricsFile),
			slog.String("error", err.Error()))
	}
}

func printSummary(out io.Writer, s domain.RunSummary) {
	if !s.Succeeded() {
		fmt.Fprintf(out, "\n실패: %s\n", s.Error)
		return
	}
	fmt.Fprintf(out, "\n완료: %s\n", s.ReportPath)
	fmt.Fprintf(out, "  rows read    %d\n", s.RowsRead)
	fmt.Fprintf(out, "  rows staged  %d\n", s.RowsStaged)
	fmt.Fprintf(out, "  no-answers   %d\n", s.NoAnswers)
	fmt.Fprintf(out, "  ledger rows  %d\n", s.LedgerRows)
	fmt.Fprintf(out, "  elapsed      %s\n", s.Duration.Round(time.Millisecond))
}
