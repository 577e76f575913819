package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	allocationsql "water-usage/internal/allocation/infrastructure/sqlsource"
	"water-usage/internal/config"
	consentapp "water-usage/internal/consents/application"
	"water-usage/internal/consents/infrastructure/csvfile"
	"water-usage/internal/observability/logging"
	"water-usage/internal/observability/metrics"
	"water-usage/internal/platform/sqldb"
	reportapp "water-usage/internal/report/application"
	"water-usage/internal/report/interfaces"
	usagesql "water-usage/internal/usage/infrastructure/sqlsource"
)

type runOptions struct {
	from    string
	to      string
	out     string
	name    string
	formats []string
	verbose bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute annual usage and write the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runReport(cmd, cfg, opts.verbose)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.from, "from", "", "first telemetry day, YYYY-MM-DD")
	flags.StringVar(&opts.to, "to", "", "last telemetry day, YYYY-MM-DD")
	flags.StringVarP(&opts.out, "out", "o", "", "output directory")
	flags.StringVar(&opts.name, "name", "", "output file name without extension")
	flags.StringSliceVarP(&opts.formats, "format", "f", nil, "output formats: csv, xlsx, pdf")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.Telemetry.From = o.from
	}
	if flags.Changed("to") {
		cfg.Telemetry.To = o.to
	}
	if flags.Changed("out") {
		cfg.Output.Dir = o.out
	}
	if flags.Changed("name") {
		cfg.Output.Name = o.name
	}
	if flags.Changed("format") {
		cfg.Output.Formats = o.formats
	}
}

func runReport(cmd *cobra.Command, cfg config.Config, verbose bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development, verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dateRange, err := cfg.Range()
	if err != nil {
		return err
	}

	allocationDB, err := sqldb.Open(ctx, cfg.Allocation.Driver, cfg.Allocation.DSN)
	if err != nil {
		return fmt.Errorf("allocation db: %w", err)
	}
	defer allocationDB.Close()

	usageDB := allocationDB
	if cfg.Usage.Driver != cfg.Allocation.Driver || cfg.Usage.DSN != cfg.Allocation.DSN {
		var openErr error
		usageDB, openErr = sqldb.Open(ctx, cfg.Usage.Driver, cfg.Usage.DSN)
		if openErr != nil {
			return fmt.Errorf("usage db: %w", openErr)
		}
		defer usageDB.Close()
	}

	svc, m, err := buildService(cfg, allocationDB, usageDB, logger)
	if err != nil {
		return err
	}

	result, runErr := svc.Run(ctx, reportapp.Params{
		Organization:   cfg.Organization,
		ConsentLists:   listSources(cfg.Consents.Lists),
		Activities:     cfg.Allocation.Activities,
		DatasetTypeIDs: cfg.Usage.DatasetTypeIDs,
		Range:          dateRange,
		Formats:        cfg.Output.Formats,
	})
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics textfile write failed", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d consents, %d WAPs, %d rows\n", result.RunID, result.Consents, result.WAPs, len(result.Rows))
	for _, path := range result.Paths {
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func buildService(cfg config.Config, allocationDB, usageDB *sql.DB, logger *zap.Logger) (*reportapp.Service, *metrics.Metrics, error) {
	loader, err := consentapp.NewLoader(csvfile.ListReader{})
	if err != nil {
		return nil, nil, err
	}
	allocationRepo, err := allocationsql.NewRepository(allocationDB, cfg.Allocation.Driver,
		allocationsql.WithTable(cfg.Allocation.Table),
		allocationsql.WithColumns(cfg.Allocation.WAPColumn, cfg.Allocation.ConsentColumn, cfg.Allocation.ActivityColumn),
		allocationsql.WithBatchSize(cfg.Allocation.BatchSize),
	)
	if err != nil {
		return nil, nil, err
	}
	usageQuery, err := usagesql.NewQuery(usageDB, cfg.Usage.Driver,
		usagesql.WithTable(cfg.Usage.Table),
		usagesql.WithColumns(cfg.Usage.SiteColumn, cfg.Usage.DatasetColumn, cfg.Usage.DateColumn, cfg.Usage.ValueColumn),
		usagesql.WithBatchSize(cfg.Usage.BatchSize),
	)
	if err != nil {
		return nil, nil, err
	}
	exporter := interfaces.FileExporter{
		Dir:       cfg.Output.Dir,
		Name:      cfg.Output.Name,
		Delimiter: cfg.DelimiterRune(),
	}

	m := metrics.New()
	svc, err := reportapp.NewService(loader, allocationRepo, usageQuery, exporter,
		reportapp.WithLogger(logger.With(zap.String("organization", cfg.Organization))),
		reportapp.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, m, nil
}

func listSources(lists []config.ListConfig) []consentapp.ListSource {
	sources := make([]consentapp.ListSource, 0, len(lists))
	for _, l := range lists {
		sources = append(sources, consentapp.ListSource{Path: l.Path, Column: l.Column})
	}
	return sources
}
