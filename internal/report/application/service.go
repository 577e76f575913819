package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	allocation "water-usage/internal/allocation/domain"
	consentapp "water-usage/internal/consents/application"
	consents "water-usage/internal/consents/domain"
	"water-usage/internal/observability/metrics"
	report "water-usage/internal/report/domain"
	"water-usage/internal/report/interfaces"
	usage "water-usage/internal/usage/domain"
)

// Clock provides time for the service.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now in UTC.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ConsentLoader loads the target consent set.
type ConsentLoader interface {
	LoadAll(ctx context.Context, sources []consentapp.ListSource) (consents.Set, error)
}

// AllocationSource lists consent to WAP allocation rows.
type AllocationSource interface {
	List(ctx context.Context, activities, consentNos []string) ([]allocation.Row, error)
}

// UsageSource streams daily usage records.
type UsageSource interface {
	Each(ctx context.Context, filter usage.Filter, fn func(usage.DailyUsage) error) error
}

// Exporter writes the summary table.
type Exporter interface {
	Export(ctx context.Context, meta interfaces.Meta, formats []string, rows []report.SummaryRow) ([]string, error)
}

// Params are the inputs of one run.
type Params struct {
	Organization   string
	ConsentLists   []consentapp.ListSource
	Activities     []string
	DatasetTypeIDs []string
	Range          usage.DateRange
	Formats        []string
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Consents  int
	Pairs     int
	WAPs      int
	UsageRows int
	Groups    int
	Rows      []report.SummaryRow
	Paths     []string
}

// Service computes annual usage per consent WAP.
type Service struct {
	consents   ConsentLoader
	allocation AllocationSource
	usage      UsageSource
	exporter   Exporter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	clock      Clock
}

// Option configures the service.
type Option func(*Service)

// WithMetrics records step metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a Service.
func NewService(consentLoader ConsentLoader, allocationSource AllocationSource, usageSource UsageSource, exporter Exporter, opts ...Option) (*Service, error) {
	if consentLoader == nil {
		return nil, errors.New("report: nil consent loader")
	}
	if allocationSource == nil {
		return nil, errors.New("report: nil allocation source")
	}
	if usageSource == nil {
		return nil, errors.New("report: nil usage source")
	}
	if exporter == nil {
		return nil, errors.New("report: nil exporter")
	}
	s := &Service{
		consents:   consentLoader,
		allocation: allocationSource,
		usage:      usageSource,
		exporter:   exporter,
		logger:     zap.NewNop(),
		clock:      SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes the pipeline once.
func (s *Service) Run(ctx context.Context, params Params) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	logger := s.logger.With(zap.String("run_id", result.RunID))
	started := s.clock.Now()

	err := s.run(ctx, params, &result, logger)
	s.metrics.RunFinished(s.clock.Now(), result.Groups, err)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return result, err
	}
	logger.Info("run completed",
		zap.Int("consents", result.Consents),
		zap.Int("waps", result.WAPs),
		zap.Int("usage_rows", result.UsageRows),
		zap.Int("groups", result.Groups),
		zap.Int("output_rows", len(result.Rows)),
		zap.Strings("paths", result.Paths),
		zap.Duration("elapsed", s.clock.Now().Sub(started)),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, params Params, result *Result, logger *zap.Logger) error {
	start := time.Now()
	consentSet, err := s.consents.LoadAll(ctx, params.ConsentLists)
	s.metrics.ObserveStep("load_consents", start, err)
	if err != nil {
		return fmt.Errorf("load consents: %w", err)
	}
	result.Consents = len(consentSet)
	s.metrics.AddRows(metrics.SourceConsents, len(consentSet))
	logger.Info("consents loaded", zap.Int("consents", len(consentSet)), zap.Int("lists", len(params.ConsentLists)))

	start = time.Now()
	rows, err := s.allocation.List(ctx, params.Activities, consentSet.Strings())
	s.metrics.ObserveStep("load_allocation", start, err)
	if err != nil {
		return fmt.Errorf("load allocation: %w", err)
	}
	s.metrics.AddRows(metrics.SourceAllocation, len(rows))
	pairs := allocation.Deduplicate(rows)
	waps := allocation.WAPs(pairs)
	result.Pairs = len(pairs)
	result.WAPs = len(waps)
	logger.Info("allocation loaded", zap.Int("rows", len(rows)), zap.Int("pairs", len(pairs)), zap.Int("waps", len(waps)))
	if len(waps) == 0 {
		logger.Warn("no WAPs allocated to the consent set")
	}

	start = time.Now()
	rollup := usage.NewAnnualRollup()
	filter := usage.Filter{DatasetTypeIDs: params.DatasetTypeIDs, WAPs: waps, Range: params.Range}
	err = s.usage.Each(ctx, filter, rollup.Add)
	s.metrics.ObserveStep("load_usage", start, err)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	annual := rollup.Results()
	result.UsageRows = rollup.Rows()
	result.Groups = len(annual)
	s.metrics.AddRows(metrics.SourceUsage, rollup.Rows())
	logger.Info("usage aggregated",
		zap.Int("rows", rollup.Rows()),
		zap.Int("groups", len(annual)),
		zap.String("from", params.Range.From.Format("2006-01-02")),
		zap.String("to", params.Range.To.Format("2006-01-02")),
	)

	result.Rows = report.AttachConsents(annual, pairs)

	start = time.Now()
	meta := interfaces.Meta{
		Organization: params.Organization,
		RunID:        result.RunID,
		From:         params.Range.From,
		To:           params.Range.To,
		GeneratedAt:  s.clock.Now(),
	}
	paths, err := s.exporter.Export(ctx, meta, params.Formats, result.Rows)
	s.metrics.ObserveStep("export", start, err)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	result.Paths = paths
	s.metrics.AddRows(metrics.SourceOutput, len(result.Rows))
	for _, p := range paths {
		logger.Debug("report written", zap.String("path", p))
	}
	return nil
}
