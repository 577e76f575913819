package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/shpandrak/shpanstream/stream"

	allocation "water-usage/internal/allocation/domain"
	"water-usage/internal/platform/sqldb"
	usage "water-usage/internal/usage/domain"
)

const (
	defaultTable         = "TSDataNumericDaily"
	defaultSiteColumn    = "ExtSiteID"
	defaultDatasetColumn = "DatasetTypeID"
	defaultDateColumn    = "DateTime"
	defaultValueColumn   = "Value"

	dateLayout = "2006-01-02"
)

// Query reads daily usage values from the time-series database.
type Query struct {
	db            *sql.DB
	dialect       sqldb.Dialect
	table         string
	siteColumn    string
	datasetColumn string
	dateColumn    string
	valueColumn   string
	batchSize     int
}

// Option configures the query.
type Option func(*Query)

// WithTable overrides the usage table name.
func WithTable(table string) Option {
	return func(q *Query) {
		if table != "" {
			q.table = table
		}
	}
}

// WithColumns overrides the site, dataset type, date and value column names.
func WithColumns(site, dataset, date, value string) Option {
	return func(q *Query) {
		if site != "" {
			q.siteColumn = site
		}
		if dataset != "" {
			q.datasetColumn = dataset
		}
		if date != "" {
			q.dateColumn = date
		}
		if value != "" {
			q.valueColumn = value
		}
	}
}

// WithBatchSize bounds the WAPs bound into one statement.
func WithBatchSize(size int) Option {
	return func(q *Query) {
		if size > 0 {
			q.batchSize = size
		}
	}
}

// NewQuery constructs a Query for the given driver.
func NewQuery(db *sql.DB, driver string, opts ...Option) (*Query, error) {
	if db == nil {
		return nil, errors.New("usage query: nil db")
	}
	dialect, err := sqldb.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	q := &Query{
		db:            db,
		dialect:       dialect,
		table:         defaultTable,
		siteColumn:    defaultSiteColumn,
		datasetColumn: defaultDatasetColumn,
		dateColumn:    defaultDateColumn,
		valueColumn:   defaultValueColumn,
		batchSize:     sqldb.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	for _, name := range []string{q.table, q.siteColumn, q.datasetColumn, q.dateColumn, q.valueColumn} {
		if _, err := sqldb.Identifier(name); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Each streams every matching row, WAP batch by WAP batch, into fn.
// Site IDs are matched trimmed and upper-cased. Rows carry normalized WAPs and
// fall inside the filter range.
func (q *Query) Each(ctx context.Context, filter usage.Filter, fn func(usage.DailyUsage) error) error {
	waps := allocation.NormalizeWAPs(filter.WAPs)
	if len(waps) == 0 || len(filter.DatasetTypeIDs) == 0 {
		return nil
	}
	for _, batch := range sqldb.Chunk(waps, q.batchSize) {
		batchFilter := filter
		batchFilter.WAPs = batch
		if err := q.Stream(batchFilter).ConsumeWithErr(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// Stream returns the rows of a single statement as a stream.
func (q *Query) Stream(filter usage.Filter) stream.Stream[usage.DailyUsage] {
	raw := stream.NewStream[usage.DailyUsage](&rowProvider{query: q, filter: filter})
	inRange := raw.Filter(func(u usage.DailyUsage) bool {
		return filter.Range.Contains(u.Date)
	})
	return stream.Map[usage.DailyUsage, usage.DailyUsage](inRange, func(u usage.DailyUsage) usage.DailyUsage {
		u.WAP = allocation.NormalizeWAP(u.WAP)
		return u
	})
}

func (q *Query) statement(filter usage.Filter) (string, []any) {
	args := sqldb.NewArgs(q.dialect)
	query := fmt.Sprintf(`
SELECT %s, %s, %s, %s
FROM %s
WHERE %s
	AND %s
	AND %s >= %s
	AND %s < %s`,
		q.siteColumn, q.datasetColumn, q.dateColumn, q.valueColumn,
		q.table,
		args.In(q.datasetColumn, filter.DatasetTypeIDs),
		args.In(sqldb.UpperTrim(q.siteColumn), allocation.NormalizeWAPs(filter.WAPs)),
		q.dateColumn, args.Add(filter.Range.From.Format(dateLayout)),
		q.dateColumn, args.Add(filter.Range.EndExclusive().Format(dateLayout)),
	)
	return query, args.Values()
}

type rowProvider struct {
	query  *Query
	filter usage.Filter
	rows   *sql.Rows
}

func (p *rowProvider) Open(ctx context.Context) error {
	statement, args := p.query.statement(p.filter)
	rows, err := p.query.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return fmt.Errorf("usage query: %w", err)
	}
	p.rows = rows
	return nil
}

func (p *rowProvider) Close() {
	if p.rows != nil {
		_ = p.rows.Close()
	}
}

func (p *rowProvider) Emit(ctx context.Context) (usage.DailyUsage, error) {
	if err := ctx.Err(); err != nil {
		return usage.DailyUsage{}, err
	}
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return usage.DailyUsage{}, fmt.Errorf("usage query: %w", err)
		}
		return usage.DailyUsage{}, io.EOF
	}

	var site, dataset sql.NullString
	var at sqldb.FlexTime
	var value sql.NullFloat64
	if err := p.rows.Scan(&site, &dataset, &at, &value); err != nil {
		return usage.DailyUsage{}, err
	}
	if !at.Valid {
		return usage.DailyUsage{}, fmt.Errorf("%w: site %s", usage.ErrInvalidDate, site.String)
	}
	row := usage.DailyUsage{
		WAP:           site.String,
		DatasetTypeID: dataset.String,
		Date:          at.Time,
	}
	if value.Valid {
		v := value.Float64
		row.Volume = &v
	}
	return row, nil
}
