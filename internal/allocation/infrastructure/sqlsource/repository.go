package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	allocation "water-usage/internal/allocation/domain"
	consents "water-usage/internal/consents/domain"
	"water-usage/internal/platform/sqldb"
)

const (
	defaultTable          = "D_ACC_Act_Water_TakeWaterWAPAllocation"
	defaultWAPColumn      = "WAP"
	defaultConsentColumn  = "RecordNumber"
	defaultActivityColumn = "Activity"
)

// Repository reads consent to WAP allocation rows.
type Repository struct {
	db             *sql.DB
	dialect        sqldb.Dialect
	table          string
	wapColumn      string
	consentColumn  string
	activityColumn string
	batchSize      int
}

// Option configures the repository.
type Option func(*Repository)

// WithTable overrides the allocation table name.
func WithTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.table = table
		}
	}
}

// WithColumns overrides the WAP, consent and activity column names.
func WithColumns(wap, consent, activity string) Option {
	return func(r *Repository) {
		if wap != "" {
			r.wapColumn = wap
		}
		if consent != "" {
			r.consentColumn = consent
		}
		if activity != "" {
			r.activityColumn = activity
		}
	}
}

// WithBatchSize bounds the consents bound into one statement.
func WithBatchSize(size int) Option {
	return func(r *Repository) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// NewRepository constructs a Repository for the given driver.
func NewRepository(db *sql.DB, driver string, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("allocation repository: nil db")
	}
	dialect, err := sqldb.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	repo := &Repository{
		db:             db,
		dialect:        dialect,
		table:          defaultTable,
		wapColumn:      defaultWAPColumn,
		consentColumn:  defaultConsentColumn,
		activityColumn: defaultActivityColumn,
		batchSize:      sqldb.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(repo)
	}
	for _, name := range []string{repo.table, repo.wapColumn, repo.consentColumn, repo.activityColumn} {
		if _, err := sqldb.Identifier(name); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// List returns allocation rows whose activity and consent are in the given sets.
// Columns are trimmed and case-folded before matching; values are returned as
// stored and callers normalize.
func (r *Repository) List(ctx context.Context, activities, consentNos []string) ([]allocation.Row, error) {
	activities = allocation.NormalizeActivities(activities)
	consentNos = consents.NewSet(consentNos).Strings()
	if len(activities) == 0 || len(consentNos) == 0 {
		return nil, nil
	}
	var result []allocation.Row
	for _, batch := range sqldb.Chunk(consentNos, r.batchSize) {
		rows, err := r.listBatch(ctx, activities, batch)
		if err != nil {
			return nil, err
		}
		result = append(result, rows...)
	}
	return result, nil
}

func (r *Repository) listBatch(ctx context.Context, activities, consentNos []string) ([]allocation.Row, error) {
	args := sqldb.NewArgs(r.dialect)
	query := fmt.Sprintf(`
SELECT %s, %s, %s
FROM %s
WHERE %s
	AND %s`,
		r.wapColumn, r.consentColumn, r.activityColumn,
		r.table,
		args.In(sqldb.LowerTrim(r.activityColumn), activities),
		args.In(sqldb.UpperTrim(r.consentColumn), consentNos),
	)

	rows, err := r.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("allocation query: %w", err)
	}
	defer rows.Close()

	var result []allocation.Row
	for rows.Next() {
		var wap, consentNo, activity sql.NullString
		if err := rows.Scan(&wap, &consentNo, &activity); err != nil {
			return nil, err
		}
		result = append(result, allocation.Row{
			ConsentNo: consentNo.String,
			WAP:       wap.String,
			Activity:  activity.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
