package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"water-usage/internal/platform/sqldb"
	usage "water-usage/internal/usage/domain"
	usagesql "water-usage/internal/usage/infrastructure/sqlsource"
)

func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sqldb.Open(context.Background(), sqldb.DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUsageTable(t *testing.T, db *sql.DB, dateType string) string {
	t.Helper()
	ctx := context.Background()
	table := fmt.Sprintf("wapusage_daily_%d", time.Now().UnixNano())

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE %s (
	ExtSiteID TEXT NOT NULL,
	DatasetTypeID INTEGER NOT NULL,
	DateTime %s NOT NULL,
	Value DOUBLE PRECISION
)`, table, dateType))
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)) })

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (ExtSiteID, DatasetTypeID, DateTime, Value) VALUES
	('bx23/0001 ', 9, '2014-06-30', 99),
	('bx23/0001 ', 9, '2014-07-01', 1.5),
	('BX23/0001', 12, '2015-06-30', 2.5),
	('BX23/0001', 12, '2019-06-30', NULL),
	('BX23/0001', 12, '2019-07-01', 7),
	('BX23/0001', 5, '2016-01-01', 3),
	('BX23/0002', 9, '2016-01-01', 4)`, table))
	if err != nil {
		t.Fatalf("insert rows: %v", err)
	}
	return table
}

func telemetryFilter(t *testing.T, waps ...string) usage.Filter {
	t.Helper()
	r, err := usage.NewDateRange(
		time.Date(2014, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, time.June, 30, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	return usage.Filter{DatasetTypeIDs: usage.DefaultDatasetTypeIDs, WAPs: waps, Range: r}
}

func TestPostgresUsageRollup(t *testing.T) {
	db := openPostgres(t)

	for _, dateType := range []string{"TIMESTAMP", "DATE"} {
		t.Run(dateType, func(t *testing.T) {
			table := createUsageTable(t, db, dateType)
			query, err := usagesql.NewQuery(db, sqldb.DriverPostgres,
				usagesql.WithTable(table),
				usagesql.WithBatchSize(1),
			)
			if err != nil {
				t.Fatalf("new query: %v", err)
			}

			rollup := usage.NewAnnualRollup()
			if err := query.Each(context.Background(), telemetryFilter(t, "BX23/0001", "BX23/0002"), rollup.Add); err != nil {
				t.Fatalf("each: %v", err)
			}
			if rollup.Rows() != 4 {
				t.Fatalf("expected 4 rows, got %d", rollup.Rows())
			}

			type group struct {
				wap    string
				fy     int
				volume string
				days   int
			}
			want := []group{
				{"BX23/0001", 2014, "4", 2},
				{"BX23/0001", 2018, "0", 1},
				{"BX23/0002", 2015, "4", 1},
			}
			results := rollup.Results()
			if len(results) != len(want) {
				t.Fatalf("expected %d groups, got %+v", len(want), results)
			}
			for i, r := range results {
				got := group{r.WAP, r.FY, r.AnnualVolume.String(), r.DaysOfData}
				if got != want[i] {
					t.Fatalf("group %d: got %+v want %+v", i, got, want[i])
				}
			}
		})
	}
}
