package sqlsource

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"water-usage/internal/platform/sqldb"
	usage "water-usage/internal/usage/domain"
)

func openUsageDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqldb.Open(context.Background(), sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE TSDataNumericDaily (ExtSiteID TEXT, DatasetTypeID INTEGER, DateTime TEXT, Value REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO TSDataNumericDaily (ExtSiteID, DatasetTypeID, DateTime, Value) VALUES
		('bx23/0001 ', 9, '2014-06-30 00:00:00', 99),
		('bx23/0001 ', 9, '2014-07-01 00:00:00', 1.5),
		('BX23/0001', 12, '2015-06-30 00:00:00', 2.5),
		('BX23/0001', 12, '2019-06-30 00:00:00', NULL),
		('BX23/0001', 12, '2019-07-01 00:00:00', 7),
		('BX23/0001', 5, '2016-01-01 00:00:00', 3),
		('BX23/0002', 9, '2016-01-01 00:00:00', 4),
		('ZZ99/0001', 9, '2016-01-01 00:00:00', 5)`)
	require.NoError(t, err)
	return db
}

func testFilter(t *testing.T, waps ...string) usage.Filter {
	t.Helper()
	r, err := usage.NewDateRange(
		time.Date(2014, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, time.June, 30, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return usage.Filter{DatasetTypeIDs: usage.DefaultDatasetTypeIDs, WAPs: waps, Range: r}
}

func TestQueryEachFiltersAndNormalizes(t *testing.T) {
	db := openUsageDB(t)
	query, err := NewQuery(db, sqldb.DriverSQLite, WithBatchSize(1))
	require.NoError(t, err)

	var rows []usage.DailyUsage
	err = query.Each(context.Background(), testFilter(t, "bx23/0001 ", "BX23/0001", "BX23/0002"), func(u usage.DailyUsage) error {
		rows = append(rows, u)
		return nil
	})
	require.NoError(t, err)

	byWAP := map[string]int{}
	var nullValues int
	for _, r := range rows {
		byWAP[r.WAP]++
		if r.Volume == nil {
			nullValues++
		}
		require.False(t, r.Date.Before(time.Date(2014, time.July, 1, 0, 0, 0, 0, time.UTC)))
		require.True(t, r.Date.Before(time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC)))
	}
	require.Equal(t, map[string]int{"BX23/0001": 3, "BX23/0002": 1}, byWAP)
	require.Equal(t, 1, nullValues)
}

func TestQueryEachMatchesUntidySiteIDs(t *testing.T) {
	db := openUsageDB(t)
	query, err := NewQuery(db, sqldb.DriverSQLite)
	require.NoError(t, err)

	var dates []string
	err = query.Each(context.Background(), testFilter(t, "BX23/0001"), func(u usage.DailyUsage) error {
		require.Equal(t, "BX23/0001", u.WAP)
		dates = append(dates, u.Date.Format("2006-01-02"))
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"2014-07-01", "2015-06-30", "2019-06-30"}, dates)
}

func TestQueryStreamFeedsRollup(t *testing.T) {
	db := openUsageDB(t)
	query, err := NewQuery(db, sqldb.DriverSQLite)
	require.NoError(t, err)

	rollup := usage.NewAnnualRollup()
	err = query.Each(context.Background(), testFilter(t, "BX23/0001"), rollup.Add)
	require.NoError(t, err)

	results := rollup.Results()
	require.Len(t, results, 2)
	require.Equal(t, 2014, results[0].FY)
	require.Equal(t, "4", results[0].AnnualVolume.String())
	require.Equal(t, 2, results[0].DaysOfData)
	require.Equal(t, 2018, results[1].FY)
	require.Equal(t, "0", results[1].AnnualVolume.String())
	require.Equal(t, 1, results[1].DaysOfData)
}

func TestQueryEachEmptyFilter(t *testing.T) {
	db := openUsageDB(t)
	query, err := NewQuery(db, sqldb.DriverSQLite)
	require.NoError(t, err)

	called := false
	err = query.Each(context.Background(), testFilter(t), func(usage.DailyUsage) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, called)
}

func TestQueryStatementPostgresPlaceholders(t *testing.T) {
	q := &Query{
		dialect:       sqldb.Dialect{Driver: sqldb.DriverPostgres},
		table:         defaultTable,
		siteColumn:    defaultSiteColumn,
		datasetColumn: defaultDatasetColumn,
		dateColumn:    defaultDateColumn,
		valueColumn:   defaultValueColumn,
	}
	statement, args := q.statement(testFilter(t, "w2 ", "W1"))
	require.Contains(t, statement, "DatasetTypeID IN ($1, $2)")
	require.Contains(t, statement, "UPPER(TRIM(ExtSiteID)) IN ($3, $4)")
	require.Contains(t, statement, "DateTime >= $5")
	require.Contains(t, statement, "DateTime < $6")
	require.Equal(t, []any{"9", "12", "W1", "W2", "2014-07-01", "2019-07-01"}, args)
}
