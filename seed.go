package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	allocation "water-usage/internal/allocation/domain"
	"water-usage/internal/config"
	"water-usage/internal/platform/sqldb"
)

const (
	seedDBName      = "hydro.sqlite"
	seedConfigName  = "water-usage.yaml"
	seedSurfaceList = "SurfacewaterTake.csv"
	seedGroundList  = "GroundwaterTake.csv"

	activityDivert = "Divert Water"
	datasetOther   = "5"
)

type seedOptions struct {
	dir          string
	organization string
	wapCount     int
	startDate    string
	days         int
}

func newSeedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo SQLite source, consent lists and config",
		Long: `seed writes a SQLite database holding the allocation and daily telemetry
tables, the surface and groundwater consent lists, and a config file that
points a run at them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.wapCount <= 0 {
				return errors.New("wap-count must be > 0")
			}
			if opts.days <= 0 {
				return errors.New("days must be > 0")
			}
			start, err := time.Parse("2006-01-02", strings.TrimSpace(opts.startDate))
			if err != nil {
				return fmt.Errorf("invalid start-date: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			path, err := seed(ctx, *opts, start)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", path)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.dir, "dir", ".", "directory for the database, lists and config")
	flags.StringVar(&opts.organization, "organization", "Demo", "organization name used for list and report names")
	flags.IntVar(&opts.wapCount, "wap-count", 6, "number of WAPs to seed")
	flags.StringVar(&opts.startDate, "start-date", "2014-07-01", "first telemetry day (YYYY-MM-DD)")
	flags.IntVar(&opts.days, "days", 730, "number of telemetry days per WAP")
	return cmd
}

func seedWAP(i int) string     { return fmt.Sprintf("BX23/%04d", i) }
func seedConsent(i int) string { return fmt.Sprintf("CRC%06d", i) }

// seedActivity alternates odd WAPs to surface water and even WAPs to groundwater.
func seedActivity(i int) string {
	if i%2 == 1 {
		return allocation.ActivityTakeSurfaceWater
	}
	return allocation.ActivityTakeGroundwater
}

func seed(ctx context.Context, opts seedOptions, start time.Time) (string, error) {
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dbPath := filepath.Join(dir, seedDBName)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return "", err
	}

	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := seedSchema(ctx, db); err != nil {
		return "", fmt.Errorf("seed schema: %w", err)
	}
	if err := seedAllocation(ctx, db, opts.wapCount); err != nil {
		return "", fmt.Errorf("seed allocation: %w", err)
	}
	if err := seedUsage(ctx, db, opts.wapCount, start, opts.days); err != nil {
		return "", fmt.Errorf("seed usage: %w", err)
	}

	surface := filepath.Join(dir, opts.organization+seedSurfaceList)
	ground := filepath.Join(dir, opts.organization+seedGroundList)
	var surfaceConsents, groundConsents []string
	for i := 1; i <= opts.wapCount; i++ {
		if seedActivity(i) == allocation.ActivityTakeSurfaceWater {
			surfaceConsents = append(surfaceConsents, seedConsent(i))
		} else {
			groundConsents = append(groundConsents, seedConsent(i))
		}
	}
	if err := writeConsentList(surface, surfaceConsents); err != nil {
		return "", err
	}
	if err := writeConsentList(ground, groundConsents); err != nil {
		return "", err
	}

	cfg := config.Default()
	cfg.Organization = opts.organization
	cfg.Consents.Lists = []config.ListConfig{
		{Path: surface, Column: "ConsentNo"},
		{Path: ground, Column: "ConsentNo"},
	}
	cfg.Allocation.Driver = sqldb.DriverSQLite
	cfg.Allocation.DSN = dbPath
	cfg.Usage.Driver = sqldb.DriverSQLite
	cfg.Usage.DSN = dbPath
	cfg.Output.Dir = dir
	cfg.Output.Name = opts.organization + "Usage"

	configPath := filepath.Join(dir, seedConfigName)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return "", err
	}
	return configPath, nil
}

func seedSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE D_ACC_Act_Water_TakeWaterWAPAllocation (
	RecordNumber TEXT NOT NULL,
	WAP TEXT,
	Activity TEXT
)`,
		`CREATE TABLE TSDataNumericDaily (
	ExtSiteID TEXT NOT NULL,
	DatasetTypeID INTEGER NOT NULL,
	DateTime TEXT NOT NULL,
	Value REAL
)`,
		`CREATE INDEX TSDataNumericDaily_site_date ON TSDataNumericDaily (ExtSiteID, DateTime)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// seedAllocation gives consent i the WAP i, a duplicate row under the other take
// activity, and an excluded divert row. Consent 1 also shares WAP 2.
func seedAllocation(ctx context.Context, db *sql.DB, wapCount int) error {
	const insertSQL = `INSERT INTO D_ACC_Act_Water_TakeWaterWAPAllocation (RecordNumber, WAP, Activity) VALUES (?, ?, ?)`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	insert := func(consent, wap, activity string) error {
		_, err := stmt.ExecContext(ctx, consent, wap, activity)
		return err
	}
	for i := 1; i <= wapCount; i++ {
		rows := [][3]string{
			{seedConsent(i), seedWAP(i), seedActivity(i)},
			{seedConsent(i), seedWAP(i), activityDivert},
		}
		if i == 1 {
			rows = append(rows, [3]string{seedConsent(1), seedWAP(1), seedActivity(2)})
			if wapCount > 1 {
				rows = append(rows, [3]string{seedConsent(1), seedWAP(2), seedActivity(1)})
			}
		}
		for _, r := range rows {
			if err := insert(r[0], r[1], r[2]); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

// seedUsage writes one daily value per WAP per day equal to the WAP number, every
// tenth day without a value, plus an excluded dataset type row.
func seedUsage(ctx context.Context, db *sql.DB, wapCount int, start time.Time, days int) error {
	const insertSQL = `INSERT INTO TSDataNumericDaily (ExtSiteID, DatasetTypeID, DateTime, Value) VALUES (?, ?, ?, ?)`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := 1; i <= wapCount; i++ {
		dataset := "9"
		if i%2 == 0 {
			dataset = "12"
		}
		for d := 0; d < days; d++ {
			at := start.AddDate(0, 0, d).Format("2006-01-02 15:04:05")
			var value any = float64(i)
			if d%10 == 9 {
				value = nil
			}
			if _, err := stmt.ExecContext(ctx, seedWAP(i), dataset, at, value); err != nil {
				_ = tx.Rollback()
				return err
			}
			if _, err := stmt.ExecContext(ctx, seedWAP(i), datasetOther, at, 1000.0); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func writeConsentList(path string, consentNos []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"ConsentNo", "Status"}); err != nil {
		return err
	}
	for _, c := range consentNos {
		if err := writer.Write([]string{c, "Issued - Active"}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
