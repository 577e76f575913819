package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres is the pgx stdlib driver name.
	DriverPostgres = "pgx"
	// DriverSQLite is the modernc sqlite driver name.
	DriverSQLite = "sqlite"

	// DefaultBatchSize bounds the identifiers bound into a single IN list.
	DefaultBatchSize = 1000
)

var (
	// ErrUnsupportedDriver is returned for drivers other than pgx and sqlite.
	ErrUnsupportedDriver = errors.New("sqldb: unsupported driver")
	// ErrInvalidIdentifier is returned when a table or column name is unsafe to interpolate.
	ErrInvalidIdentifier = errors.New("sqldb: invalid identifier")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// Open opens and pings a database handle for the given driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", driver, err)
	}
	return db, nil
}

// Dialect renders driver specific placeholders.
type Dialect struct {
	Driver string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return Dialect{Driver: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d.Driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Args accumulates bind values and hands out matching placeholders.
type Args struct {
	dialect Dialect
	values  []any
}

// NewArgs creates an empty argument list for a dialect.
func NewArgs(d Dialect) *Args {
	return &Args{dialect: d}
}

// Add binds a value and returns its placeholder.
func (a *Args) Add(value any) string {
	a.values = append(a.values, value)
	return a.dialect.Placeholder(len(a.values))
}

// In binds every value and returns "col IN (...)".
func (a *Args) In(column string, values []string) string {
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		placeholders = append(placeholders, a.Add(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", "))
}

// UpperTrim wraps a column so it compares trimmed and upper-cased.
func UpperTrim(column string) string {
	return "UPPER(TRIM(" + column + "))"
}

// LowerTrim wraps a column so it compares trimmed and lower-cased.
func LowerTrim(column string) string {
	return "LOWER(TRIM(" + column + "))"
}

// Values returns the bound values in order.
func (a *Args) Values() []any {
	return a.values
}

// Identifier validates a table or column name before it is interpolated.
func Identifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return name, nil
}

// Chunk splits values into batches of at most size elements.
func Chunk(values []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// FlexTime scans timestamps that drivers return as time.Time, text or bytes.
type FlexTime struct {
	Time  time.Time
	Valid bool
}

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Scan implements sql.Scanner.
func (t *FlexTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("sqldb: cannot scan %T into time", src)
	}
}

func (t *FlexTime) parse(value string) error {
	value = strings.TrimSpace(value)
	for _, layout := range flexLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("sqldb: unparseable time %q", value)
}
