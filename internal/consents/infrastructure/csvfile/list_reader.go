package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	consents "water-usage/internal/consents/domain"
)

// DefaultColumn is the consent number column used by the reference lists.
const DefaultColumn = "ConsentNo"

// ListReader reads consent numbers from CSV reference lists.
type ListReader struct{}

// ReadList returns the raw values of column from the CSV at path.
func (ListReader) ReadList(ctx context.Context, path, column string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values, err := Read(ctx, file, column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// Read extracts column from a headed CSV stream.
func Read(ctx context.Context, r io.Reader, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s (empty file)", consents.ErrColumnNotFound, column)
		}
		return nil, err
	}
	idx := findHeader(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", consents.ErrColumnNotFound, column)
	}

	var values []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if idx >= len(record) {
			continue
		}
		values = append(values, record[idx])
	}
	return values, nil
}

func findHeader(header []string, name string) int {
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}
