package interfaces

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	report "water-usage/internal/report/domain"
	usage "water-usage/internal/usage/domain"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ErrUnknownFormat is returned for formats other than csv, xlsx and pdf.
var ErrUnknownFormat = errors.New("report: unknown export format")

// Meta describes the run a report was produced by.
type Meta struct {
	Organization string
	RunID        string
	From         time.Time
	To           time.Time
	GeneratedAt  time.Time
}

// WriteCSV writes the summary table with a header row.
func WriteCSV(w io.Writer, rows []report.SummaryRow, delimiter rune) error {
	writer := csv.NewWriter(w)
	if delimiter != 0 {
		writer.Comma = delimiter
	}
	if err := writer.Write(report.Columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.ConsentNo,
			row.WAP,
			strconv.Itoa(row.FY),
			row.AnnualVolume.String(),
			strconv.Itoa(row.DaysOfData),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// BuildXLSX renders the summary table and a run sheet.
func BuildXLSX(meta Meta, rows []report.SummaryRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	usageSheet := "usage"
	runSheet := "run"
	if err := f.SetSheetName("Sheet1", usageSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(runSheet); err != nil {
		return nil, err
	}

	for i, col := range report.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(usageSheet, cell, col)
	}
	for i, row := range rows {
		line := i + 2
		volume, _ := row.AnnualVolume.Float64()
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("A%d", line), row.ConsentNo)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("B%d", line), row.WAP)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("C%d", line), row.FY)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("D%d", line), volume)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("E%d", line), row.DaysOfData)
	}

	totals := report.Summarize(rows)
	totalVolume, _ := totals.Volume.Float64()
	_ = f.SetCellValue(runSheet, "A1", "Annual Water Use")
	_ = f.SetCellValue(runSheet, "A3", "Organization")
	_ = f.SetCellValue(runSheet, "B3", meta.Organization)
	_ = f.SetCellValue(runSheet, "A4", "Run")
	_ = f.SetCellValue(runSheet, "B4", meta.RunID)
	_ = f.SetCellValue(runSheet, "A5", "From")
	_ = f.SetCellValue(runSheet, "B5", formatDate(meta.From))
	_ = f.SetCellValue(runSheet, "A6", "To")
	_ = f.SetCellValue(runSheet, "B6", formatDate(meta.To))
	_ = f.SetCellValue(runSheet, "A7", "Generated")
	_ = f.SetCellValue(runSheet, "B7", meta.GeneratedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(runSheet, "A8", "Consents")
	_ = f.SetCellValue(runSheet, "B8", totals.Consents)
	_ = f.SetCellValue(runSheet, "A9", "WAPs")
	_ = f.SetCellValue(runSheet, "B9", totals.WAPs)
	_ = f.SetCellValue(runSheet, "A10", "Total Volume")
	_ = f.SetCellValue(runSheet, "B10", totalVolume)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a printable summary of the table.
func BuildPDF(meta Meta, rows []report.SummaryRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	title := "Annual Water Use"
	if meta.Organization != "" {
		title = meta.Organization + " " + title
	}
	pdf.Cell(0, 8, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Telemetry: %s to %s", formatDate(meta.From), formatDate(meta.To)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", meta.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", meta.GeneratedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)

	totals := report.Summarize(rows)
	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Consents: %d  WAPs: %d  Rows: %d", totals.Consents, totals.WAPs, totals.Rows))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Volume: %s", totals.Volume.StringFixed(1)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Consent", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "WAP", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "FY", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Annual Volume", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Days", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(40, 6, row.ConsentNo, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, row.WAP, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, usage.FinancialYearLabel(row.FY), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, row.AnnualVolume.StringFixed(1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(row.DaysOfData), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExporter writes the report into a directory, one file per format.
type FileExporter struct {
	Dir       string
	Name      string
	Delimiter rune
}

// Export writes every distinct format concurrently and returns the written paths
// in first-seen format order.
func (e FileExporter) Export(ctx context.Context, meta Meta, formats []string, rows []report.SummaryRow) ([]string, error) {
	formats = distinct(formats)
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create out dir: %w", err)
	}
	paths := make([]string, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		i, format := i, format
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(e.Dir, e.Name+"."+format)
			if err := e.write(path, format, meta, rows); err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (e FileExporter) write(path, format string, meta Meta, rows []report.SummaryRow) error {
	var data []byte
	var err error
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		err = WriteCSV(&buf, rows, e.Delimiter)
		data = buf.Bytes()
	case FormatXLSX:
		data, err = BuildXLSX(meta, rows)
	case FormatPDF:
		data, err = BuildPDF(meta, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
