package interfaces

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	report "water-usage/internal/report/domain"
)

func sampleRows() []report.SummaryRow {
	return []report.SummaryRow{
		{ConsentNo: "CRC1", WAP: "BX23/0001", FY: 2014, AnnualVolume: decimal.RequireFromString("1234.5"), DaysOfData: 200},
		{ConsentNo: "", WAP: "BX23/0009", FY: 2015, AnnualVolume: decimal.Zero, DaysOfData: 1},
	}
}

func sampleMeta() Meta {
	return Meta{
		Organization: "Synlait",
		RunID:        "run-1",
		From:         time.Date(2014, time.July, 1, 0, 0, 0, 0, time.UTC),
		To:           time.Date(2019, time.June, 30, 0, 0, 0, 0, time.UTC),
		GeneratedAt:  time.Date(2019, time.August, 20, 14, 37, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows(), 0))
	want := "ConsentNo,WAP,FY,AnnualVolume,DaysOfData\n" +
		"CRC1,BX23/0001,2014,1234.5,200\n" +
		",BX23/0009,2015,0,1\n"
	require.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, sampleRows()[:1], ';'))
	require.True(t, strings.HasPrefix(buf.String(), "ConsentNo;WAP;FY;AnnualVolume;DaysOfData\n"))
}

func TestBuildXLSX(t *testing.T) {
	data, err := BuildXLSX(sampleMeta(), sampleRows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("usage", "A1")
	require.NoError(t, err)
	require.Equal(t, "ConsentNo", header)
	wap, err := f.GetCellValue("usage", "B2")
	require.NoError(t, err)
	require.Equal(t, "BX23/0001", wap)
	org, err := f.GetCellValue("run", "B3")
	require.NoError(t, err)
	require.Equal(t, "Synlait", org)
}

func TestBuildPDF(t *testing.T) {
	data, err := BuildPDF(sampleMeta(), sampleRows())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestFileExporterWritesEveryFormat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exporter := FileExporter{Dir: dir, Name: "SynlaitUsage"}

	paths, err := exporter.Export(context.Background(), sampleMeta(), []string{FormatCSV, FormatXLSX, FormatPDF}, sampleRows())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "SynlaitUsage.csv"),
		filepath.Join(dir, "SynlaitUsage.xlsx"),
		filepath.Join(dir, "SynlaitUsage.pdf"),
	}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	}
}

func TestFileExporterUnknownFormat(t *testing.T) {
	exporter := FileExporter{Dir: t.TempDir(), Name: "x"}
	_, err := exporter.Export(context.Background(), sampleMeta(), []string{"parquet"}, sampleRows())
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFileExporterWritesRepeatedFormatOnce(t *testing.T) {
	dir := t.TempDir()
	exporter := FileExporter{Dir: dir, Name: "SynlaitUsage"}

	paths, err := exporter.Export(context.Background(), sampleMeta(), []string{FormatCSV, FormatPDF, FormatCSV}, sampleRows())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "SynlaitUsage.csv"),
		filepath.Join(dir, "SynlaitUsage.pdf"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "ConsentNo,WAP,FY,AnnualVolume,DaysOfData\n"))
}
