// Package export serializes merged magnetometer tables to disk.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/ezie-mag-etl/internal/adapter/textfile"
	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by the XLSX exporter.
const SheetName = "merged"

// Exporter writes a table to a single file.
// Implementations satisfy pipeline.Loader.
type Exporter interface {
	Load(ctx context.Context, t *domain.Table) error
	Path() string
}

// New picks an exporter from the extension of path: .csv, .xlsx or .txt.
func New(path string) (Exporter, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return &CSV{path: path}, nil
	case ".xlsx":
		return &XLSX{path: path}, nil
	case ".txt":
		return &Hourly{path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", ext)
	}
}

// Header returns the column names written by the CSV and XLSX exporters.
func Header() []string {
	return append(domain.Columns(), "index", "source_index", "source")
}

func rowValues(r domain.Row) []string {
	return append(r.Fields(), strconv.Itoa(r.Index), strconv.Itoa(r.SourceIndex), r.Source)
}

// CSV writes a header line followed by one line per row.
type CSV struct {
	path string
}

// Path returns the file the exporter writes.
func (e *CSV) Path() string { return e.path }

// Load writes t to Path as a CSV file with a header row, replacing any existing file.
func (e *CSV) Load(_ context.Context, t *domain.Table) error {
	f, err := os.Create(e.path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		f.Close()
		return err
	}
	for _, r := range t.Rows {
		if err := w.Write(rowValues(r)); err != nil {
			f.Close()
			return fmt.Errorf("write csv row %d: %w", r.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// XLSX writes the table to one worksheet through the excelize stream writer.
type XLSX struct {
	path string
}

// Path returns the file the exporter writes.
func (e *XLSX) Path() string { return e.path }

// Load writes t to Path as an .xlsx workbook with one sheet named SheetName,
// replacing any existing file.
func (e *XLSX) Load(_ context.Context, t *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", toCells(Header())); err != nil {
		return err
	}
	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(r)); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", r.Index, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(e.path)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// xlsxRow keeps numeric columns numeric so spreadsheets can chart them.
func xlsxRow(r domain.Row) []any {
	rec := r.Record
	return []any{
		rec.Time.Format("2006-01-02T15:04:05.000Z07:00"),
		rec.TVal, rec.IntT, rec.NSamp, rec.StationID, rec.Fingerprint,
		rec.Latitude, rec.Longitude, rec.Altitude, rec.TRes, rec.CTemp, rec.CCR,
		rec.B.X, rec.B.Y, rec.B.Z, rec.AccelRangeSel, rec.GyroRangeSel,
		rec.Accel.X, rec.Accel.Y, rec.Accel.Z,
		rec.Gyro.X, rec.Gyro.Y, rec.Gyro.Z, rec.IMUCTemp,
		r.Index, r.SourceIndex, r.Source,
	}
}

// Hourly writes the table back in the hourly text format, dropping the index columns.
type Hourly struct {
	path string
}

// Path returns the file the exporter writes.
func (e *Hourly) Path() string { return e.path }

// Load writes t to Path as an hourly text file, replacing any existing file.
func (e *Hourly) Load(_ context.Context, t *domain.Table) error {
	return textfile.WriteFile(e.path, t.Records())
}
