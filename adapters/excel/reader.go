package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/internal"
	"breachtrend/ports"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// BreachReader reads breach tables from CSV or Excel files
type BreachReader struct {
	config ReaderConfig
	logger *internal.Logger
}

var _ ports.RecordReader = (*BreachReader)(nil)

// NewBreachReader creates a reader; a nil logger uses the default
func NewBreachReader(config ReaderConfig, logger *internal.Logger) *BreachReader {
	if len(config.DateLayouts) == 0 {
		config.DateLayouts = DefaultReaderConfig().DateLayouts
	}
	if len(config.Columns) == 0 {
		config.Columns = DefaultReaderConfig().Columns
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BreachReader{config: config, logger: logger}
}

// FormatFromPath maps a file extension to a format name
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", core.ErrInvalidRecord, filepath.Ext(path))
	}
}

// ReadFile reads a CSV or XLSX file chosen by extension
func (r *BreachReader) ReadFile(ctx context.Context, path string) (*breach.RecordSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r.logger.Info("[BreachReader] Reading %s file: %s", format, path)
	return r.Read(ctx, f, format)
}

// Read parses a table from rd and converts it into a validated record set
func (r *BreachReader) Read(ctx context.Context, rd io.Reader, format string) (*breach.RecordSet, error) {
	start := time.Now()
	var rows [][]string
	var err error
	switch strings.ToLower(format) {
	case FormatCSV:
		rows, err = r.readCSV(rd)
	case FormatXLSX:
		rows, err = r.readExcel(rd)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", core.ErrInvalidRecord, format)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file must have a header row and at least one data row", core.ErrEmptyDataset)
	}

	table := processRows(rows)
	records, err := r.toRecords(table)
	if err != nil {
		return nil, err
	}
	rs, err := breach.NewRecordSet(records)
	if err != nil {
		return nil, err
	}
	r.logger.Info("[BreachReader] %d records (%d causes) loaded in %.2fms",
		rs.Len(), len(rs.Causes()), float64(time.Since(start).Nanoseconds())/1e6)
	return rs, nil
}

func (r *BreachReader) readCSV(rd io.Reader) ([][]string, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", core.ErrInvalidRecord, err)
	}
	return rows, nil
}

func (r *BreachReader) readExcel(rd io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel workbook: %v", core.ErrInvalidRecord, err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", core.ErrInvalidRecord, sheet, err)
	}
	return rows, nil
}

// processRows converts raw string rows into a Table; short rows leave trailing cells empty
func processRows(rows [][]string) *Table {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	table := &Table{Headers: headers}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		table.Rows = append(table.Rows, rowData)
	}
	return table
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r *BreachReader) toRecords(table *Table) ([]breach.Record, error) {
	cols := make(map[Field]string)
	for _, field := range []Field{FieldID, FieldDate, FieldCause, FieldSector, FieldAffected, FieldAmount} {
		if h, ok := table.FindColumn(r.config.Columns[field]); ok {
			cols[field] = h
		}
	}
	for _, required := range []Field{FieldDate, FieldCause, FieldAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: no %s column (accepted headers: %s)",
				core.ErrInvalidRecord, required, strings.Join(r.config.Columns[required], ", "))
		}
	}

	records := make([]breach.Record, 0, len(table.Rows))
	for i, row := range table.Rows {
		line := i + 2
		id := row[cols[FieldID]]
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		date, err := r.parseDate(row[cols[FieldDate]])
		if err != nil {
			return nil, core.NewInvalidRecordError(line, id, err.Error())
		}
		amount, err := parseNumber(row[cols[FieldAmount]])
		if err != nil {
			return nil, core.NewInvalidRecordError(line, id, "total amount: "+err.Error())
		}
		if amount < 0 {
			return nil, core.NewInvalidRecordError(line, id, "negative total amount")
		}

		var affected int64
		if h, ok := cols[FieldAffected]; ok && row[h] != "" {
			v, err := parseNumber(row[h])
			if err != nil {
				return nil, core.NewInvalidRecordError(line, id, "records affected: "+err.Error())
			}
			if v < 0 {
				return nil, core.NewInvalidRecordError(line, id, "negative records affected")
			}
			affected = int64(math.Round(v))
		}

		sector := ""
		if h, ok := cols[FieldSector]; ok {
			sector = row[h]
		}
		records = append(records, breach.NewRecord(id, date, row[cols[FieldCause]], sector, affected, amount))
	}
	return records, nil
}

func (r *BreachReader) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing breach date")
	}
	for _, layout := range r.config.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Excel serial day numbers survive when a date cell is formatted as a number
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognized breach date %q", s)
}

// parseNumber accepts plain numbers plus currency symbols and thousands separators
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing value")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "_", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
