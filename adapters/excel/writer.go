package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"breachtrend/domain/breach"
)

var exportHeaders = []string{
	string(FieldID), string(FieldDate), string(FieldCause), string(FieldSector),
	string(FieldAffected), string(FieldAmount),
}

func exportRow(r breach.Record) []string {
	return []string{
		r.ID,
		r.BreachDate.Format("2006-01-02"),
		r.Cause,
		r.Sector,
		strconv.FormatInt(r.AffectedCount, 10),
		strconv.FormatFloat(r.TotalAmount, 'f', 2, 64),
	}
}

// WriteCSV writes records with the canonical headers
func WriteCSV(w io.Writer, records []breach.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes records to the first sheet of a new workbook
func WriteXLSX(w io.Writer, records []breach.Record) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := write(1, exportHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := write(i+2, exportRow(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}
