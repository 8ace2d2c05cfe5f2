// Package export renders reservation reports as Excel workbooks.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"loungebook/internal/model"
)

// ReservationLister is the slice of the store the exporter needs.
type ReservationLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
}

var columns = []string{
	"ID", "Resource", "Station", "Booked by", "Event",
	"Start", "End", "Duration (min)", "Status", "Created",
}

// Reservations writes an .xlsx workbook of every reservation whose
// window overlaps [from, to), one sheet per resource kind. Times are
// rendered in loc.
func Reservations(ctx context.Context, lister ReservationLister, from, to time.Time, loc *time.Location, w io.Writer) error {
	reservations, err := lister.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheets := map[model.ResourceKind]string{
		model.KindLounge:  "Lounge",
		model.KindStation: "Stations",
	}
	rowCursor := map[string]int{}

	first := true
	for _, kind := range []model.ResourceKind{model.KindLounge, model.KindStation} {
		name := sheets[kind]
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("create sheet %s: %w", name, err)
			}
		}
		if err := writeRow(f, name, 1, headerCells()); err != nil {
			return err
		}
		if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
			endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
			_ = f.SetCellStyle(name, "A1", endCell, style)
		}
		rowCursor[name] = 2
	}

	for _, r := range reservations {
		name := sheets[r.Kind]
		if name == "" {
			continue
		}
		cells := []any{
			r.ID,
			string(r.Kind),
			r.StationID,
			r.BookedBy,
			r.Name,
			r.Start.In(loc).Format("2006-01-02 15:04"),
			r.End.In(loc).Format("2006-01-02 15:04"),
			int(r.Duration() / time.Minute),
			r.Status,
			r.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, name, rowCursor[name], cells); err != nil {
			return err
		}
		rowCursor[name]++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func headerCells() []any {
	cells := make([]any, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for i, val := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}
