// Package export renders appointment listings as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"showroom/internal/model"
)

// AppointmentColumns is the header row of the appointments sheet.
var AppointmentColumns = []string{
	"ID", "Date", "Time", "Status", "Customer", "Email", "Phone", "Vehicle", "Notes", "Created",
}

// Writer builds a workbook one sheet at a time.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name.
func (w *Writer) AddSheet(name string) error {
	// Excel limits sheet names to 31 characters.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers and freezes them.
func (w *Writer) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	return w.writeRow(row)
}

func (w *Writer) writeRow(row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

// AppointmentRow flattens a for the spreadsheet; timestamps are shown in loc.
func AppointmentRow(a model.Appointment, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	created := ""
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.In(loc).Format("2006-01-02 15:04")
	}
	return []any{
		a.ID, a.Date, a.Time, string(a.Status), a.CustomerName,
		a.CustomerEmail, a.CustomerPhone, a.VehicleReference, a.Notes, created,
	}
}

// WriteAppointments writes an appointments sheet and a per-status summary.
func WriteAppointments(wr io.Writer, appointments []model.Appointment, loc *time.Location) error {
	w := NewWriter()
	defer w.Close()

	if err := w.AddSheet("Appointments"); err != nil {
		return err
	}
	if err := w.WriteHeader(AppointmentColumns); err != nil {
		return err
	}
	counts := make(map[model.AppointmentStatus]int)
	for _, a := range appointments {
		if err := w.WriteRow(AppointmentRow(a, loc)); err != nil {
			return fmt.Errorf("write appointment %s: %w", a.ID, err)
		}
		counts[a.Status]++
	}

	if err := w.AddSheet("Summary"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Status", "Count"}); err != nil {
		return err
	}
	for _, status := range []model.AppointmentStatus{
		model.StatusScheduled, model.StatusCompleted, model.StatusCancelled, model.StatusNoShow,
	} {
		if err := w.WriteRow([]any{string(status), counts[status]}); err != nil {
			return err
		}
	}
	if err := w.WriteRow([]any{"total", len(appointments)}); err != nil {
		return err
	}

	return w.Save(wr)
}

// Filename names an export covering from..to.
func Filename(from, to string) string {
	switch {
	case from == "" && to == "":
		return "appointments.xlsx"
	case to == "":
		return fmt.Sprintf("appointments_from_%s.xlsx", from)
	case from == "":
		return fmt.Sprintf("appointments_to_%s.xlsx", to)
	}
	return fmt.Sprintf("appointments_%s_%s.xlsx", from, to)
}
