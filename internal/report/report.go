// Package report renders the device inventory as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/laptoptracker/laptop-tracker/internal/age"
	"github.com/laptoptracker/laptop-tracker/internal/model"
)

// SheetName is the only sheet in the workbook.
const SheetName = "Devices"

// Columns is the header row.
var Columns = []string{
	"Platform",
	"Device Name",
	"User",
	"Email",
	"Model",
	"OS Version",
	"Serial",
	"Asset Tag",
	"First Enrollment",
	"Age (years)",
	"Status",
}

// Row is one classified device.
type Row struct {
	Device model.Device
	// Years is NaN when the enrollment date could not be parsed.
	Years    float64
	Category age.Category
}

// Build classifies devices and orders them oldest first. Devices with an
// unparseable date sort last.
func Build(devices []model.Device, now time.Time) []Row {
	rows := make([]Row, 0, len(devices))
	for _, d := range devices {
		r := Row{Device: d, Years: math.NaN()}
		if a, err := age.Assess(now, d.EnrollmentCandidates()...); err == nil {
			r.Years = a.Years
			r.Category = a.Category
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Years, rows[j].Years
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		default:
			return a > b
		}
	})
	return rows
}

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}

	for _, r := range rows {
		d := r.Device
		row := sheet.AddRow()
		for _, v := range []string{
			d.Platform,
			d.DeviceName,
			d.User.Name,
			d.User.Email,
			d.Model,
			d.OSVersion,
			d.SerialNumber,
			d.AssetTag,
			d.FirstEnrollment,
		} {
			row.AddCell().SetString(v)
		}

		ageCell := row.AddCell()
		status := ""
		if math.IsNaN(r.Years) {
			ageCell.SetString("")
			status = "UNKNOWN"
		} else {
			ageCell.SetFloatWithFormat(math.Round(r.Years*100)/100, "0.00")
			status = r.Category.Label()
		}
		row.AddCell().SetString(status)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
