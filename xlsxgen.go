// Package xlsxgen provides a pure-Go writer for Office Open XML spreadsheet
// (.xlsx) files.  No cgo is required, and the container is framed without
// depending on an archive library.
//
// # Quick start
//
//	type order struct {
//	    ID     int
//	    Client string
//	    Total  float64
//	    Placed time.Time
//	}
//
//	sheet, err := worksheet.New("Orders",
//	    func() []order { return fetchOrders() },
//	    worksheet.Column[order]{Title: "ID", Value: func(o order) worksheet.Value { return worksheet.Int(int64(o.ID)) }},
//	    worksheet.Column[order]{Title: "Client", Value: func(o order) worksheet.Value { return worksheet.String(o.Client) }},
//	    worksheet.Column[order]{Title: "Total", Value: func(o order) worksheet.Value { return worksheet.Number(o.Total) }},
//	    worksheet.Column[order]{Title: "Placed", Value: func(o order) worksheet.Value { return worksheet.Time(o.Placed) }},
//	)
//	if err != nil { ... }
//
//	book := &workbook.Book{Title: "Orders", Author: "Reports"}
//	if err := book.AddSheet(sheet); err != nil { ... }
//	if err := xlsxgen.Generate("orders.xlsx", book); err != nil { ... }
//
// # Styling
//
// Styles cascade from the book default through sheet, column, and cell
// layers; the innermost layer wins per component.  Identical resolved styles
// are pooled, so a million identically styled cells cost one style record.
// See [styles.Style] and [styles.Merge].
//
// # Dates
//
// Spreadsheet files store dates as floating-point serial numbers.  Cell
// values built with [worksheet.Time] are converted automatically, honoring
// the workbook's date system.  [ToSerialEx] exposes the conversion directly;
// [ToSerial] is a convenience wrapper for the common 1900 date system.
//
// # Failure handling
//
// Generation aborts on the first error, reported as a [*workbook.PartError]
// naming the package part and a failure category.  [Generate] stages the
// output in a temporary file and renames it into place, so a failed run
// never leaves a partial .xlsx behind.
package xlsxgen

import (
	"time"

	"github.com/TsubasaBE/go-xlsxgen/internal/serial"
	"github.com/TsubasaBE/go-xlsxgen/workbook"
)

// Version is the current version of the go-xlsxgen library.
const Version = "1.0.0"

// Generate renders the book and writes it to the named file.
func Generate(name string, b *workbook.Book) error {
	return b.WriteFile(name)
}

// ToSerial converts a [time.Time] value to a 1900-system date serial number.
//
// The 1900 system counts days from 1899-12-31 and perpetuates the Lotus
// 1-2-3 leap-year bug: serial 60 is the phantom 1900-02-29, so every date
// from 1900-03-01 onward is shifted up by one.  ToSerial applies that shift,
// which keeps round trips with readers of the format exact.
func ToSerial(t time.Time) (float64, error) {
	return serial.FromTime(t, false)
}

// ToSerialEx converts a [time.Time] value to a date serial number,
// respecting the workbook's date system.
//
// Pass the book's Date1904 flag.  When date1904 is false the function is
// identical to [ToSerial].  When true, serial 0 corresponds to 1904-01-01
// and no phantom leap-day compensation applies.
func ToSerialEx(t time.Time, date1904 bool) (float64, error) {
	return serial.FromTime(t, date1904)
}
