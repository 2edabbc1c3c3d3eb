package xlsxgen_test

// End-to-end tests for the go-xlsxgen library.
//
// Generated workbooks are re-opened with excelize, an independent
// implementation, so the tests verify real-world readability rather than
// round-tripping through this library's own code.

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	xlsxgen "github.com/TsubasaBE/go-xlsxgen"
	"github.com/TsubasaBE/go-xlsxgen/styles"
	"github.com/TsubasaBE/go-xlsxgen/workbook"
	"github.com/TsubasaBE/go-xlsxgen/worksheet"
)

type order struct {
	ID     int
	Client string
	Total  float64
	Placed time.Time
	Paid   bool
}

func sampleOrders() []order {
	return []order{
		{1, "Acme", 120.5, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{2, "Globex", 80, time.Date(2024, 2, 3, 14, 45, 0, 0, time.UTC), false},
		{3, "Acme", 99.99, time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC), true},
	}
}

func orderSheet(t *testing.T, name string) *worksheet.Sheet[order] {
	t.Helper()
	s, err := worksheet.New(name,
		func() []order { return sampleOrders() },
		worksheet.Column[order]{Title: "ID", Value: func(o order) worksheet.Value { return worksheet.Int(int64(o.ID)) }},
		worksheet.Column[order]{Title: "Client", Value: func(o order) worksheet.Value { return worksheet.String(o.Client) }},
		worksheet.Column[order]{Title: "Total", Width: 12, Value: func(o order) worksheet.Value { return worksheet.Number(o.Total) }},
		worksheet.Column[order]{Title: "Placed", Value: func(o order) worksheet.Value { return worksheet.Time(o.Placed) }},
		worksheet.Column[order]{Title: "Paid", Value: func(o order) worksheet.Value { return worksheet.Bool(o.Paid) }},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// ── Generate ──────────────────────────────────────────────────────────────────

func TestGenerateEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")

	book := &workbook.Book{
		Title:   "Orders",
		Author:  "integration test",
		Default: &styles.Style{Font: &styles.Font{Name: "Calibri", Size: 11}},
	}
	if err := book.AddSheet(orderSheet(t, "Orders")); err != nil {
		t.Fatal(err)
	}
	if err := xlsxgen.Generate(path, book); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("excelize cannot open the generated file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Orders" {
		t.Fatalf("GetSheetList() = %v, want [Orders]", sheets)
	}

	cells := []struct {
		axis string
		want string
	}{
		{"A1", "ID"},
		{"B1", "Client"},
		{"A2", "1"},
		{"B2", "Acme"},
		{"B3", "Globex"},
		{"C3", "80"},
		{"E2", "TRUE"},
		{"E3", "FALSE"},
	}
	for _, tc := range cells {
		got, err := f.GetCellValue("Orders", tc.axis)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tc.axis, err)
		}
		if got != tc.want {
			t.Errorf("cell %s = %q, want %q", tc.axis, got, tc.want)
		}
	}

	// The date cell must hold the raw serial for 2024-02-01.
	raw, err := f.GetCellValue("Orders", "D2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if raw != "45323" {
		t.Errorf("raw date cell = %q, want 45323", raw)
	}
}

func TestGenerateMultiSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsx")

	book := &workbook.Book{Title: "Multi"}
	for _, name := range []string{"First", "Second", "Third"} {
		if err := book.AddSheet(orderSheet(t, name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := xlsxgen.Generate(path, book); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 {
		t.Fatalf("GetSheetList() = %v, want 3 sheets", sheets)
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if sheets[i] != want {
			t.Errorf("sheet %d = %q, want %q", i, sheets[i], want)
		}
	}
	got, err := f.GetCellValue("Third", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Acme" {
		t.Errorf("Third!B2 = %q, want Acme", got)
	}
}

// ── ToSerial ──────────────────────────────────────────────────────────────────

func TestToSerial(t *testing.T) {
	tests := []struct {
		name    string
		input   time.Time
		want    float64
		wantErr bool
	}{
		{
			name:  "1900-01-01 is serial 1",
			input: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "1900-02-28 is serial 59",
			input: time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC),
			want:  59,
		},
		{
			name:  "1900-03-01 skips the phantom leap day",
			input: time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  61,
		},
		{
			name:  "2012-11-22 10:56:19",
			input: time.Date(2012, 11, 22, 10, 56, 19, 0, time.UTC),
			want:  41235 + float64(10*3600+56*60+19)/86400,
		},
		{
			name:    "pre-epoch date is rejected",
			input:   time.Date(1899, 6, 1, 0, 0, 0, 0, time.UTC),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := xlsxgen.ToSerial(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ToSerial(%v) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestToSerialEx1904(t *testing.T) {
	got, err := xlsxgen.ToSerialEx(time.Date(1904, 1, 2, 0, 0, 0, 0, time.UTC), true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("ToSerialEx(1904-01-02, true) = %v, want 1", got)
	}
	// The two date systems describe the same day with serials 1462 apart.
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	a, err := xlsxgen.ToSerialEx(day, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := xlsxgen.ToSerialEx(day, true)
	if err != nil {
		t.Fatal(err)
	}
	if a-b != 1462 {
		t.Errorf("serial offset between date systems = %v, want 1462", a-b)
	}
}
