package workbook_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TsubasaBE/go-xlsxgen/workbook"
	"github.com/TsubasaBE/go-xlsxgen/worksheet"
)

type row struct {
	N int
	S string
}

func makeRows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{N: i + 1, S: fmt.Sprintf("row %d", i+1)}
	}
	return out
}

func makeSheet(t *testing.T, name string, rows int) *worksheet.Sheet[row] {
	t.Helper()
	s, err := worksheet.New(name,
		func() []row { return makeRows(rows) },
		worksheet.Column[row]{Title: "N", Value: func(r row) worksheet.Value { return worksheet.Int(int64(r.N)) }},
		worksheet.Column[row]{Title: "S", Value: func(r row) worksheet.Value { return worksheet.String(r.S) }},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func makeBook(t *testing.T, sheetRows ...int) *workbook.Book {
	t.Helper()
	b := &workbook.Book{Title: "Test", Author: "tester"}
	for i, n := range sheetRows {
		name := string(rune('A' + i))
		if err := b.AddSheet(makeSheet(t, name, n)); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func extract(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("generated package is not a valid archive: %v", err)
	}
	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = content
	}
	return parts
}

// ── package assembly ──────────────────────────────────────────────────────────

func TestBytesPartInventory(t *testing.T) {
	b := makeBook(t, 0, 10, 500)
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parts := extract(t, data)

	want := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/styles.xml",
		"xl/sharedStrings.xml",
		"xl/theme/theme1.xml",
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/sheet2.xml",
		"xl/worksheets/sheet3.xml",
	}
	if len(parts) != len(want) {
		t.Errorf("archive has %d parts, want %d", len(parts), len(want))
	}
	for _, name := range want {
		if _, ok := parts[name]; !ok {
			t.Errorf("part %s missing", name)
		}
	}
}

func TestBytesWorkbookPart(t *testing.T) {
	b := makeBook(t, 0, 10, 500)
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parts := extract(t, data)

	wb := string(parts["xl/workbook.xml"])
	for i, name := range []string{"A", "B", "C"} {
		frag := fmt.Sprintf(`name="%s" sheetId="%d" r:id="rId%d"`, name, i+1, i+1)
		if !strings.Contains(wb, frag) {
			t.Errorf("workbook part missing %q:\n%s", frag, wb)
		}
	}
	if strings.Count(wb, "<sheet ") != 3 {
		t.Errorf("workbook part should declare exactly 3 sheets:\n%s", wb)
	}

	rels := string(parts["xl/_rels/workbook.xml.rels"])
	for _, frag := range []string{
		`Id="rId1" `, `Id="rId2" `, `Id="rId3" `,
		`Id="rId4"`, // styles
		`Id="rId5"`, // theme
		`Id="rId6"`, // shared strings
		"worksheets/sheet1.xml",
		"styles.xml",
		"theme/theme1.xml",
		"sharedStrings.xml",
	} {
		if !strings.Contains(rels, frag) {
			t.Errorf("workbook rels missing %q:\n%s", frag, rels)
		}
	}
}

func TestBytesContentTypes(t *testing.T) {
	b := makeBook(t, 1, 1)
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parts := extract(t, data)
	ct := string(parts["[Content_Types].xml"])
	for _, frag := range []string{
		"/xl/workbook.xml",
		"/xl/worksheets/sheet1.xml",
		"/xl/worksheets/sheet2.xml",
		"/xl/styles.xml",
		"/xl/sharedStrings.xml",
		"/xl/theme/theme1.xml",
		"/docProps/core.xml",
		"/docProps/app.xml",
	} {
		if !strings.Contains(ct, `PartName="`+frag+`"`) {
			t.Errorf("content types missing override for %s:\n%s", frag, ct)
		}
	}
}

func TestBytesDocProps(t *testing.T) {
	b := makeBook(t, 1)
	b.Created = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	b.Modified = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parts := extract(t, data)

	core := string(parts["docProps/core.xml"])
	for _, frag := range []string{
		"<dc:title>Test</dc:title>",
		"<dc:creator>tester</dc:creator>",
		"2024-05-01T08:00:00Z",
		"2024-05-02T09:30:00Z",
	} {
		if !strings.Contains(core, frag) {
			t.Errorf("core properties missing %q:\n%s", frag, core)
		}
	}

	app := string(parts["docProps/app.xml"])
	if !strings.Contains(app, "<vt:i4>1</vt:i4>") {
		t.Errorf("app properties missing sheet count:\n%s", app)
	}
	if !strings.Contains(app, "<vt:lpstr>A</vt:lpstr>") {
		t.Errorf("app properties missing sheet title:\n%s", app)
	}
}

func TestBytesDeterministic(t *testing.T) {
	a, err := makeBook(t, 0, 10).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	b, err := makeBook(t, 0, 10).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical books generated different archives")
	}
}

// ── failure handling ──────────────────────────────────────────────────────────

func TestAddSheetDuplicateName(t *testing.T) {
	b := &workbook.Book{}
	if err := b.AddSheet(makeSheet(t, "Dup", 1)); err != nil {
		t.Fatal(err)
	}
	if err := b.AddSheet(makeSheet(t, "Dup", 1)); err == nil {
		t.Error("duplicate sheet name accepted")
	}
}

func TestBytesNoSheets(t *testing.T) {
	b := &workbook.Book{}
	_, err := b.Bytes()
	var pe *workbook.PartError
	if !errors.As(err, &pe) {
		t.Fatalf("Bytes() = %v, want *PartError", err)
	}
	if pe.Kind != workbook.KindMissingData {
		t.Errorf("Kind = %v, want KindMissingData", pe.Kind)
	}
}

func TestBytesMissingDataSource(t *testing.T) {
	b := &workbook.Book{}
	s, err := worksheet.New[row]("Orphan", nil,
		worksheet.Column[row]{Title: "N", Value: func(r row) worksheet.Value { return worksheet.Int(int64(r.N)) }})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddSheet(s); err != nil {
		t.Fatal(err)
	}
	_, err = b.Bytes()
	var pe *workbook.PartError
	if !errors.As(err, &pe) {
		t.Fatalf("Bytes() = %v, want *PartError", err)
	}
	if pe.Kind != workbook.KindMissingData {
		t.Errorf("Kind = %v, want KindMissingData", pe.Kind)
	}
	if pe.Part != "xl/worksheets/sheet1.xml" {
		t.Errorf("Part = %q, want the failing sheet part", pe.Part)
	}
	if !errors.Is(err, worksheet.ErrNoDataSource) {
		t.Errorf("error chain does not include ErrNoDataSource: %v", err)
	}
}

func TestWriteFileLeavesNoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.xlsx")

	b := &workbook.Book{}
	s, err := worksheet.New[row]("Orphan", nil,
		worksheet.Column[row]{Title: "N", Value: func(r row) worksheet.Value { return worksheet.Int(int64(r.N)) }})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddSheet(s); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteFile(target); err == nil {
		t.Fatal("WriteFile succeeded with a missing data source")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed generation left files behind: %v", entries)
	}
}

func TestWriteFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.xlsx")
	if err := makeBook(t, 5).WriteFile(target); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	extract(t, data) // must parse as a valid archive
}

// ── progress reporting ────────────────────────────────────────────────────────

func TestProgressUpdates(t *testing.T) {
	ch := make(chan workbook.Progress, 64)
	b := makeBook(t, 0, 10, 500)
	b.Progress = ch
	if _, err := b.Bytes(); err != nil {
		t.Fatal(err)
	}
	close(ch)

	var phases []workbook.Phase
	for p := range ch {
		if p.SheetsTotal != 3 {
			t.Errorf("SheetsTotal = %d, want 3", p.SheetsTotal)
		}
		phases = append(phases, p.Phase)
	}
	if len(phases) == 0 {
		t.Fatal("no progress updates delivered")
	}
	// Phases arrive in generation order.
	for i := 1; i < len(phases); i++ {
		if phases[i] < phases[i-1] {
			t.Errorf("phase %v arrived after %v", phases[i], phases[i-1])
		}
	}
	if phases[len(phases)-1] != workbook.PhasePackaging {
		t.Errorf("last phase = %v, want PhasePackaging", phases[len(phases)-1])
	}
}

func TestProgressNeverBlocks(t *testing.T) {
	// An unbuffered channel with no receiver must not stall generation.
	ch := make(chan workbook.Progress)
	b := makeBook(t, 0, 10)
	b.Progress = ch

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := b.Bytes(); err != nil {
			t.Errorf("Bytes: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generation blocked on the progress channel")
	}
}
