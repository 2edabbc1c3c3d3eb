// Package worksheet models one sheet of a workbook: its typed column
// definitions, its lazily loaded row objects, and the rendering of its
// xl/worksheets/sheetN.xml part.
//
// A [Sheet] binds a row type T to an ordered list of [Column] definitions.
// Each column carries a typed accessor that maps one row object to a cell
// [Value]; the package assembler drives the [Source] interface without ever
// learning how cell values were derived.
//
// Styling is layered: book default < sheet < column < cell, merged once per
// cell with [styles.Merge] before the merged descriptor is handed to the
// shared resolver.
package worksheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adnsv/srw/xml"
	"github.com/google/uuid"

	"github.com/TsubasaBE/go-xlsxgen/internal/serial"
	"github.com/TsubasaBE/go-xlsxgen/stringtable"
	"github.com/TsubasaBE/go-xlsxgen/styles"
)

const (
	nsMain     = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRels     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRevision = "http://schemas.microsoft.com/office/spreadsheetml/2014/revision"
)

// ErrNoDataSource is returned (wrapped) when a declared sheet never supplied
// its object sequence.  A sheet without data is a configuration error, not a
// silently-empty sheet.
var ErrNoDataSource = errors.New("worksheet: no data source")

// ── cell values ───────────────────────────────────────────────────────────────

type valueKind int

const (
	kindBlank valueKind = iota
	kindString
	kindInline
	kindNumber
	kindBool
	kindTime
)

// Value is the closed set of contents a cell can hold.  Construct values
// with the factory functions below; the renderer matches exhaustively on the
// variant to produce the cell's type marker and content.  Extending the set
// means adding a variant here and a case to the renderer, never subclassing.
type Value struct {
	kind valueKind
	str  string
	num  float64
	boo  bool
	tm   time.Time
}

// Blank returns the empty cell value.
func Blank() Value { return Value{} }

// String returns a text value stored through the shared string pool.
func String(s string) Value { return Value{kind: kindString, str: s} }

// InlineString returns a text value embedded directly in the worksheet,
// bypassing the shared string pool.  Use it for one-off strings that would
// only bloat the pool.
func InlineString(s string) Value { return Value{kind: kindInline, str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// Int returns a numeric value from an integer.
func Int(n int64) Value { return Value{kind: kindNumber, num: float64(n)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: kindBool, boo: b} }

// Time returns a date/time value.  It is stored as a date serial number and,
// unless the column provides its own hint or format, automatically acquires
// the matching date or datetime number format.
func Time(t time.Time) Value { return Value{kind: kindTime, tm: t} }

// IsBlank reports whether v is the empty cell value.
func (v Value) IsBlank() bool { return v.kind == kindBlank }

// ── columns ───────────────────────────────────────────────────────────────────

// Column configures one sheet column for row type T.
//
// Value is the typed accessor bound at construction time: it maps one row
// object to the cell content for this column.  CellStyle, when set, supplies
// a per-cell style layer (the innermost of the cascade).  When, when set, is
// evaluated once at sheet construction and excludes the column entirely if
// it returns false.
type Column[T any] struct {
	Title       string
	Width       float64
	Style       *styles.Style
	HeaderStyle *styles.Style
	Hint        styles.Hint
	Value       func(T) Value
	CellStyle   func(T) *styles.Style
	When        func() bool
}

// ── sheet ─────────────────────────────────────────────────────────────────────

// Range is a used cell range in 1-based row/column coordinates.
type Range struct {
	FromRow, FromCol int
	ToRow, ToCol     int
}

// String renders the range in A1 notation, e.g. "A1:C11".
func (r Range) String() string {
	from := CellRef(r.FromCol, r.FromRow)
	to := CellRef(r.ToCol, r.ToRow)
	if from == to {
		return from
	}
	return from + ":" + to
}

// Source is the contract the package assembler drives.  The assembler calls
// Load exactly once for every sheet before any sheet's XML is requested, so
// workbook-level parts can enumerate complete metadata.
type Source interface {
	// Name returns the sheet's validated display name.
	Name() string
	// Load triggers the lazy data accessor.  Calling it again is a no-op.
	Load() error
	// RowCount returns the number of data rows (excluding the header).
	// Only valid after Load.
	RowCount() int
	// HasHeader reports whether the sheet renders a header row.
	HasHeader() bool
	// UsedRange returns the computed used range.  Only valid after Load.
	UsedRange() Range
	// XML renders the worksheet part against the shared resolver and
	// string pool, so style ids and string indices are consistent
	// workbook-wide.
	XML(res *styles.Resolver, tbl *stringtable.Table, bookDefault *styles.Style, date1904 bool) ([]byte, error)
}

// Sheet binds a row type to its column definitions and implements [Source].
type Sheet[T any] struct {
	name    string
	columns []Column[T]
	data    func() []T
	rows    []T
	loaded  bool
	header  bool
	style   *styles.Style
}

// New builds a sheet from a validated name, a lazy data accessor, and an
// ordered column list.  Columns whose When predicate returns false are
// dropped here, so the rest of the pipeline only ever sees included columns.
// The data accessor may be nil at construction time, but generation will
// fail with [ErrNoDataSource] if it still is when the sheet loads.
//
// Sheets render a header row by default; see [Sheet.WithoutHeader].
func New[T any](name string, data func() []T, columns ...Column[T]) (*Sheet[T], error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	cols := make([]Column[T], 0, len(columns))
	for _, c := range columns {
		if c.When != nil && !c.When() {
			continue
		}
		cols = append(cols, c)
	}
	return &Sheet[T]{name: name, data: data, columns: cols, header: true}, nil
}

// WithoutHeader disables the header row.  It returns the sheet for chaining.
func (s *Sheet[T]) WithoutHeader() *Sheet[T] {
	s.header = false
	return s
}

// WithStyle sets the sheet-level style layer applied to every cell unless a
// column or cell layer overrides it.  It returns the sheet for chaining.
func (s *Sheet[T]) WithStyle(st *styles.Style) *Sheet[T] {
	s.style = st
	return s
}

// WithData replaces the lazy data accessor.  Useful when the sheet layout is
// declared before the data becomes available.
func (s *Sheet[T]) WithData(data func() []T) *Sheet[T] {
	s.data = data
	return s
}

// Name returns the sheet's display name.
func (s *Sheet[T]) Name() string { return s.name }

// HasHeader reports whether the sheet renders a header row.
func (s *Sheet[T]) HasHeader() bool { return s.header }

// Load invokes the data accessor.  The first call wins; repeated calls are
// no-ops, so the accessor runs at most once per sheet.
func (s *Sheet[T]) Load() error {
	if s.loaded {
		return nil
	}
	if s.data == nil {
		return fmt.Errorf("sheet %q: %w", s.name, ErrNoDataSource)
	}
	s.rows = s.data()
	s.loaded = true
	return nil
}

// RowCount returns the number of loaded data rows.
func (s *Sheet[T]) RowCount() int { return len(s.rows) }

// UsedRange computes the sheet's used range from the loaded rows and the
// included columns.  An empty sheet still occupies A1.
func (s *Sheet[T]) UsedRange() Range {
	toRow := len(s.rows)
	if s.header && len(s.columns) > 0 {
		toRow++
	}
	toCol := len(s.columns)
	if toRow < 1 {
		toRow = 1
	}
	if toCol < 1 {
		toCol = 1
	}
	return Range{FromRow: 1, FromCol: 1, ToRow: toRow, ToCol: toCol}
}

// XML renders the complete worksheet part.  Style descriptors are resolved
// through res and shared strings through tbl, so the emitted ids are valid
// against the workbook-wide pools.
func (s *Sheet[T]) XML(res *styles.Resolver, tbl *stringtable.Table, bookDefault *styles.Style, date1904 bool) ([]byte, error) {
	if !s.loaded {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", nsMain)
	x.Attr("xmlns:r", nsRels)
	x.Attr("xmlns:xr", nsRevision)
	x.Attr("xr:uid", s.uid())

	x.OTag("+dimension").Attr("ref", s.UsedRange().String()).CTag()

	x.OTag("+sheetViews")
	x.OTag("+sheetView").Attr("workbookViewId", 0).CTag()
	x.CTag()

	if s.hasColumnWidths() {
		x.OTag("+cols")
		for i, c := range s.columns {
			if c.Width <= 0 {
				continue
			}
			x.OTag("+col").Attr("min", i+1).Attr("max", i+1).Attr("width", c.Width).Attr("customWidth", 1).CTag()
		}
		x.CTag()
	}

	x.OTag("+sheetData")
	rowNum := 1
	if s.header && len(s.columns) > 0 {
		x.OTag("+row").Attr("r", rowNum)
		for ci, c := range s.columns {
			merged := styles.Merge(bookDefault, s.style, c.HeaderStyle)
			s.writeCell(x, res, tbl, rowNum, ci, merged, styles.Hint{}, String(c.Title), date1904)
		}
		x.CTag()
		rowNum++
	}
	for _, item := range s.rows {
		x.OTag("+row").Attr("r", rowNum)
		for ci, c := range s.columns {
			v := Blank()
			if c.Value != nil {
				v = c.Value(item)
			}
			var cellStyle *styles.Style
			if c.CellStyle != nil {
				cellStyle = c.CellStyle(item)
			}
			merged := styles.Merge(bookDefault, s.style, c.Style, cellStyle)
			hint := c.Hint
			if hint.Kind == styles.HintNone && v.kind == kindTime {
				hint.Kind = timeHint(v.tm)
			}
			s.writeCell(x, res, tbl, rowNum, ci, merged, hint, v, date1904)
		}
		x.CTag()
		rowNum++
	}
	x.CTag() // sheetData

	x.CTag() // worksheet
	return bb.Bytes(), nil
}

// writeCell emits one <c> element: reference, style id if any, and the
// variant-specific type marker and content.
func (s *Sheet[T]) writeCell(x *xml.Writer, res *styles.Resolver, tbl *stringtable.Table, row, colIdx int, merged *styles.Style, hint styles.Hint, v Value, date1904 bool) {
	// A hint without any explicit styling still needs a cell format so the
	// derived number format applies.
	if merged == nil && hint.Kind != styles.HintNone {
		merged = &styles.Style{}
	}
	idx, ok := res.Register(merged, hint)

	x.OTag("+c").Attr("r", CellRef(colIdx+1, row))
	if ok {
		x.Attr("s", idx)
	}
	switch v.kind {
	case kindBlank:
		// No content element at all.
	case kindString:
		x.Attr("t", "s")
		x.OTag("v").Write(tbl.Add(v.str)).CTag()
	case kindInline:
		x.Attr("t", "inlineStr")
		x.OTag("is")
		x.OTag("t").Write(v.str).CTag()
		x.CTag()
	case kindNumber:
		x.OTag("v").Write(formatNumber(v.num)).CTag()
	case kindBool:
		x.Attr("t", "b")
		if v.boo {
			x.OTag("v").Write("1").CTag()
		} else {
			x.OTag("v").Write("0").CTag()
		}
	case kindTime:
		ser, err := serial.FromTime(v.tm, date1904)
		if err != nil {
			// Out-of-range dates degrade to their textual form rather
			// than corrupting the numeric cell.
			x.Attr("t", "inlineStr")
			x.OTag("is")
			x.OTag("t").Write(v.tm.UTC().Format(time.RFC3339)).CTag()
			x.CTag()
			break
		}
		x.OTag("v").Write(formatNumber(ser)).CTag()
	}
	x.CTag()
}

func (s *Sheet[T]) hasColumnWidths() bool {
	for _, c := range s.columns {
		if c.Width > 0 {
			return true
		}
	}
	return false
}

// uid derives the sheet's revision identifier from its name.  Using a
// namespace UUID keeps the identifier stable across runs, so identical
// workbooks stay byte-identical.
func (s *Sheet[T]) uid() string {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte("xlsxgen:sheet:"+s.name))
	return "{" + strings.ToUpper(u.String()) + "}"
}

// timeHint picks the date or datetime format for a time value: midnight
// timestamps read better as plain dates.
func timeHint(t time.Time) styles.HintKind {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return styles.HintDate
	}
	return styles.HintDateTime
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ── naming and references ─────────────────────────────────────────────────────

// ValidateName checks a sheet display name against the format's rules:
// 1–31 runes, none of :\/?*[], and no leading or trailing apostrophe.
func ValidateName(s string) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return errors.New("worksheet: empty sheet name is not allowed")
	}
	if n > 31 {
		return fmt.Errorf("worksheet: sheet name %q exceeds 31 characters", s)
	}
	if strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'") {
		return fmt.Errorf("worksheet: sheet name %q may not start or end with an apostrophe", s)
	}
	if strings.ContainsAny(s, `:\/?*[]`) {
		return fmt.Errorf(`worksheet: sheet name %q contains one of :\/?*[]`, s)
	}
	return nil
}

// ColumnLetters converts a 1-based column number to its letter form:
// 1 → "A", 26 → "Z", 27 → "AA".
func ColumnLetters(n int) string {
	if n < 1 {
		panic("worksheet: invalid column number")
	}
	var s string
	for n > 0 {
		s = string(rune((n-1)%26+'A')) + s
		n = (n - 1) / 26
	}
	return s
}

// CellRef builds an A1-notation cell reference from 1-based column and row
// numbers.
func CellRef(col, row int) string {
	return ColumnLetters(col) + strconv.Itoa(row)
}
