// Package workbook assembles a complete spreadsheet package from a set of
// worksheet sources.
//
// Generation runs in four phases: sheet metadata is collected (loading every
// data source exactly once), worksheet parts are rendered against shared
// style and string pools, the workbook-level parts are rendered from the now
// complete metadata, and finally all parts are framed into the container.
// The first failure aborts the run with a [*PartError]; [Book.WriteFile]
// never leaves a partial file behind.
package workbook

import (
	"bytes"
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adnsv/srw/xml"

	"github.com/TsubasaBE/go-xlsxgen/internal/rels"
	"github.com/TsubasaBE/go-xlsxgen/stringtable"
	"github.com/TsubasaBE/go-xlsxgen/styles"
	"github.com/TsubasaBE/go-xlsxgen/worksheet"
	"github.com/TsubasaBE/go-xlsxgen/zippack"
)

// SheetMeta describes one sheet as recorded during the metadata phase.
type SheetMeta struct {
	ID        int
	Name      string
	RelID     string
	Path      string
	HasHeader bool
	Range     worksheet.Range
}

// Book is a workbook under construction.  Populate the document fields,
// add sheets, then call [Book.Bytes] or [Book.WriteFile].
type Book struct {
	Title    string
	Author   string
	AppName  string
	Created  time.Time
	Modified time.Time

	// Date1904 selects the 1904 date system for serial conversion and is
	// recorded in the workbook part so readers interpret serials the same
	// way.
	Date1904 bool

	// Default is the outermost style layer, applied to every cell of
	// every sheet unless overridden by a sheet, column, or cell layer.
	Default *styles.Style

	// Progress, when set, receives advisory generation updates.
	Progress chan<- Progress

	sheets []worksheet.Source
	stats  zippack.Stats
}

// AddSheet appends a sheet.  Sheet names must be unique within the book.
func (b *Book) AddSheet(s worksheet.Source) error {
	for _, prev := range b.sheets {
		if prev.Name() == s.Name() {
			return fmt.Errorf("workbook: duplicate sheet name %q", s.Name())
		}
	}
	b.sheets = append(b.sheets, s)
	return nil
}

// SheetCount returns the number of sheets added so far.
func (b *Book) SheetCount() int { return len(b.sheets) }

// Bytes generates the complete package in memory.
func (b *Book) Bytes() ([]byte, error) {
	if len(b.sheets) == 0 {
		return nil, &PartError{Part: "xl/workbook.xml", Kind: KindMissingData,
			Err: errors.New("workbook has no sheets")}
	}

	// Phase 1: load every data source and record sheet metadata.  All
	// loads happen before any rendering so workbook-level parts see
	// complete metadata.
	metas := make([]SheetMeta, len(b.sheets))
	for i, s := range b.sheets {
		path := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		if err := s.Load(); err != nil {
			return nil, &PartError{Part: path, Kind: KindMissingData, Err: err}
		}
		metas[i] = SheetMeta{
			ID:        i + 1,
			Name:      s.Name(),
			RelID:     fmt.Sprintf("rId%d", i+1),
			Path:      path,
			HasHeader: s.HasHeader(),
			Range:     s.UsedRange(),
		}
		b.notify(Progress{Phase: PhaseMetadata, Part: path, SheetsDone: i + 1, SheetsTotal: len(b.sheets)})
	}

	// Phase 2: render worksheet parts against the shared pools.  The
	// pools accumulate across sheets, so style ids and string indices
	// are valid workbook-wide.
	res := styles.NewResolver()
	tbl := stringtable.New()
	sheetParts := make([][]byte, len(b.sheets))
	for i, s := range b.sheets {
		data, err := s.XML(res, tbl, b.Default, b.Date1904)
		if err != nil {
			return nil, &PartError{Part: metas[i].Path, Kind: KindXMLGeneration, Err: err}
		}
		if err := validateXML(data); err != nil {
			return nil, &PartError{Part: metas[i].Path, Kind: KindXMLValidation, Err: err}
		}
		if err := spotCheckSheet(data, metas[i]); err != nil {
			return nil, &PartError{Part: metas[i].Path, Kind: KindXMLValidation, Err: err}
		}
		sheetParts[i] = data
		b.notify(Progress{Phase: PhaseSheets, Part: metas[i].Path, SheetsDone: i + 1, SheetsTotal: len(b.sheets)})
	}

	// Phase 3: workbook-level parts.  The pools are complete now, so
	// styles and shared strings can be rendered.
	type part struct {
		name string
		data []byte
	}
	parts := []part{
		{"[Content_Types].xml", b.contentTypesXML(metas)},
		{"_rels/.rels", b.rootRelsXML()},
		{"docProps/core.xml", b.corePropsXML()},
		{"docProps/app.xml", b.appPropsXML(metas)},
		{"xl/workbook.xml", b.workbookXML(metas)},
		{"xl/_rels/workbook.xml.rels", b.workbookRelsXML(metas)},
		{"xl/styles.xml", res.XML()},
		{"xl/sharedStrings.xml", tbl.XML()},
		{"xl/theme/theme1.xml", []byte(themeXML)},
	}
	for _, p := range parts {
		if err := validateXML(p.data); err != nil {
			return nil, &PartError{Part: p.name, Kind: KindXMLValidation, Err: err}
		}
		b.notify(Progress{Phase: PhaseGlobals, Part: p.name, SheetsDone: len(b.sheets), SheetsTotal: len(b.sheets)})
	}

	// Phase 4: frame everything into the container.
	entries := make([]zippack.Entry, 0, len(parts)+len(sheetParts))
	for _, p := range parts {
		entries = append(entries, zippack.Entry{Name: p.name, Data: p.data, Modified: b.Modified})
	}
	for i, data := range sheetParts {
		entries = append(entries, zippack.Entry{Name: metas[i].Path, Data: data, Modified: b.Modified})
	}
	out, st, err := zippack.Encode(entries)
	if err != nil {
		return nil, &PartError{Part: "package", Kind: KindPackaging, Err: err}
	}
	b.stats = st
	b.notify(Progress{Phase: PhasePackaging, Part: "package", SheetsDone: len(b.sheets), SheetsTotal: len(b.sheets)})
	return out, nil
}

// Stats returns the aggregate compression statistics of the most recent
// successful generation.  It is zero before the first [Book.Bytes] call.
func (b *Book) Stats() zippack.Stats { return b.stats }

// WriteFile generates the package and writes it to name.  The package is
// staged in a temporary file in the target directory and renamed into place,
// so a failed run never leaves a truncated file at name.
func (b *Book) WriteFile(name string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, ".xlsxgen-*")
	if err != nil {
		return &PartError{Part: name, Kind: KindFileWrite, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PartError{Part: name, Kind: KindFileWrite, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PartError{Part: name, Kind: KindFileWrite, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &PartError{Part: name, Kind: KindFileWrite, Err: err}
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return &PartError{Part: name, Kind: KindFileWrite, Err: err}
	}
	return nil
}

// notify sends a progress update without blocking.
func (b *Book) notify(p Progress) {
	if b.Progress == nil {
		return
	}
	select {
	case b.Progress <- p:
	default:
	}
}

// spotCheckSheet asserts structural facts the token scan cannot see: the
// worksheet root element and, when the sheet has any rows at all, at least
// one row element.
func spotCheckSheet(data []byte, m SheetMeta) error {
	if !bytes.Contains(data, []byte("<worksheet")) {
		return errors.New("missing worksheet root element")
	}
	if m.Range.ToRow > 1 && !bytes.Contains(data, []byte("<row")) {
		return errors.New("sheet has rows but no row elements were rendered")
	}
	return nil
}

// validateXML checks that a rendered part is well-formed and opens with an
// XML declaration.  The check is a pure token scan; it catches writer bugs
// before they produce a package readers reject.
func validateXML(data []byte) error {
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return errors.New("part does not start with an XML declaration")
	}
	dec := stdxml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ── part rendering ────────────────────────────────────────────────────────────

func (b *Book) workbookXML(metas []SheetMeta) []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")
	x.OTag("+workbookPr")
	if b.Date1904 {
		x.Attr("date1904", "true")
	} else {
		x.Attr("date1904", "false")
	}
	x.CTag()
	x.OTag("+sheets")
	for _, m := range metas {
		x.OTag("+sheet").
			Attr("name", m.Name).
			Attr("sheetId", m.ID).
			Attr("r:id", m.RelID).
			CTag()
	}
	x.CTag()
	x.CTag()
	return bb.Bytes()
}

func (b *Book) contentTypesXML(metas []SheetMeta) []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	def := func(ext, ctype string) {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
	}
	override := func(part, ctype string) {
		x.OTag("+Override").Attr("PartName", part).Attr("ContentType", ctype).CTag()
	}
	def("rels", "application/vnd.openxmlformats-package.relationships+xml")
	def("xml", "application/xml")
	override("/xl/workbook.xml", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml")
	for _, m := range metas {
		override("/"+m.Path, "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml")
	}
	override("/xl/styles.xml", "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml")
	override("/xl/sharedStrings.xml", "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml")
	override("/xl/theme/theme1.xml", "application/vnd.openxmlformats-officedocument.theme+xml")
	override("/docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml")
	override("/docProps/app.xml", "application/vnd.openxmlformats-officedocument.extended-properties+xml")
	x.CTag()
	return bb.Bytes()
}

func (b *Book) rootRelsXML() []byte {
	return rels.XML([]rels.Relationship{
		{ID: "rId1", Type: rels.TypeOfficeDocument, Target: "xl/workbook.xml"},
		{ID: "rId2", Type: rels.TypeCoreProps, Target: "docProps/core.xml"},
		{ID: "rId3", Type: rels.TypeExtendedProps, Target: "docProps/app.xml"},
	})
}

func (b *Book) workbookRelsXML(metas []SheetMeta) []byte {
	list := make([]rels.Relationship, 0, len(metas)+3)
	for _, m := range metas {
		list = append(list, rels.Relationship{
			ID:     m.RelID,
			Type:   rels.TypeWorksheet,
			Target: fmt.Sprintf("worksheets/sheet%d.xml", m.ID),
		})
	}
	n := len(metas)
	list = append(list,
		rels.Relationship{ID: fmt.Sprintf("rId%d", n+1), Type: rels.TypeStyles, Target: "styles.xml"},
		rels.Relationship{ID: fmt.Sprintf("rId%d", n+2), Type: rels.TypeTheme, Target: "theme/theme1.xml"},
		rels.Relationship{ID: fmt.Sprintf("rId%d", n+3), Type: rels.TypeSharedStrings, Target: "sharedStrings.xml"},
	)
	return rels.XML(list)
}

func (b *Book) corePropsXML() []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	if b.Title != "" {
		x.OTag("+dc:title").String(b.Title).CTag()
	}
	if b.Author != "" {
		x.OTag("+dc:creator").String(b.Author).CTag()
		x.OTag("+cp:lastModifiedBy").String(b.Author).CTag()
	}
	if !b.Created.IsZero() {
		x.OTag("+dcterms:created").Attr("xsi:type", "dcterms:W3CDTF").
			Write(b.Created.UTC().Format(time.RFC3339)).CTag()
	}
	if !b.Modified.IsZero() {
		x.OTag("+dcterms:modified").Attr("xsi:type", "dcterms:W3CDTF").
			Write(b.Modified.UTC().Format(time.RFC3339)).CTag()
	}
	x.CTag()
	return bb.Bytes()
}

func (b *Book) appPropsXML(metas []SheetMeta) []byte {
	app := b.AppName
	if app == "" {
		app = "go-xlsxgen"
	}
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")
	x.OTag("+Application").String(app).CTag()
	x.OTag("+HeadingPairs")
	x.OTag("+vt:vector").Attr("size", 2).Attr("baseType", "variant")
	x.OTag("+vt:variant")
	x.OTag("vt:lpstr").Write("Worksheets").CTag()
	x.CTag()
	x.OTag("+vt:variant")
	x.OTag("vt:i4").Write(len(metas)).CTag()
	x.CTag()
	x.CTag()
	x.CTag()
	x.OTag("+TitlesOfParts")
	x.OTag("+vt:vector").Attr("size", len(metas)).Attr("baseType", "lpstr")
	for _, m := range metas {
		x.OTag("+vt:lpstr").String(m.Name).CTag()
	}
	x.CTag()
	x.CTag()
	x.CTag()
	return bb.Bytes()
}
