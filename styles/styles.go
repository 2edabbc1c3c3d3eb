// Package styles deduplicates cell formatting into the index-referenced
// pools that xl/styles.xml is built from.
//
// A [Resolver] owns one pool per component (fonts, fills, borders,
// alignments, custom number formats) plus a pool of resolved styles — the
// (font, fill, border, alignment, numFmt) index tuples that cellXfs entries
// are made of.  Registering a structurally equal descriptor twice always
// yields the same index, and every pool only ever grows, so an index handed
// out during sheet rendering stays valid until the workbook is finished.
//
// A Resolver is scoped to exactly one generation run and is not safe for
// concurrent use.
package styles

import (
	"bytes"

	"github.com/adnsv/srw/xml"

	"github.com/TsubasaBE/go-xlsxgen/numfmt"
)

const nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// Font describes the typography of a cell.  Zero-value fields fall back to
// the workbook defaults (Calibri 11, theme text colour).
type Font struct {
	Name      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	Color     string // RRGGBB hex, no leading '#'
}

// Fill describes the cell background.  A Fill with only Color set is
// normalized to a solid pattern fill.
type Fill struct {
	Pattern string // "none", "gray125", "solid", ...
	Color   string // foreground colour for pattern fills, RRGGBB hex
}

// Line is one edge of a cell border.
type Line struct {
	Style string // "thin", "medium", "thick", "dashed", ...
	Color string // RRGGBB hex; empty means automatic
}

// Border describes all four cell edges.  The zero value is the mandatory
// empty border every workbook carries at border index 0.
type Border struct {
	Left   Line
	Right  Line
	Top    Line
	Bottom Line
}

// Alignment describes in-cell text placement.  Unlike the other components
// it has no mandatory default entry: a cell without alignment simply emits
// no alignment block at all.
type Alignment struct {
	Horizontal string // "left", "center", "right", ...
	Vertical   string // "top", "center", "bottom"
	WrapText   bool
}

// Style is the descriptor handed to [Resolver.Register].  Every component is
// independently optional; a nil component inherits the workbook default.
// Format, when set, is a number-format code that overrides any hint-derived
// format.
type Style struct {
	Font      *Font
	Fill      *Fill
	Border    *Border
	Alignment *Alignment
	Format    string
}

// HintKind classifies the cell content for number-format derivation.
type HintKind int

const (
	HintNone HintKind = iota
	HintPercent
	HintDate
	HintDateTime
)

// Hint carries the cell type hint alongside a descriptor.  Precision is only
// meaningful for HintPercent (number of decimal places).
type Hint struct {
	Kind      HintKind
	Precision int
}

// Merge combines style layers into one descriptor with innermost-wins
// precedence: pass the outermost layer (the book default) first and the cell
// layer last.  Each component is replaced wholesale by the innermost layer
// that sets it; components are never merged field by field.  Merge returns
// nil when every layer is nil, which Register treats as "inherit".
func Merge(layers ...*Style) *Style {
	var out *Style
	for _, l := range layers {
		if l == nil {
			continue
		}
		if out == nil {
			out = &Style{}
		}
		if l.Font != nil {
			out.Font = l.Font
		}
		if l.Fill != nil {
			out.Fill = l.Fill
		}
		if l.Border != nil {
			out.Border = l.Border
		}
		if l.Alignment != nil {
			out.Alignment = l.Alignment
		}
		if l.Format != "" {
			out.Format = l.Format
		}
	}
	return out
}

// ── pools ─────────────────────────────────────────────────────────────────────

// pool is an insertion-ordered deduplicated collection.  Adding a value that
// is already present returns its existing slot; a fresh value appends at the
// next index.  Lookup and insert are O(1) amortized.
type pool[T comparable] struct {
	items []T
	index map[T]int
}

func newPool[T comparable](seed ...T) *pool[T] {
	p := &pool[T]{index: make(map[T]int)}
	for _, v := range seed {
		p.add(v)
	}
	return p
}

func (p *pool[T]) add(v T) int {
	if i, ok := p.index[v]; ok {
		return i
	}
	i := len(p.items)
	p.items = append(p.items, v)
	p.index[v] = i
	return i
}

func (p *pool[T]) len() int { return len(p.items) }

// styleKey is a resolved style: the component indices one cellXfs entry
// references.  align is -1 when the style carries no alignment block.
type styleKey struct {
	font   int
	fill   int
	border int
	numFmt int
	align  int
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// Resolver deduplicates style descriptors and renders xl/styles.xml.
// Construct one per generation run with [NewResolver].
type Resolver struct {
	fonts   *pool[Font]
	fills   *pool[Fill]
	borders *pool[Border]
	aligns  *pool[Alignment]
	formats *pool[string] // custom codes; id = numfmt.FirstCustom + slot
	xfs     *pool[styleKey]
}

// NewResolver returns a Resolver pre-populated with the entries the format
// mandates before any user style exists: the default font at font index 0,
// the "none" and "gray125" fills at fill indices 0 and 1, the empty border
// at border index 0, and the default resolved style at style index 0.
func NewResolver() *Resolver {
	r := &Resolver{
		fonts:   newPool(Font{Name: "Calibri", Size: 11}),
		fills:   newPool(Fill{Pattern: "none"}, Fill{Pattern: "gray125"}),
		borders: newPool(Border{}),
		aligns:  newPool[Alignment](),
		formats: newPool[string](),
		xfs:     newPool[styleKey](),
	}
	r.xfs.add(styleKey{align: -1})
	return r
}

// Register resolves a style descriptor into its cellXfs index.  It returns
// ok == false when st is nil, meaning the cell inherits its styling from
// elsewhere and no style id should be written at all.
//
// Register is idempotent: structurally identical descriptors always resolve
// to the same index, regardless of call order or repetition.
func (r *Resolver) Register(st *Style, h Hint) (idx int, ok bool) {
	if st == nil {
		return 0, false
	}
	key := styleKey{align: -1}
	if st.Font != nil {
		key.font = r.fonts.add(st.Font.normalized())
	}
	if st.Fill != nil {
		key.fill = r.fills.add(st.Fill.normalized())
	}
	if st.Border != nil {
		key.border = r.borders.add(*st.Border)
	}
	if st.Alignment != nil {
		key.align = r.aligns.add(*st.Alignment)
	}
	key.numFmt = r.numFmtID(st.Format, h)
	return r.xfs.add(key), true
}

// Len returns the number of resolved styles, including the mandatory
// default at index 0.
func (r *Resolver) Len() int { return r.xfs.len() }

// numFmtID derives the numFmtId for a descriptor.  An explicit code wins
// over the hint; built-in codes (date = 14, datetime = 22, the percent
// formats, ...) bypass the custom pool entirely and never consume a slot at
// numfmt.FirstCustom or above.
func (r *Resolver) numFmtID(code string, h Hint) int {
	if code == "" {
		switch h.Kind {
		case HintPercent:
			code = numfmt.PercentFormat(h.Precision)
		case HintDate:
			return numfmt.Date
		case HintDateTime:
			return numfmt.DateTime
		default:
			return numfmt.General
		}
	}
	if id, ok := numfmt.BuiltInID(code); ok {
		return id
	}
	return numfmt.FirstCustom + r.formats.add(code)
}

func (f Font) normalized() Font {
	if f.Name == "" {
		f.Name = "Calibri"
	}
	if f.Size == 0 {
		f.Size = 11
	}
	return f
}

func (f Fill) normalized() Fill {
	if f.Pattern == "" {
		if f.Color != "" {
			f.Pattern = "solid"
		} else {
			f.Pattern = "none"
		}
	}
	return f
}

// ── XML generation ────────────────────────────────────────────────────────────

// XML renders the complete xl/styles.xml part from the current pool state.
// The emission order is mandated by the format: custom numFmts first, then
// fonts, fills and borders in insertion order, the single master
// cellStyleXfs entry, one cellXfs entry per resolved style, and the single
// Normal named style.
func (r *Resolver) XML() []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", nsMain)

	if r.formats.len() > 0 {
		x.OTag("+numFmts").Attr("count", r.formats.len())
		for i, code := range r.formats.items {
			x.OTag("+numFmt").Attr("numFmtId", numfmt.FirstCustom+i).Attr("formatCode", code).CTag()
		}
		x.CTag()
	}

	x.OTag("+fonts").Attr("count", r.fonts.len())
	for _, f := range r.fonts.items {
		x.OTag("+font")
		if f.Bold {
			x.OTag("+b").CTag()
		}
		if f.Italic {
			x.OTag("+i").CTag()
		}
		if f.Underline {
			x.OTag("+u").CTag()
		}
		x.OTag("+sz").Attr("val", f.Size).CTag()
		if f.Color != "" {
			x.OTag("+color").Attr("rgb", argb(f.Color)).CTag()
		} else {
			x.OTag("+color").Attr("theme", 1).CTag()
		}
		x.OTag("+name").Attr("val", f.Name).CTag()
		x.OTag("+family").Attr("val", 2).CTag()
		x.CTag()
	}
	x.CTag()

	x.OTag("+fills").Attr("count", r.fills.len())
	for _, f := range r.fills.items {
		x.OTag("+fill")
		x.OTag("+patternFill").Attr("patternType", f.Pattern)
		if f.Pattern == "solid" {
			x.OTag("+fgColor").Attr("rgb", argb(f.Color)).CTag()
			x.OTag("+bgColor").Attr("indexed", 64).CTag()
		}
		x.CTag()
		x.CTag()
	}
	x.CTag()

	x.OTag("+borders").Attr("count", r.borders.len())
	for _, b := range r.borders.items {
		x.OTag("+border")
		borderSide(x, "+left", b.Left)
		borderSide(x, "+right", b.Right)
		borderSide(x, "+top", b.Top)
		borderSide(x, "+bottom", b.Bottom)
		x.OTag("+diagonal").CTag()
		x.CTag()
	}
	x.CTag()

	// The single master format entry every cellXfs xf points back to.
	x.OTag("+cellStyleXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
	x.CTag()

	x.OTag("+cellXfs").Attr("count", r.xfs.len())
	for _, key := range r.xfs.items {
		x.OTag("+xf").
			Attr("numFmtId", key.numFmt).
			Attr("fontId", key.font).
			Attr("fillId", key.fill).
			Attr("borderId", key.border).
			Attr("xfId", 0)
		if key.numFmt != 0 {
			x.Attr("applyNumberFormat", 1)
		}
		if key.font != 0 {
			x.Attr("applyFont", 1)
		}
		if key.fill != 0 {
			x.Attr("applyFill", 1)
		}
		if key.border != 0 {
			x.Attr("applyBorder", 1)
		}
		if key.align >= 0 {
			x.Attr("applyAlignment", 1)
			a := r.aligns.items[key.align]
			x.OTag("+alignment")
			if a.Horizontal != "" {
				x.Attr("horizontal", a.Horizontal)
			}
			if a.Vertical != "" {
				x.Attr("vertical", a.Vertical)
			}
			if a.WrapText {
				x.Attr("wrapText", 1)
			}
			x.CTag()
		}
		x.CTag()
	}
	x.CTag()

	// The single fixed named style.
	x.OTag("+cellStyles").Attr("count", 1)
	x.OTag("+cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
	x.CTag()

	x.CTag()
	return bb.Bytes()
}

func borderSide(x *xml.Writer, name xml.NameString, l Line) {
	if l.Style == "" {
		x.OTag(name).CTag()
		return
	}
	x.OTag(name).Attr("style", l.Style)
	if l.Color != "" {
		x.OTag("+color").Attr("rgb", argb(l.Color)).CTag()
	}
	x.CTag()
}

// argb prefixes an RRGGBB colour with the full-opacity alpha channel the
// format stores colours with.  8-digit values pass through unchanged.
func argb(c string) string {
	if len(c) == 6 {
		return "FF" + c
	}
	return c
}
