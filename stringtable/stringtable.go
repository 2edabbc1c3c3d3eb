// Package stringtable maintains the workbook-wide shared string pool backing
// xl/sharedStrings.xml.
//
// The pool is insertion-ordered and deduplicated: the k-th distinct value
// added receives index k-1, and adding a value that is already present
// returns its existing index.  Cells reference pool slots by index, so the
// declared count and uniqueCount of the generated part are always equal by
// construction.
//
// A Table is scoped to exactly one generation run and is not safe for
// concurrent mutation.
package stringtable

import (
	"bytes"
	"strings"

	"github.com/adnsv/srw/xml"
)

const nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// Table holds the deduplicated shared strings of one workbook.
type Table struct {
	strings []string
	index   map[string]int
}

// New returns an empty shared string table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Add registers s and returns its pool index.  An existing value reuses its
// index; a new value appends at the next index.
func (t *Table) Add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.strings)
	t.strings = append(t.strings, s)
	t.index[s] = i
	return i
}

// AddAll registers every value in order.  Values already present are
// skipped; the first-seen order of new values is preserved.
func (t *Table) AddAll(values []string) {
	for _, s := range values {
		t.Add(s)
	}
}

// Get returns the shared string at index idx.  It panics if idx is out of
// range, matching the behaviour of a slice index.
func (t *Table) Get(idx int) string {
	return t.strings[idx]
}

// Len returns the total number of shared strings in the pool.
func (t *Table) Len() int {
	return len(t.strings)
}

// XML renders the xl/sharedStrings.xml part: one <si> entry per pool slot in
// insertion order.  Strings with significant leading or trailing whitespace
// carry xml:space="preserve" so readers do not collapse them.
func (t *Table) XML() []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("sst")
	x.Attr("xmlns", nsMain)
	x.Attr("count", len(t.strings))
	x.Attr("uniqueCount", len(t.strings))

	for _, s := range t.strings {
		x.OTag("+si")
		x.OTag("t")
		if s != strings.TrimSpace(s) {
			x.Attr("xml:space", "preserve")
		}
		x.Write(s)
		x.CTag()
		x.CTag()
	}

	x.CTag()
	return bb.Bytes()
}
