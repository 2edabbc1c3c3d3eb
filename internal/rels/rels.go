// Package rels builds OPC relationship parts (the .rels files that tie a
// package part to the parts it references).
package rels

import (
	"bytes"

	"github.com/adnsv/srw/xml"
)

// Relationship types used by a spreadsheet package.
const (
	TypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	TypeCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	TypeExtendedProps  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	TypeWorksheet      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	TypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	TypeTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	TypeSharedStrings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
)

// Relationship is one entry of a .rels part.  Targets are relative to the
// directory holding the part that owns the relationships file.
type Relationship struct {
	ID     string
	Type   string
	Target string
}

// XML renders a relationships part in declaration order.
func XML(list []Relationship) []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	for _, r := range list {
		x.OTag("+Relationship").
			Attr("Id", r.ID).
			Attr("Type", r.Type).
			Attr("Target", r.Target).
			CTag()
	}
	x.CTag()
	return bb.Bytes()
}
