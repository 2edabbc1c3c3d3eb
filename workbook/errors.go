package workbook

import "fmt"

// Kind classifies what went wrong while producing a package part.
type Kind int

const (
	// KindMissingData means a sheet had no data source when it was loaded.
	KindMissingData Kind = iota
	// KindXMLGeneration means rendering a part's XML failed.
	KindXMLGeneration
	// KindXMLValidation means a rendered part was not well-formed XML.
	KindXMLValidation
	// KindPackaging means assembling the container around the finished
	// parts failed.
	KindPackaging
	// KindEncoding means a value could not be represented in the target
	// format.
	KindEncoding
	// KindFileWrite means writing the finished package to disk failed.
	KindFileWrite
)

func (k Kind) String() string {
	switch k {
	case KindMissingData:
		return "missing data"
	case KindXMLGeneration:
		return "xml generation"
	case KindXMLValidation:
		return "xml validation"
	case KindPackaging:
		return "packaging"
	case KindEncoding:
		return "encoding"
	case KindFileWrite:
		return "file write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PartError reports a failure attributed to one package part.  Generation
// aborts on the first PartError; no partial package is ever produced.
type PartError struct {
	Part string
	Kind Kind
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("workbook: part %s: %s: %v", e.Part, e.Kind, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }

// ── progress reporting ────────────────────────────────────────────────────────

// Phase identifies a stage of package generation.
type Phase int

const (
	PhaseMetadata Phase = iota
	PhaseSheets
	PhaseGlobals
	PhasePackaging
)

func (p Phase) String() string {
	switch p {
	case PhaseMetadata:
		return "metadata"
	case PhaseSheets:
		return "sheets"
	case PhaseGlobals:
		return "globals"
	case PhasePackaging:
		return "packaging"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Progress is an advisory generation update.  Updates are delivered with a
// non-blocking send: a slow or absent receiver never stalls generation, it
// just misses updates.
type Progress struct {
	Phase       Phase
	Part        string
	SheetsDone  int
	SheetsTotal int
}
