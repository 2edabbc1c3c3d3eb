// Package numfmt holds the number-format metadata the style resolver builds
// xl/styles.xml from: the built-in numFmtId table defined by ECMA-376
// §18.8.30, the id boundary for custom formats, and format classification.
//
// Custom format codes are classified with [github.com/xuri/nfp]; this package
// only inspects the resulting token stream.
package numfmt

import (
	"strings"

	"github.com/xuri/nfp"
)

// Well-known built-in numFmtId values referenced directly by the resolver.
const (
	// General is the implicit format of an unformatted cell.
	General = 0
	// Percent and PercentDecimal are the built-in "0%" and "0.00%" formats.
	Percent        = 9
	PercentDecimal = 10
	// Date and DateTime are the built-in date ("mm-dd-yy") and datetime
	// ("m/d/yy hh:mm") formats.
	Date     = 14
	DateTime = 22
	// FirstCustom is the first numFmtId available to custom format codes.
	// IDs 0–163 are reserved for built-in formats.
	FirstCustom = 164
)

// BuiltIn maps built-in numFmtId values to their canonical format strings as
// defined by ECMA-376 §18.8.30.  IDs 27–36 and 50–58 are locale-specific
// (CJK/Thai) in ECMA-376 and deliberately absent here; files that need them
// should register explicit custom codes instead.
var BuiltIn = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	5:  `($#,##0_);($#,##0)`,
	6:  `($#,##0_);[Red]($#,##0)`,
	7:  `($#,##0.00_);($#,##0.00)`,
	8:  `($#,##0.00_);[Red]($#,##0.00)`,
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "hh:mm",
	21: "hh:mm:ss",
	22: "m/d/yy hh:mm",
	37: `(#,##0_);(#,##0)`,
	38: `(#,##0_);[Red](#,##0)`,
	39: `(#,##0.00_);(#,##0.00)`,
	40: `(#,##0.00_);[Red](#,##0.00)`,
	41: `_(* #,##0_);_(* (#,##0);_(* "-"_);_(@_)`,
	42: `_($* #,##0_);_($* (#,##0);_($* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* (#,##0.00);_(* "-"??_);_(@_)`,
	44: `_($* #,##0.00_);_($* (#,##0.00);_($* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mm:ss.0",
	48: "##0.0E+0",
	49: "@",
}

// builtInID is the reverse of BuiltIn.  When two ids were to share a format
// string the smallest id wins, so lookups stay deterministic.
var builtInID = func() map[string]int {
	m := make(map[string]int, len(BuiltIn))
	for id, code := range BuiltIn {
		if prev, ok := m[code]; !ok || id < prev {
			m[code] = id
		}
	}
	return m
}()

// BuiltInID returns the built-in numFmtId for a format code, when the code
// is exactly one of the canonical built-in strings.  Codes that are not
// built-in must be registered as custom formats (id >= FirstCustom).
func BuiltInID(code string) (int, bool) {
	id, ok := builtInID[code]
	return id, ok
}

// PercentFormat returns the percentage format code with the given number of
// decimal places.  Precision 0 and 2 yield the built-in "0%" and "0.00%"
// codes; other precisions produce codes that need a custom numFmtId.
func PercentFormat(precision int) string {
	if precision <= 0 {
		return "0%"
	}
	return "0." + strings.Repeat("0", precision) + "%"
}

// IsDateFormat reports whether a numFmtId (and, for custom ids, its format
// code) represents a date or datetime format.
//
// Built-in date/time IDs follow ECMA-376 §18.8.30.  For custom ids the code
// is tokenized with nfp and scanned for date/time and elapsed-time tokens;
// quoted literals and bracketed colour sections never trigger a match
// because the parser classifies them as literals.
func IsDateFormat(id int, code string) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	if id < FirstCustom {
		return false
	}
	ps := nfp.NumberFormatParser()
	for _, section := range ps.Parse(code) {
		for _, tok := range section.Items {
			switch tok.TType {
			case nfp.TokenTypeDateTimes, nfp.TokenTypeElapsedDateTimes:
				return true
			}
		}
	}
	return false
}
