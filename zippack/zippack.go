// Package zippack encodes an ordered list of named byte blobs into a
// classic (32-bit) ZIP archive.  It is a standalone binary encoder with no
// knowledge of the XML parts it packs.
//
// The encoder writes the archive exactly as the PKWARE APPNOTE describes it:
// one local file header immediately followed by that entry's payload, then
// the accumulated central directory, then the end-of-central-directory
// record.  All encoding happens in memory; callers receive the complete
// archive bytes in one piece.
//
// # Limits
//
// zippack deliberately implements only the classic format, with no ZIP64
// extension: entry payloads must fit in 32 bits and archives are limited to
// 65,534 entries.  Exceeding either limit is a hard error ([ErrTooLarge],
// [ErrTooManyEntries]), never a silent mis-encoding.  Spreadsheet-sized
// output stays far below both.
//
// # Determinism
//
// Identical entry lists — same names, payloads, and timestamps — always
// produce byte-identical archives: CRC-32 and deflate at a fixed level are
// both deterministic, and the store-vs-deflate decision depends only on the
// entry itself.
package zippack

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"path"
	"strings"
	"time"
)

// Entry is one named blob to pack.  Name uses forward slashes and must be
// relative; a zero Modified timestamp encodes as the DOS epoch (1980-01-01).
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Stats aggregates the compression outcome of one Encode call.
type Stats struct {
	Entries      int
	Uncompressed int64
	Compressed   int64
}

// Sentinel errors for the ZIP-specific failure modes.  Returned errors wrap
// these, so use errors.Is to classify.
var (
	ErrInvalidPath    = errors.New("zippack: invalid entry path")
	ErrTooLarge       = errors.New("zippack: entry exceeds 32-bit ZIP limit")
	ErrTooManyEntries = errors.New("zippack: too many entries for a classic ZIP archive")
)

const (
	sigLocalHeader  = 0x04034b50
	sigCentralDir   = 0x02014b50
	sigEndOfCentral = 0x06054b50

	methodStore   uint16 = 0
	methodDeflate uint16 = 8

	// Version 2.0: the minimum that supports deflate.
	zipVersion uint16 = 20

	// General-purpose bit 11: entry names are UTF-8.
	flagUTF8 uint16 = 0x0800

	// Payloads below this size are stored verbatim; the deflate stream
	// overhead rarely pays off for them.
	storeThreshold = 1024
)

// storedExtensions lists file extensions whose content is already
// compressed; deflating them again only burns CPU.
var storedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".zip":  true,
	".gz":   true,
	".7z":   true,
}

// Encode packs the entries, in input order, into a single archive and
// returns its bytes together with aggregate compression statistics.  All
// entries are validated before any output is produced, so an error never
// leaves a partially written archive behind.
func Encode(entries []Entry) ([]byte, Stats, error) {
	if len(entries) >= 0xFFFF {
		return nil, Stats{}, fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(entries))
	}
	for _, e := range entries {
		if err := validatePath(e.Name); err != nil {
			return nil, Stats{}, err
		}
		if uint64(len(e.Data)) > math.MaxUint32 {
			return nil, Stats{}, fmt.Errorf("%w: %q is %d bytes", ErrTooLarge, e.Name, len(e.Data))
		}
	}

	var out bytes.Buffer
	var central bytes.Buffer
	var st Stats

	for _, e := range entries {
		offset := out.Len()
		crc := crc32.ChecksumIEEE(e.Data)
		payload, method := compress(e)
		dosDate, dosTime := dosDateTime(e.Modified)
		name := []byte(e.Name)

		// Local file header, immediately followed by the payload.
		le32(&out, sigLocalHeader)
		le16(&out, zipVersion)
		le16(&out, flagUTF8)
		le16(&out, uint16(method))
		le16(&out, dosTime)
		le16(&out, dosDate)
		le32(&out, crc)
		le32(&out, uint32(len(payload)))
		le32(&out, uint32(len(e.Data)))
		le16(&out, uint16(len(name)))
		le16(&out, 0) // extra field length
		out.Write(name)
		out.Write(payload)

		// Matching central-directory record, remembering where the local
		// header went.
		le32(&central, sigCentralDir)
		le16(&central, zipVersion) // version made by
		le16(&central, zipVersion) // version needed to extract
		le16(&central, flagUTF8)
		le16(&central, uint16(method))
		le16(&central, dosTime)
		le16(&central, dosDate)
		le32(&central, crc)
		le32(&central, uint32(len(payload)))
		le32(&central, uint32(len(e.Data)))
		le16(&central, uint16(len(name)))
		le16(&central, 0) // extra field length
		le16(&central, 0) // comment length
		le16(&central, 0) // disk number start
		le16(&central, 0) // internal attributes
		le32(&central, 0) // external attributes
		le32(&central, uint32(offset))
		central.Write(name)

		st.Entries++
		st.Uncompressed += int64(len(e.Data))
		st.Compressed += int64(len(payload))
	}

	cdOffset := out.Len()
	cdSize := central.Len()
	if uint64(cdOffset)+uint64(cdSize) > math.MaxUint32 {
		return nil, Stats{}, fmt.Errorf("%w: archive exceeds 4 GiB", ErrTooLarge)
	}
	out.Write(central.Bytes())

	// End-of-central-directory record.
	le32(&out, sigEndOfCentral)
	le16(&out, 0) // this disk
	le16(&out, 0) // disk with central directory
	le16(&out, uint16(len(entries)))
	le16(&out, uint16(len(entries)))
	le32(&out, uint32(cdSize))
	le32(&out, uint32(cdOffset))
	le16(&out, 0) // comment length

	return out.Bytes(), st, nil
}

// compress decides between verbatim storage and deflate for one entry.
// Small payloads and already-compressed extensions are stored; everything
// else is deflated, and the compressed form is kept only when it is
// strictly smaller than the original.
func compress(e Entry) ([]byte, uint16) {
	if len(e.Data) < storeThreshold || storedExtensions[strings.ToLower(path.Ext(e.Name))] {
		return e.Data, methodStore
	}
	var bb bytes.Buffer
	fw, err := flate.NewWriter(&bb, flate.BestCompression)
	if err != nil {
		return e.Data, methodStore
	}
	if _, err := fw.Write(e.Data); err != nil {
		return e.Data, methodStore
	}
	if err := fw.Close(); err != nil {
		return e.Data, methodStore
	}
	if bb.Len() >= len(e.Data) {
		return e.Data, methodStore
	}
	return bb.Bytes(), methodDeflate
}

// validatePath rejects entry names the archive must never contain: empty
// names, absolute paths, backslashes, and any parent-traversal segment.
func validatePath(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, name)
	}
	if strings.Contains(name, `\`) {
		return fmt.Errorf("%w: %q contains a backslash", ErrInvalidPath, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q contains a parent-traversal segment", ErrInvalidPath, name)
		}
	}
	return nil
}

// dosDateTime packs t into the two 16-bit MS-DOS fields the directory
// records store: year (offset from 1980), month and day in one field; hour,
// minute and two-second units in the other.  Years before 1980 clamp to the
// DOS epoch because the year field cannot encode them.
func dosDateTime(t time.Time) (date, tod uint16) {
	if t.IsZero() || t.Year() < 1980 {
		return 1<<5 | 1, 0 // 1980-01-01 00:00:00
	}
	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	tod = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return date, tod
}

func le16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}

func le32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}
