package iso9660

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/deploymenttheory/go-ddcheck/internal/types"
)

const (
	// Offsets within a directory record.
	recLength     = 0
	recExtentLBA  = 2
	recDataLength = 10
	recFlags      = 25
	recIDLength   = 32
	recIdentifier = 33

	minRecordLength = 34

	flagDirectory = 0x02

	// maxDirectorySize bounds the directory extents read into memory.
	maxDirectorySize = 64 << 20
)

// Entry is one directory record of the image.
type Entry struct {
	// Identifier is the decoded name: "." and ".." for the self and parent
	// records, version suffixes removed.
	Identifier string
	// Path is the slash-separated path from the root, e.g. "/DOCS/A.TXT".
	// Pseudo-entries keep their name: "/DOCS/.".
	Path  string
	IsDir bool
	// LBA is the first logical block of the extent and Size its length in bytes.
	LBA  uint32
	Size uint32
	// Extent is the byte range of the entry's data on the image.
	Extent types.Interval
}

// IsSelfOrParent reports whether the entry is a "." or ".." pseudo-entry.
func (e Entry) IsSelfOrParent() bool {
	return e.Identifier == "." || e.Identifier == ".."
}

type record struct {
	identifier string
	lba        uint32
	size       uint32
	flags      byte
}

func (r record) isDir() bool {
	return r.flags&flagDirectory != 0
}

// parseRecord decodes a single directory record. b may be longer than the
// record.
func parseRecord(b []byte, joliet bool) (record, error) {
	if len(b) < minRecordLength-1 {
		return record{}, fmt.Errorf("%w: %d bytes is too short", ErrInvalidRecord, len(b))
	}
	length := int(b[recLength])
	idLen := int(b[recIDLength])
	if length < minRecordLength-1+idLen || length > len(b) {
		return record{}, fmt.Errorf("%w: length %d with identifier length %d", ErrInvalidRecord, length, idLen)
	}

	rec := record{
		lba:   binary.LittleEndian.Uint32(b[recExtentLBA:]),
		size:  binary.LittleEndian.Uint32(b[recDataLength:]),
		flags: b[recFlags],
	}
	name, err := decodeIdentifier(b[recIdentifier:recIdentifier+idLen], joliet, rec.isDir())
	if err != nil {
		return record{}, err
	}
	rec.identifier = name
	return rec, nil
}

func decodeIdentifier(id []byte, joliet, dir bool) (string, error) {
	if len(id) == 1 {
		switch id[0] {
		case 0x00:
			return ".", nil
		case 0x01:
			return "..", nil
		}
	}

	var name string
	if joliet {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(id)
		if err != nil {
			return "", fmt.Errorf("%w: joliet identifier: %v", ErrInvalidRecord, err)
		}
		name = string(decoded)
	} else {
		name = string(id)
	}

	if !dir {
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSuffix(name, ".")
	}
	return name, nil
}

// readDir returns the entries of the directory at rec, in on-disk order.
// Records never cross a logical block boundary; a zero length byte pads to
// the next block.
func (img *Image) readDir(rec record, dirPath string) ([]Entry, error) {
	if rec.size > maxDirectorySize {
		return nil, fmt.Errorf("%w: directory %q is %d bytes", ErrInvalidRecord, dirPath, rec.size)
	}
	data := make([]byte, rec.size)
	if err := readFull(img.r, data, int64(rec.lba)*int64(img.blockSize)); err != nil {
		return nil, fmt.Errorf("reading directory %q at block %d: %w", dirPath, rec.lba, err)
	}

	var entries []Entry
	block := int(img.blockSize)
	for off := 0; off < len(data); {
		if data[off] == 0 {
			off = (off/block + 1) * block
			continue
		}
		end := (off/block + 1) * block
		if end > len(data) {
			end = len(data)
		}
		child, err := parseRecord(data[off:end], img.joliet)
		if err != nil {
			return nil, fmt.Errorf("directory %q offset %d: %w", dirPath, off, err)
		}
		entries = append(entries, img.entry(child, dirPath))
		off += int(data[off])
	}
	return entries, nil
}

func (img *Image) entry(rec record, dirPath string) Entry {
	start := uint64(rec.lba) * uint64(img.blockSize)
	return Entry{
		Identifier: rec.identifier,
		Path:       dirPath + "/" + rec.identifier,
		IsDir:      rec.isDir(),
		LBA:        rec.lba,
		Size:       rec.size,
		Extent:     types.Interval{Start: start, End: start + uint64(rec.size)},
	}
}
