// Package iso9660 reads the directory tree of an ISO9660 image and reports
// the byte extent of every entry.
//
// Only what is needed to locate file data is decoded: the primary and Joliet
// volume descriptors and the directory records. Rock Ridge extensions and
// multi-extent files are not interpreted.
package iso9660

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	// SectorSize is the size of the sectors volume descriptors are stored in.
	SectorSize = 2048

	// Volume descriptors start after the 16-sector system area.
	firstDescriptorSector = 16
	maxDescriptors        = 64

	standardIdentifier = "CD001"

	descriptorPrimary       = 1
	descriptorSupplementary = 2
	descriptorTerminator    = 255

	// Offsets within a primary or supplementary volume descriptor.
	offVolumeID        = 40
	lenVolumeID        = 32
	offEscapeSequences = 88
	lenEscapeSequences = 32
	offLogicalBlock    = 128
	offRootRecord      = 156
	lenRootRecord      = 34
)

var (
	// ErrNotISO9660 is returned when no valid volume descriptor set is found.
	ErrNotISO9660 = errors.New("not an ISO9660 image")

	// ErrInvalidRecord is returned for a directory record that does not fit
	// its directory or the image.
	ErrInvalidRecord = errors.New("invalid directory record")
)

// jolietEscapes are the escape sequences marking a supplementary descriptor
// as Joliet (UCS-2 levels 1 to 3).
var jolietEscapes = [][]byte{[]byte("%/@"), []byte("%/C"), []byte("%/E")}

// Options controls how an image is opened.
type Options struct {
	// PreferJoliet walks the Joliet tree when the image has one.
	PreferJoliet bool
}

// Image is an opened ISO9660 volume. It holds no mutable state after Open and
// can be walked from several goroutines provided the reader supports
// concurrent ReadAt calls.
type Image struct {
	r         io.ReaderAt
	blockSize uint32
	volumeID  string
	joliet    bool
	root      record
	primary   []byte
}

// Open reads the volume descriptor set of an ISO9660 image.
func Open(r io.ReaderAt, opts Options) (*Image, error) {
	img := &Image{r: r}

	var (
		primary    []byte
		jolietDesc []byte
	)
	for i := 0; i < maxDescriptors; i++ {
		sector := make([]byte, SectorSize)
		if err := readFull(r, sector, int64(firstDescriptorSector+i)*SectorSize); err != nil {
			if i == 0 {
				return nil, fmt.Errorf("%w: reading volume descriptor: %v", ErrNotISO9660, err)
			}
			return nil, fmt.Errorf("reading volume descriptor %d: %w", i, err)
		}
		if string(sector[1:6]) != standardIdentifier {
			return nil, fmt.Errorf("%w: bad identifier in sector %d", ErrNotISO9660, firstDescriptorSector+i)
		}

		switch sector[0] {
		case descriptorPrimary:
			if primary == nil {
				primary = sector
			}
		case descriptorSupplementary:
			if jolietDesc == nil && isJoliet(sector) {
				jolietDesc = sector
			}
		}
		if sector[0] == descriptorTerminator {
			break
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("%w: no primary volume descriptor", ErrNotISO9660)
	}

	img.primary = primary
	img.blockSize = uint32(binary.LittleEndian.Uint16(primary[offLogicalBlock:]))
	if img.blockSize == 0 {
		img.blockSize = SectorSize
	}
	img.volumeID = strings.TrimRight(string(primary[offVolumeID:offVolumeID+lenVolumeID]), " \x00")

	desc := primary
	if opts.PreferJoliet && jolietDesc != nil {
		desc = jolietDesc
		img.joliet = true
	}
	root, err := parseRecord(desc[offRootRecord:offRootRecord+lenRootRecord], img.joliet)
	if err != nil {
		return nil, fmt.Errorf("root directory record: %w", err)
	}
	if !root.isDir() {
		return nil, fmt.Errorf("%w: root record is not a directory", ErrInvalidRecord)
	}
	img.root = root

	return img, nil
}

func isJoliet(desc []byte) bool {
	esc := desc[offEscapeSequences : offEscapeSequences+lenEscapeSequences]
	for _, seq := range jolietEscapes {
		if bytes.Contains(esc, seq) {
			return true
		}
	}
	return false
}

// VolumeID returns the volume identifier of the primary descriptor.
func (img *Image) VolumeID() string {
	return img.volumeID
}

// BlockSize returns the logical block size extents are counted in.
func (img *Image) BlockSize() uint32 {
	return img.blockSize
}

// Joliet reports whether the Joliet directory tree is being walked.
func (img *Image) Joliet() bool {
	return img.joliet
}

// Fingerprint returns a name-based UUID derived from the primary volume
// descriptor, so reports can be matched to the image they were made from.
func (img *Image) Fingerprint() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, img.primary)
}

// readFull reads len(buf) bytes at off. A short read is an error even when
// the reader reports io.EOF.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
