package check

import (
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ddcheck/internal/badsectors"
	"github.com/deploymenttheory/go-ddcheck/internal/iso9660"
	"github.com/deploymenttheory/go-ddcheck/internal/types"
	"github.com/deploymenttheory/go-ddcheck/pkg/app"
)

const sector = 2048

// testImage lays out a primary-only image:
//
//	16  primary volume descriptor, root at 20
//	17  terminator
//	20  root: ., .., GOOD.TXT;1, BAD.BIN;1, DIR
//	21  DIR: ., .., INNER.TXT;1
//	30  GOOD data, 31-32 BAD data, 33 INNER data
func testImage() []byte {
	data := make([]byte, 40*sector)
	at := func(n int) []byte { return data[n*sector : (n+1)*sector] }

	pvd := at(16)
	pvd[0] = 1
	copy(pvd[1:6], "CD001")
	pvd[6] = 1
	copy(pvd[40:72], "CHECKVOL                        ")
	binary.LittleEndian.PutUint16(pvd[128:], sector)
	binary.BigEndian.PutUint16(pvd[130:], sector)
	copy(pvd[156:], record([]byte{0}, 20, sector, true))

	term := at(17)
	term[0] = 255
	copy(term[1:6], "CD001")
	term[6] = 1

	put := func(n int, recs ...[]byte) {
		off := 0
		for _, r := range recs {
			off += copy(at(n)[off:], r)
		}
	}
	put(20,
		record([]byte{0}, 20, sector, true),
		record([]byte{1}, 20, sector, true),
		record([]byte("GOOD.TXT;1"), 30, 100, false),
		record([]byte("BAD.BIN;1"), 31, 3000, false),
		record([]byte("DIR"), 21, sector, true),
	)
	put(21,
		record([]byte{0}, 21, sector, true),
		record([]byte{1}, 20, sector, true),
		record([]byte("INNER.TXT;1"), 33, 10, false),
	)
	return data
}

func record(id []byte, lba, size uint32, dir bool) []byte {
	n := 33 + len(id)
	if n%2 == 1 {
		n++
	}
	b := make([]byte, n)
	b[0] = byte(n)
	binary.LittleEndian.PutUint32(b[2:], lba)
	binary.BigEndian.PutUint32(b[6:], lba)
	binary.LittleEndian.PutUint32(b[10:], size)
	binary.BigEndian.PutUint32(b[14:], size)
	if dir {
		b[25] = 0x02
	}
	b[32] = byte(len(id))
	copy(b[33:], id)
	return b
}

// badMapfile marks [64000, 64256) bad, inside the BAD.BIN extent [63488, 66488).
const badMapfile = `# Rescue Logfile. Created by GNU ddrescue version 1.27
# Command line: ddrescue /dev/sr0 disk.iso disk.map
0x00000000     +               1
#      pos        size  status
0x00000000  0x0000FA00  +
0x0000FA00  0x00000100  -
0x0000FB00  0x00100000  +
`

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func testContext() *app.Context {
	ctx := app.NewContext()
	ctx.MaxMapfileSize = 1 << 20
	return ctx
}

func TestHandle_Prefix(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "disk.iso", testImage())
	writeFixture(t, dir, "disk.map", []byte(badMapfile))

	resp, err := Handle(testContext(), &Request{Prefix: filepath.Join(dir, "disk")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "disk.iso"), resp.ImagePath)
	assert.Equal(t, filepath.Join(dir, "disk.map"), resp.MapfilePath)
	assert.Equal(t, "CHECKVOL", resp.Volume.ID)
	assert.False(t, resp.Volume.Joliet)
	assert.NotEmpty(t, resp.Volume.Fingerprint)
	assert.Equal(t, 8, resp.EntriesChecked)

	assert.Equal(t, "finished", resp.Mapfile.CurrentStatus)
	require.NotNil(t, resp.Mapfile.CurrentPass)
	assert.Equal(t, uint64(1), *resp.Mapfile.CurrentPass)
	assert.Equal(t, 3, resp.Mapfile.Blocks)
	assert.Equal(t, 1, resp.Mapfile.BadIntervals)
	assert.Equal(t, uint64(256), resp.Mapfile.BadBytes)

	require.Len(t, resp.Findings, 1)
	f := resp.Findings[0]
	assert.Equal(t, "/BAD.BIN", f.Path)
	assert.Equal(t, uint64(31*sector), f.ExtentStart)
	assert.Equal(t, uint64(31*sector+3000), f.ExtentEnd)
	assert.Equal(t, `Bad entry "BAD.BIN" : 64000 to 64256 is bad`, f.Message())
}

func TestHandle_ExplicitPathsCompressedMapfile(t *testing.T) {
	dir := t.TempDir()
	isoPath := writeFixture(t, dir, "image.bin", testImage())

	mapPath := filepath.Join(dir, "rescue.map.gz")
	file, err := os.Create(mapPath)
	require.NoError(t, err)
	gz := gzip.NewWriter(file)
	_, err = gz.Write([]byte(badMapfile))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	ctx := testContext()
	ctx.WalkConcurrency = 4
	resp, err := Handle(ctx, &Request{ISOPath: isoPath, MapPath: mapPath})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.EntriesChecked)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, "/BAD.BIN", resp.Findings[0].Path)
}

func TestHandle_BadDirectorySectors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "disk.iso", testImage())
	// Sector 20 holds the root directory.
	writeFixture(t, dir, "disk.map", []byte("0x00000000 +\n"+
		"0x00000000 0x0000A000 +\n"+
		"0x0000A000 0x00000400 *\n"+
		"0x0000A400 0x00100000 +\n"))

	resp, err := Handle(testContext(), &Request{Prefix: filepath.Join(dir, "disk")})
	require.NoError(t, err)

	var found []string
	for _, f := range resp.Findings {
		found = append(found, f.Path)
		assert.Equal(t, uint64(0xA000), f.BadStart)
		assert.Equal(t, uint64(0xA400), f.BadEnd)
	}
	assert.Equal(t, []string{"/.", "/..", "/DIR/.."}, found)
}

func TestHandle_CleanMapfile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "disk.iso", testImage())
	writeFixture(t, dir, "disk.map", []byte("0x00000000 +\n0x00000000 0x00100000 +\n"))

	resp, err := Handle(testContext(), &Request{Prefix: filepath.Join(dir, "disk")})
	require.NoError(t, err)
	assert.Empty(t, resp.Findings)
	assert.Equal(t, 0, resp.Mapfile.BadIntervals)
}

func TestHandle_Errors(t *testing.T) {
	dir := t.TempDir()
	isoPath := writeFixture(t, dir, "disk.iso", testImage())
	goodMap := writeFixture(t, dir, "good.map", []byte(badMapfile))
	malformed := writeFixture(t, dir, "malformed.map", []byte("0x0 + 1\n0x0 0x10 Z\n"))
	overlapping := writeFixture(t, dir, "overlap.map", []byte("0x0 +\n0x0 0x20 -\n0x10 0x20 +\n"))
	notISO := writeFixture(t, dir, "zeros.iso", make([]byte, 40*sector))

	tests := []struct {
		name string
		req  *Request
		code string
	}{
		{"invalid request", &Request{Prefix: "disk", ISOPath: isoPath}, app.ErrCodeInvalidInput},
		{"missing mapfile", &Request{ISOPath: isoPath, MapPath: filepath.Join(dir, "missing.map")}, app.ErrCodeMapfileRead},
		{"malformed mapfile", &Request{ISOPath: isoPath, MapPath: malformed}, app.ErrCodeMapfileParse},
		{"overlapping blocks", &Request{ISOPath: isoPath, MapPath: overlapping}, app.ErrCodeIndexBuild},
		{"missing image", &Request{ISOPath: filepath.Join(dir, "missing.iso"), MapPath: goodMap}, app.ErrCodeImageAccess},
		{"not an image", &Request{ISOPath: notISO, MapPath: goodMap}, app.ErrCodeImageAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Handle(testContext(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, app.ErrorCode(err))
		})
	}

	_, err := Handle(testContext(), &Request{ISOPath: notISO, MapPath: goodMap})
	assert.ErrorIs(t, err, iso9660.ErrNotISO9660)
	_, err = Handle(testContext(), &Request{ISOPath: isoPath, MapPath: overlapping})
	assert.ErrorIs(t, err, badsectors.ErrOverlappingBlocks)
}

func TestHandle_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "disk.iso", testImage())
	writeFixture(t, dir, "disk.map", []byte(badMapfile))

	ctx, cancel := testContext().WithCancel()
	cancel()
	_, err := Handle(ctx, &Request{Prefix: filepath.Join(dir, "disk")})
	require.Error(t, err)
	assert.Equal(t, app.ErrCodeImageWalk, app.ErrorCode(err))
}

func TestTestBad(t *testing.T) {
	index := badsectors.New([]types.Interval{{Start: 5, End: 7}})

	entry := func(start, end uint64) iso9660.Entry {
		return iso9660.Entry{Identifier: "F", Path: "/F", Extent: types.Interval{Start: start, End: end}}
	}

	f, bad := TestBad(index, entry(6, 8))
	require.True(t, bad)
	assert.Equal(t, uint64(5), f.BadStart)
	assert.Equal(t, uint64(7), f.BadEnd)
	assert.Equal(t, `Bad entry "F" : 5 to 7 is bad`, f.Message())

	_, bad = TestBad(index, entry(8, 10))
	assert.False(t, bad)

	// Touching the end of a bad range counts.
	_, bad = TestBad(index, entry(7, 9))
	assert.True(t, bad)

	_, bad = TestBad(badsectors.New(nil), entry(0, 100))
	assert.False(t, bad)
}
