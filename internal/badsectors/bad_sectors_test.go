package badsectors

import (
	"errors"
	"math"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-ddcheck/internal/parsers/mapfile"
	"github.com/deploymenttheory/go-ddcheck/internal/types"
)

func iv(start, end uint64) types.Interval {
	return types.Interval{Start: start, End: end}
}

func TestContainsBadSector(t *testing.T) {
	bad := New([]types.Interval{iv(1, 5), iv(8, 10), iv(15, 19)})

	tests := []struct {
		start, end uint64
		wantBad    bool
		want       types.Interval
	}{
		{6, 7, false, types.Interval{}},
		{11, 14, false, types.Interval{}},
		{2, 3, true, iv(1, 5)},
		{5, 7, true, iv(1, 5)},
		{6, 8, true, iv(8, 10)},
		{3, 9, true, iv(8, 10)},
		{3, 16, true, iv(15, 19)},
		{0, 0, false, types.Interval{}},
		{20, 30, false, types.Interval{}},
	}

	for _, tt := range tests {
		got, isBad := bad.ContainsBadSector(tt.start, tt.end)
		assert.Equal(t, tt.wantBad, isBad, "[%d, %d)", tt.start, tt.end)
		assert.Equal(t, tt.want, got, "[%d, %d)", tt.start, tt.end)
	}
}

func TestIntersects_HalfOpen(t *testing.T) {
	bad := New([]types.Interval{iv(5, 7)})

	tests := []struct {
		name       string
		start, end uint64
		wantBad    bool
	}{
		{"ends where bad starts", 2, 5, false},
		{"starts where bad ends", 7, 9, false},
		{"exact", 5, 7, true},
		{"overlaps start", 4, 6, true},
		{"overlaps end", 6, 8, true},
		{"contains", 0, 100, true},
		{"inside", 6, 6 + 1, true},
		{"empty query inside", 6, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isBad := bad.Intersects(tt.start, tt.end)
			assert.Equal(t, tt.wantBad, isBad)
			if tt.wantBad {
				assert.Equal(t, iv(5, 7), got)
			}
		})
	}
}

func TestIntersects_ReturnsFirstOverlap(t *testing.T) {
	bad := New([]types.Interval{iv(1, 5), iv(8, 10), iv(15, 19)})

	got, isBad := bad.Intersects(3, 16)
	require.True(t, isBad)
	assert.Equal(t, iv(1, 5), got)

	got, isBad = bad.Intersects(9, 100)
	require.True(t, isBad)
	assert.Equal(t, iv(8, 10), got)

	_, isBad = bad.Intersects(5, 8)
	assert.False(t, isBad)
	_, isBad = bad.Intersects(10, 15)
	assert.False(t, isBad)
}

func TestEmptyIndex(t *testing.T) {
	bad, err := FromMapFile(&types.MapFile{})
	require.NoError(t, err)
	assert.Equal(t, 0, bad.Len())

	for _, q := range [][2]uint64{{0, 0}, {0, 1}, {5, 7}, {0, math.MaxUint64}} {
		_, isBad := bad.ContainsBadSector(q[0], q[1])
		assert.False(t, isBad)
		_, isBad = bad.Intersects(q[0], q[1])
		assert.False(t, isBad)
	}
}

func TestFromMapFile(t *testing.T) {
	m, err := mapfile.ParseString(`# Rescue Logfile.
0x24F35400     +
0x00000000  0x2237B000  +
0x2237B000  0x02BBA800  -
0x24F35800  0x00000800  ?
0x24F36000  0x00001000  +
0x24F37000  0x00000200  *
`)
	require.NoError(t, err)

	bad, err := FromMapFile(m)
	require.NoError(t, err)

	assert.Equal(t, []types.Interval{
		iv(0x2237B000, 0x24F35800),
		iv(0x24F35800, 0x24F36000),
		iv(0x24F37000, 0x24F37200),
	}, bad.Intervals())
	assert.Equal(t, 3, bad.Len())
	assert.Equal(t, uint64(0x02BBA800+0x800+0x200), bad.TotalBadBytes())

	_, isBad := bad.Intersects(0, 0x2237B000)
	assert.False(t, isBad)
	got, isBad := bad.Intersects(0x2237AFFF, 0x2237B001)
	require.True(t, isBad)
	assert.Equal(t, iv(0x2237B000, 0x24F35800), got)
}

func TestFromMapFile_OverlappingBlocks(t *testing.T) {
	m := &types.MapFile{
		Blocks: []types.Block{
			{Pos: 0, Size: 0x10, Status: types.BlockStatusFinished},
			{Pos: 0x10, Size: 0x10, Status: types.BlockStatusBadSector},
			{Pos: 0x18, Size: 0x10, Status: types.BlockStatusFinished},
		},
	}

	bad, err := FromMapFile(m)
	require.Error(t, err)
	assert.Nil(t, bad)
	assert.True(t, errors.Is(err, ErrOverlappingBlocks))

	var overlap *OverlappingBlocksError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, 2, overlap.Index)
	assert.Equal(t, m.Blocks[1], overlap.Previous)
	assert.Equal(t, m.Blocks[2], overlap.Block)
	assert.Contains(t, err.Error(), "block 2 at 0x18 starts before previous block ends at 0x20")
}

func TestFromMapFile_OutOfOrder(t *testing.T) {
	m := &types.MapFile{
		Blocks: []types.Block{
			{Pos: 0x100, Size: 0x10, Status: types.BlockStatusFinished},
			{Pos: 0x0, Size: 0x10, Status: types.BlockStatusFinished},
		},
	}
	_, err := FromMapFile(m)
	assert.ErrorIs(t, err, ErrOverlappingBlocks)
}

func TestFromMapFile_Overflow(t *testing.T) {
	m := &types.MapFile{
		Blocks: []types.Block{
			{Pos: math.MaxUint64 - 1, Size: 2, Status: types.BlockStatusBadSector},
		},
	}
	_, err := FromMapFile(m)
	assert.ErrorIs(t, err, ErrBlockOverflow)
}

func TestFromMapFile_GapsAllowed(t *testing.T) {
	m := &types.MapFile{
		Blocks: []types.Block{
			{Pos: 0, Size: 4, Status: types.BlockStatusBadSector},
			{Pos: 10, Size: 4, Status: types.BlockStatusNonScraped},
		},
	}
	bad, err := FromMapFile(m)
	require.NoError(t, err)
	assert.Equal(t, []types.Interval{iv(0, 4), iv(10, 14)}, bad.Intervals())

	_, isBad := bad.Intersects(4, 10)
	assert.False(t, isBad)
}

func TestIntervals_ReturnsCopy(t *testing.T) {
	bad := New([]types.Interval{iv(1, 2)})
	out := bad.Intervals()
	out[0] = iv(100, 200)
	assert.Equal(t, []types.Interval{iv(1, 2)}, bad.Intervals())
}

// randomMapFile builds an ascending, disjoint mapfile with small random gaps,
// sizes and statuses.
func randomMapFile(fz *fuzz.Fuzzer) *types.MapFile {
	var n uint8
	fz.Fuzz(&n)

	m := &types.MapFile{}
	var pos uint64
	for i := 0; i < int(n%40); i++ {
		var gap, size, status uint8
		fz.Fuzz(&gap)
		fz.Fuzz(&size)
		fz.Fuzz(&status)

		pos += uint64(gap % 4)
		m.Blocks = append(m.Blocks, types.Block{
			Pos:    types.Address(pos),
			Size:   types.Size(size % 16),
			Status: types.BlockStatus(status % 5),
		})
		pos += uint64(size % 16)
	}
	return m
}

func TestIndexMatchesLinearScan(t *testing.T) {
	fz := fuzz.NewWithSeed(12345)

	for iter := 0; iter < 300; iter++ {
		m := randomMapFile(fz)
		bad, err := FromMapFile(m)
		require.NoError(t, err)

		for q := 0; q < 50; q++ {
			var a, l uint16
			fz.Fuzz(&a)
			fz.Fuzz(&l)
			start := uint64(a % 700)
			end := start + uint64(l%64)

			query := iv(start, end)
			var wantStrict, wantTouch bool
			for _, b := range m.Blocks {
				if !b.Status.IsBad() {
					continue
				}
				biv := b.Interval()
				if biv.Overlaps(query) {
					wantStrict = true
				}
				if biv.Start <= end && biv.End >= start {
					wantTouch = true
				}
			}

			got, isBad := bad.Intersects(start, end)
			require.Equal(t, wantStrict, isBad, "Intersects [%d, %d) blocks=%v", start, end, m.Blocks)
			if isBad {
				assert.True(t, got.Overlaps(query))
			}

			got, isBad = bad.ContainsBadSector(start, end)
			require.Equal(t, wantTouch, isBad, "ContainsBadSector [%d, %d) blocks=%v", start, end, m.Blocks)
			if isBad {
				assert.True(t, got.Start <= end && got.End >= start)
			}
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	fz := fuzz.NewWithSeed(99)
	var m *types.MapFile
	for m == nil || len(m.Blocks) < 10 {
		m = randomMapFile(fz)
	}
	bad, err := FromMapFile(m)
	require.NoError(t, err)

	expected := make([]bool, 512)
	for i := range expected {
		_, expected[i] = bad.Intersects(uint64(i), uint64(i)+8)
	}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := range expected {
				if _, isBad := bad.Intersects(uint64(i), uint64(i)+8); isBad != expected[i] {
					return errors.New("concurrent query disagrees with sequential result")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
