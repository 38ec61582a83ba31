// Package badsectors indexes the unrecovered ranges of a ddrescue mapfile and
// answers overlap queries against them in O(log n).
package badsectors

import (
	"errors"
	"fmt"
	"sort"

	"github.com/deploymenttheory/go-ddcheck/internal/types"
)

var (
	// ErrOverlappingBlocks is matched by *OverlappingBlocksError.
	ErrOverlappingBlocks = errors.New("overlapping mapfile blocks")

	// ErrBlockOverflow is returned when a block's end lies past 2^64.
	ErrBlockOverflow = errors.New("mapfile block end exceeds 64 bits")
)

// OverlappingBlocksError reports a block that starts before the previous
// block ended.
type OverlappingBlocksError struct {
	// Index of the offending block in the mapfile.
	Index    int
	Previous types.Block
	Block    types.Block
}

func (e *OverlappingBlocksError) Error() string {
	prevEnd, _ := e.Previous.End()
	return fmt.Sprintf("%s: block %d at 0x%X starts before previous block ends at 0x%X",
		ErrOverlappingBlocks, e.Index, uint64(e.Block.Pos), uint64(prevEnd))
}

func (e *OverlappingBlocksError) Unwrap() error {
	return ErrOverlappingBlocks
}

// BadSectors is an immutable, ascending list of disjoint bad intervals.
// It is safe for concurrent use.
type BadSectors struct {
	intervals []types.Interval
}

// New wraps intervals that are already sorted and pairwise disjoint.
func New(intervals []types.Interval) *BadSectors {
	return &BadSectors{intervals: intervals}
}

// FromMapFile builds the index from a mapfile's blocks. Blocks must be in
// ascending order with no overlap; a violation fails the whole build.
func FromMapFile(m *types.MapFile) (*BadSectors, error) {
	var (
		end       uint64
		intervals []types.Interval
	)
	for i, block := range m.Blocks {
		start := uint64(block.Pos)
		stop, ok := block.End()
		if !ok {
			return nil, fmt.Errorf("block %d at 0x%X size 0x%X: %w", i, start, uint64(block.Size), ErrBlockOverflow)
		}
		if start < end {
			return nil, &OverlappingBlocksError{Index: i, Previous: m.Blocks[i-1], Block: block}
		}
		end = uint64(stop)
		if block.Status.IsBad() {
			intervals = append(intervals, types.Interval{Start: start, End: end})
		}
	}
	return New(intervals), nil
}

// search returns the index of the first interval whose start is >= end.
func (b *BadSectors) search(end uint64) int {
	return sort.Search(len(b.intervals), func(i int) bool {
		return b.intervals[i].Start >= end
	})
}

// ContainsBadSector reports the bad interval next to the query range
// [start, end), if any. Only the two intervals adjacent to the insertion
// point of end can overlap, because the intervals are sorted and disjoint.
//
// The comparisons are inclusive, so a query that only touches a bad interval
// at its boundary is reported too. Use Intersects for strict half-open
// overlap.
func (b *BadSectors) ContainsBadSector(start, end uint64) (types.Interval, bool) {
	idx := b.search(end)
	if idx > 0 && b.intervals[idx-1].End >= start {
		return b.intervals[idx-1], true
	}
	if idx < len(b.intervals) && b.intervals[idx].Start <= end {
		return b.intervals[idx], true
	}
	return types.Interval{}, false
}

// Intersects reports the first bad interval sharing at least one byte with
// [start, end). Ranges that merely touch do not intersect, and an empty query
// intersects nothing.
func (b *BadSectors) Intersects(start, end uint64) (types.Interval, bool) {
	if start >= end {
		return types.Interval{}, false
	}
	// Every interval at or past idx starts at or after end.
	idx := b.search(end)
	if idx == 0 || b.intervals[idx-1].End <= start {
		return types.Interval{}, false
	}
	// Ends ascend too, so the intervals overlapping the query are the run
	// [first, idx). Skip empty ones left by zero-size blocks.
	first := sort.Search(idx, func(i int) bool {
		return b.intervals[i].End > start
	})
	for i := first; i < idx; i++ {
		if b.intervals[i].Length() > 0 {
			return b.intervals[i], true
		}
	}
	return types.Interval{}, false
}

// Intervals returns a copy of the bad intervals in ascending order.
func (b *BadSectors) Intervals() []types.Interval {
	out := make([]types.Interval, len(b.intervals))
	copy(out, b.intervals)
	return out
}

// Len returns the number of bad intervals.
func (b *BadSectors) Len() int {
	return len(b.intervals)
}

// TotalBadBytes returns the number of bytes covered by bad intervals.
func (b *BadSectors) TotalBadBytes() uint64 {
	var total uint64
	for _, iv := range b.intervals {
		total += iv.Length()
	}
	return total
}
