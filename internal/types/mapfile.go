// Package types implements the data structures shared by the mapfile parser,
// the bad-sector index and the image walker.
package types

import "math/bits"

// Rescue Mapfile Types
// A ddrescue mapfile records the rescue position and a list of blocks, each
// tagged with the state the rescue left it in.

// Address represents a byte offset on the rescued device.
type Address uint64

// Size represents a byte count on the rescued device.
type Size uint64

// Pass represents the ordinal of the rescue pass that wrote a current-state line.
type Pass uint64

// Add returns the address size bytes past a and reports whether the sum
// fits in 64 bits.
func (a Address) Add(size Size) (Address, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(size), 0)
	return Address(sum), carry == 0
}

// CurrentState is the current-state line of a mapfile.
type CurrentState struct {
	// Position the rescue tool was working at when it last wrote the mapfile.
	Pos Address
	// Phase the rescue tool was in.
	Status CurrentStatus
	// Pass counter, nil if the mapfile predates multi-pass tracking.
	Pass *Pass
}

// HasPass reports whether the current-state line carried a pass counter.
func (cs CurrentState) HasPass() bool {
	return cs.Pass != nil
}

// Block is one contiguous byte range of a mapfile.
// The range is half-open: [Pos, Pos+Size).
type Block struct {
	Pos    Address
	Size   Size
	Status BlockStatus
}

// End returns the first address past the block and reports whether it fits
// in 64 bits.
func (b Block) End() (Address, bool) {
	return b.Pos.Add(b.Size)
}

// Interval returns the block as a half-open byte interval.
// The caller must ensure End does not overflow.
func (b Block) Interval() Interval {
	end, _ := b.End()
	return Interval{Start: uint64(b.Pos), End: uint64(end)}
}

// MapFile is a parsed mapfile: one current-state line plus the blocks in file order.
type MapFile struct {
	CurrentState CurrentState
	Blocks       []Block
}

// Interval is a half-open byte range [Start, End).
type Interval struct {
	Start uint64
	End   uint64
}

// Length returns the number of bytes in the interval.
func (i Interval) Length() uint64 {
	if i.End < i.Start {
		return 0
	}
	return i.End - i.Start
}

// Overlaps reports whether i and o share at least one byte.
// Empty intervals overlap nothing.
func (i Interval) Overlaps(o Interval) bool {
	if i.Length() == 0 || o.Length() == 0 {
		return false
	}
	return i.Start < o.End && o.Start < i.End
}
