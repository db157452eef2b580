package fastpath

// WordSize is the size in bytes of one message register.
const WordSize = 8

// Tag names the semantic domain of a memory region. The domain decides the
// required base alignment and whether the region may be mapped zero-copy for
// message transfer.
type Tag int

const (
	// TagData is generic read/write data memory. Not zero-copy capable.
	TagData Tag = iota
	// TagStack is thread stack memory. Never shared, never zero-copy.
	TagStack
	// TagMessage is IPC message-buffer memory: shareable, zero-copy capable,
	// cache-line aligned.
	TagMessage
)

// Alignment returns the required base alignment for the domain, in bytes.
func (t Tag) Alignment() uint64 {
	switch t {
	case TagStack:
		return 16
	case TagMessage:
		return 64
	default:
		return 8
	}
}

// ZeroCopy reports whether the domain permits direct mapping for message
// transfer without an intermediate copy.
func (t Tag) ZeroCopy() bool { return t == TagMessage }

// Region is an opaque memory range descriptor. The core never dereferences
// Base; it only checks size, alignment and tag, so callers may pass handles
// rather than live addresses.
type Region struct {
	Base uint64
	Size uint64
	Tag  Tag
}

// AlignedRegion builds a region whose base is rounded up to the tag's
// alignment, mirroring how the memory subsystem hands out buffers.
func AlignedRegion(base, size uint64, tag Tag) Region {
	align := tag.Alignment()
	return Region{
		Base: (base + align - 1) &^ (align - 1),
		Size: size,
		Tag:  tag,
	}
}

// ValidFor reports whether the region qualifies to carry msgWords message
// registers: large enough, base-aligned for its domain, and tagged for
// message-buffer use.
func (r Region) ValidFor(msgWords int) bool {
	if !r.Tag.ZeroCopy() {
		return false
	}
	if r.Size < uint64(msgWords)*WordSize {
		return false
	}
	return r.Base%r.Tag.Alignment() == 0
}

// Contains reports whether addr falls inside the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr < r.Base+r.Size
}
