package fastpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTag_Alignment(t *testing.T) {
	assert.Equal(t, uint64(8), TagData.Alignment())
	assert.Equal(t, uint64(16), TagStack.Alignment())
	assert.Equal(t, uint64(64), TagMessage.Alignment())
}

func TestTag_ZeroCopy(t *testing.T) {
	assert.False(t, TagData.ZeroCopy())
	assert.False(t, TagStack.ZeroCopy())
	assert.True(t, TagMessage.ZeroCopy())
}

func TestAlignedRegion(t *testing.T) {
	r := AlignedRegion(0x1001, 128, TagMessage)
	assert.Equal(t, uint64(0x1040), r.Base, "rounded up to the next cache line")
	assert.Equal(t, uint64(128), r.Size)

	already := AlignedRegion(0x2000, 64, TagMessage)
	assert.Equal(t, uint64(0x2000), already.Base, "aligned base is untouched")

	stack := AlignedRegion(0x9, 4096, TagStack)
	assert.Equal(t, uint64(0x10), stack.Base)
}

func TestRegion_ValidFor(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		words  int
		want   bool
	}{
		{"qualifies", Region{Base: 0x1000, Size: 64, Tag: TagMessage}, 8, true},
		{"exact fit", Region{Base: 0x1000, Size: 32, Tag: TagMessage}, 4, true},
		{"too small", Region{Base: 0x1000, Size: 24, Tag: TagMessage}, 4, false},
		{"misaligned", Region{Base: 0x1008, Size: 64, Tag: TagMessage}, 4, false},
		{"data tag never zero-copy", Region{Base: 0x1000, Size: 64, Tag: TagData}, 4, false},
		{"stack tag never zero-copy", Region{Base: 0x1000, Size: 64, Tag: TagStack}, 4, false},
		{"zero value", Region{}, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.region.ValidFor(tc.words))
		})
	}
}

func TestRegion_Contains(t *testing.T) {
	r := Region{Base: 0x1000, Size: 64, Tag: TagMessage}

	assert.True(t, r.Contains(0x1000))
	assert.True(t, r.Contains(0x103f))
	assert.False(t, r.Contains(0x1040), "end is exclusive")
	assert.False(t, r.Contains(0xfff))
}

func TestCoreCaches_SlotAccounting(t *testing.T) {
	caches := NewCoreCaches(2)

	var mrs [MRCount]uint64
	for i := range mrs {
		mrs[i] = uint64(10 + i)
	}
	q := caches.queue(1)
	q.put(mrs, 3)

	assert.Equal(t, 0, caches.Used(0))
	assert.Equal(t, 1, caches.Used(1))

	got, n := caches.Slot(1, 0)
	assert.Equal(t, mrs, got)
	assert.Equal(t, 3, n)

	_, n = caches.Slot(1, 5)
	assert.Equal(t, 0, n, "out-of-range slot reads as empty")
	assert.Equal(t, 0, caches.Used(9), "unknown core reads as empty")

	caches.Reset()
	assert.Equal(t, 0, caches.Used(1))
}

func TestPrecondition_String(t *testing.T) {
	assert.Equal(t, "no_extra_caps", P1.String())
	assert.Equal(t, "same_core", P9.String())
	assert.Equal(t, "unknown", Precondition(42).String())
}
