package buddy

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestOrderForRoundsUpToPowerOfTwo(t *testing.T) {
	cases := []struct {
		bytes    uintptr
		expected uint
	}{
		{1, SmallestK},
		{uintptr(1) << SmallestK, SmallestK},
		{uintptr(1)<<SmallestK + 1, SmallestK + 1},
		{uintptr(1) << 20, 20},
		{uintptr(1)<<20 + 1, 21},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, orderFor(c.bytes), "orderFor(%d)", c.bytes)
	}
}

func TestBuddyOfIsItsOwnInverse(t *testing.T) {
	p := NewPool()
	assert.NoError(t, p.Init(uintptr(1)<<20))
	defer p.Destroy()

	block := headerAt(p.base)
	block.order = uint16(MinK - 2)

	buddy := p.buddyOf(block)
	assert.NotEqual(t, unsafe.Pointer(block), unsafe.Pointer(buddy))

	buddy.order = block.order
	backAgain := p.buddyOf(buddy)
	assert.Equal(t, unsafe.Pointer(block), unsafe.Pointer(backAgain))
}

func TestHeaderSizeIsStable(t *testing.T) {
	assert.True(t, headerSize > 0)
	assert.True(t, uintptr(1)<<SmallestK >= 2*headerSize)
}
