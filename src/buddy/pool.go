package buddy

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Tunables. SmallestK is the smallest order the allocator will ever
// hand out (large enough to hold a header twice over); MinK/MaxK bound
// the orders Init will accept; DefaultK is substituted when Init is
// asked for 0 bytes.
const (
	SmallestK uint = 6
	MinK      uint = 20
	MaxK      uint = 48
	DefaultK  uint = 30
)

// Pool owns one contiguous, power-of-two arena of mmap'd memory and the
// per-order free lists that carve it up. A Pool is a first-class value:
// nothing here is process-global, and a caller may own any number of
// independent pools. Pool performs no locking; callers needing
// concurrent access must supply their own mutual exclusion.
type Pool struct {
	maxOrder uint
	numBytes uintptr
	base     uintptr
	avail    [MaxK]header
}

// NewPool returns a zero-value, uninitialized Pool. Call Init before use.
func NewPool() *Pool {
	return &Pool{}
}

// Init acquires a 2^k-byte arena from the OS (k chosen so that
// 2^k >= size, clamped to [MinK, MaxK-1]) and prepares the pool's
// free lists so the whole arena is one free block of the maximum order.
// requested 0 substitutes DefaultK. The arena comes from a plain
// anonymous mmap and is only page-aligned, not aligned to 2^k; buddy
// addresses are computed from offsets relative to the arena base, so
// they do not depend on the base's alignment. Init is a no-op safety net only
// against a nil receiver; a non-nil Pool is always re-initializable.
func (p *Pool) Init(size uintptr) error {
	if p == nil {
		return nil
	}

	var order uint
	if size == 0 {
		order = DefaultK
	} else {
		order = orderFor(size)
	}
	if order < MinK {
		order = MinK
	}
	if order >= MaxK {
		order = MaxK - 1
	}

	p.maxOrder = order
	p.numBytes = uintptr(1) << p.maxOrder

	data, err := unix.Mmap(-1, 0, int(p.numBytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		reportf(err, "failed to acquire %d bytes from the OS", p.numBytes)
		p.base = 0
		return err
	}
	p.base = uintptr(unsafe.Pointer(&data[0]))

	for i := range p.avail {
		p.avail[i].next = &p.avail[i]
		p.avail[i].prev = &p.avail[i]
		p.avail[i].order = uint16(i)
		p.avail[i].state = tagUnused
	}

	first := headerAt(p.base)
	first.order = uint16(order)
	first.state = tagAvail
	pushFront(&p.avail[order], first)

	return nil
}

// Destroy releases the arena back to the OS. A pool whose Init failed
// (base == 0) is left alone — Destroy is then a no-op.
func (p *Pool) Destroy() error {
	if p == nil || p.base == 0 {
		return nil
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(p.base)), p.numBytes)
	if err := unix.Munmap(data); err != nil {
		reportf(err, "failed to release %d bytes to the OS", p.numBytes)
		return err
	}

	*p = Pool{}
	return nil
}

// Allocate returns size usable bytes (header overhead included in the
// block chosen, not in size) from the pool, or nil if none could be
// found. size == 0 and a nil pool both return (nil, nil): defined
// no-ops, not errors. Exhaustion returns (nil, unix.ENOMEM).
func (p *Pool) Allocate(size uint) (unsafe.Pointer, error) {
	if p == nil || size == 0 {
		return nil, nil
	}

	k := orderFor(uintptr(size) + headerSize)
	if k < SmallestK {
		k = SmallestK
	}

	j := k
	for j <= p.maxOrder && p.avail[j].next == &p.avail[j] {
		j++
	}
	if j > p.maxOrder {
		return nil, unix.ENOMEM
	}

	block := popFront(&p.avail[j])

	for j > k {
		j--
		buddy := headerAt(uintptr(unsafe.Pointer(block)) + (uintptr(1) << j))
		buddy.order = uint16(j)
		buddy.state = tagAvail
		pushFront(&p.avail[j], buddy)
		block.order = uint16(j)
	}

	// block is already unlinked from its original list (popFront above).
	// The split loop only ever touches the new buddy halves, never
	// block's own linkage, so marking it RESERVED here (after splitting)
	// or before would be equivalent — unlike a rearrangement that
	// unsplices block itself after splitting, which would corrupt the
	// list if the loop had touched block.next/prev in the meantime.
	block.state = tagReserved

	return payloadOf(block), nil
}

// Free releases a pointer previously returned by Allocate or
// Reallocate, merging it with its buddy as far up the order chain as
// possible. Nil pool or nil ptr is a no-op. An out-of-range ptr or one
// whose header is not tagReserved is reported to stderr and otherwise
// ignored — pool state is left untouched.
func (p *Pool) Free(ptr unsafe.Pointer) {
	if p == nil || ptr == nil {
		return
	}

	block := blockFromPayload(ptr)
	addr := uintptr(unsafe.Pointer(block))
	if addr < p.base || addr >= p.base+p.numBytes {
		reportf(ErrInvalidPointer, "%p", ptr)
		return
	}
	if block.state != tagReserved {
		reportf(ErrDoubleFree, "%p", ptr)
		return
	}

	block.state = tagAvail

	for uint(block.order) < p.maxOrder {
		buddy := p.buddyOf(block)
		if buddy.state != tagAvail || buddy.order != block.order {
			break
		}
		unsplice(buddy)

		if uintptr(unsafe.Pointer(buddy)) < uintptr(unsafe.Pointer(block)) {
			block = buddy
		}
		block.order++
	}

	pushFront(&p.avail[block.order], block)
}

// Reallocate resizes an allocation in place when it already fits,
// otherwise allocates fresh, copies the lesser of the old and new
// sizes, and frees the original. A nil ptr behaves like Allocate; a
// zero size behaves like Free and returns nil. The allocator never
// shrinks a block on Reallocate — only grows or keeps as-is — to avoid
// a split/merge cycle on every resize.
func (p *Pool) Reallocate(ptr unsafe.Pointer, size uint) (unsafe.Pointer, error) {
	if ptr == nil {
		return p.Allocate(size)
	}
	if size == 0 {
		p.Free(ptr)
		return nil, nil
	}

	block := blockFromPayload(ptr)
	capacity := (uintptr(1) << block.order) - headerSize
	if uintptr(size) <= capacity {
		return ptr, nil
	}

	newPtr, err := p.Allocate(size)
	if newPtr == nil {
		return nil, err
	}

	copyLen := capacity
	if uintptr(size) < copyLen {
		copyLen = uintptr(size)
	}
	src := unsafe.Slice((*byte)(ptr), copyLen)
	dst := unsafe.Slice((*byte)(newPtr), copyLen)
	copy(dst, src)

	p.Free(ptr)
	return newPtr, nil
}
