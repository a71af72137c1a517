package buddy

// Each order owns one sentinel header whose next/prev anchor a circular,
// doubly linked list of free blocks of that order. An empty list is a
// sentinel linked to itself. Sentinels and real blocks share the header
// layout, so the same splice/unsplice pair serves both.

// popFront unsplices and returns the first real block on head's list, or
// nil if the list is empty (head points to itself).
func popFront(head *header) *header {
	first := head.next
	if first == head {
		return nil
	}
	first.prev.next = first.next
	first.next.prev = first.prev
	first.next = nil
	first.prev = nil
	return first
}

// pushFront splices block in immediately after head.
func pushFront(head *header, block *header) {
	block.next = head.next
	block.prev = head
	head.next.prev = block
	head.next = block
}

// unsplice removes block from whatever list currently holds it. block
// must currently be linked (block.next/prev non-nil and consistent).
func unsplice(block *header) {
	block.prev.next = block.next
	block.next.prev = block.prev
	block.next = nil
	block.prev = nil
}
