package malloc

import "unsafe"

// A chain is a singly-linked list of free units, threaded through the
// first Alignment bytes of each unit. This intrusive representation is
// why the minimum allocation size is Alignment: every free unit must be
// big enough to hold its own next-pointer.
//
// chains are the unit of exchange between thread cache and central
// cache (batch refill/spill) and between central cache and its
// size-class free list.

func chainNext(unit unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(unit)
}

func chainSetNext(unit, next unsafe.Pointer) {
	*(*unsafe.Pointer)(unit) = next
}

// chainPush links unit onto the head of the chain rooted at head.
func chainPush(head, unit unsafe.Pointer) unsafe.Pointer {
	chainSetNext(unit, head)
	return unit
}

// chainPop detaches the head unit, returning it and the new head.
func chainPop(head unsafe.Pointer) (unit, newHead unsafe.Pointer) {
	return head, chainNext(head)
}

// chainLen walks the chain and counts its nodes; linear in chain
// length.
func chainLen(head unsafe.Pointer) int {
	n := 0
	for cur := head; cur != nil; cur = chainNext(cur) {
		n++
	}
	return n
}

// chainTake detaches the first n units from the chain rooted at head,
// returning that sub-chain (head/tail) and the remainder of the
// original chain. Panics if the chain is shorter than n.
func chainTake(head unsafe.Pointer, n int) (subHead, subTail, rest unsafe.Pointer) {
	if n <= 0 {
		return nil, nil, head
	}
	subHead = head
	cur := head
	for i := 1; i < n; i++ {
		if cur == nil {
			panicerr("chainTake: chain shorter than %v", n)
		}
		cur = chainNext(cur)
	}
	if cur == nil {
		panicerr("chainTake: chain shorter than %v", n)
	}
	subTail = cur
	rest = chainNext(cur)
	chainSetNext(subTail, nil)
	return subHead, subTail, rest
}
