package graph

// searchItem is an entry in the search min-heap.
type searchItem struct {
	label string
	state State
	hops  int
}

// searchHeap is a concrete-typed binary min-heap keyed by state weight.
// Avoids interface boxing overhead of container/heap.
type searchHeap struct {
	items []searchItem
}

func (h *searchHeap) Len() int { return len(h.items) }

func (h *searchHeap) Push(it searchItem) {
	h.items = append(h.items, it)
	h.siftUp(len(h.items) - 1)
}

func (h *searchHeap) Pop() searchItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// siftUp uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *searchHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.state.Weight >= h.items[parent].state.Weight {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *searchHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].state.Weight < h.items[child].state.Weight {
			child = right
		}
		if item.state.Weight <= h.items[child].state.Weight {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}
