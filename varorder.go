package backdoor

import "container/heap"

// varOrder is the indexed binary max-heap over unassigned variables keyed
// by VSIDS activity (§3 "Variable order"). It supports push, decrease/
// increase-key (via heap.Fix), and pop-max, and maintains the invariant
// that it contains every unassigned, active variable at most once.
type varOrder struct {
	items    []Var
	indexOf  map[Var]int
	activity []float64 // shared with the engine; indexed by Var
}

func newVarOrder(activity []float64) *varOrder {
	return &varOrder{indexOf: make(map[Var]int), activity: activity}
}

func (h *varOrder) Len() int { return len(h.items) }

func (h *varOrder) Less(i, j int) bool {
	return h.activity[h.items[i]] > h.activity[h.items[j]]
}

func (h *varOrder) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.indexOf[h.items[i]] = i
	h.indexOf[h.items[j]] = j
}

func (h *varOrder) Push(x interface{}) {
	v := x.(Var)
	h.indexOf[v] = len(h.items)
	h.items = append(h.items, v)
}

func (h *varOrder) Pop() interface{} {
	n := len(h.items)
	v := h.items[n-1]
	h.items = h.items[:n-1]
	delete(h.indexOf, v)
	return v
}

func (h *varOrder) contains(v Var) bool {
	_, ok := h.indexOf[v]
	return ok
}

func (h *varOrder) insert(v Var) {
	if h.contains(v) {
		return
	}
	heap.Push(h, v)
}

func (h *varOrder) remove(v Var) {
	if i, ok := h.indexOf[v]; ok {
		heap.Remove(h, i)
	}
}

// update re-establishes the heap invariant for v after its activity
// changed (bump or decay). A variable not currently in the heap is left
// out; insert puts it back.
func (h *varOrder) update(v Var) {
	if i, ok := h.indexOf[v]; ok {
		heap.Fix(h, i)
	}
}

// popMax removes and returns the unassigned variable with the highest
// activity. The second return is false if the order is empty.
func (h *varOrder) popMax() (Var, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	return heap.Pop(h).(Var), true
}
