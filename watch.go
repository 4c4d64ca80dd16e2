package backdoor

// watcher is one entry of a literal's watch list: a reference to a clause
// that has this literal's negation among its first two, plus a cheap "blocker"
// literal of that clause that, if currently true, proves the clause is
// satisfied without inspecting the clause body at all (§3 "Watch list").
type watcher struct {
	cref    ClauseRef
	blocker Lit
}

// watchLists holds, for every literal, the ordered list of watchers
// registered against it. Invariant (§3): clause c appears in exactly the
// lists of the negations of its first two literals, so the list at p is
// visited when p becomes true (and the watched literal ¬p false).
type watchLists struct {
	lists [][]watcher // indexed by Lit
}

func newWatchLists(numLits int) *watchLists {
	return &watchLists{lists: make([][]watcher, numLits)}
}

func (w *watchLists) grow(numLits int) {
	for len(w.lists) < numLits {
		w.lists = append(w.lists, nil)
	}
}

func (w *watchLists) add(l Lit, cref ClauseRef, blocker Lit) {
	w.lists[l] = append(w.lists[l], watcher{cref: cref, blocker: blocker})
}

// remove deletes the first watcher entry for cref from l's list. Order
// among the remaining watchers is not preserved (swap-remove), which is
// fine since watch-list order carries no meaning.
func (w *watchLists) remove(l Lit, cref ClauseRef) {
	lst := w.lists[l]
	for i, ww := range lst {
		if ww.cref == cref {
			lst[i] = lst[len(lst)-1]
			w.lists[l] = lst[:len(lst)-1]
			return
		}
	}
}

func (w *watchLists) at(l Lit) []watcher { return w.lists[l] }

func (w *watchLists) setAt(l Lit, lst []watcher) { w.lists[l] = lst }
