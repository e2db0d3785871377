// Package median maintains an online running median over a stream of
// transaction amounts using two balanced heaps. The state round-trips through
// JSON so it can be persisted alongside the ledger mutation that feeds it.
package median

import "encoding/json"

// halfHeap is a binary heap over float64 values ordered by less. The same
// implementation serves both halves; only the comparator differs.
type halfHeap struct {
	values []float64
	less   func(a, b float64) bool
}

func newHalfHeap(less func(a, b float64) bool, values []float64) *halfHeap {
	h := &halfHeap{less: less}
	for _, v := range values {
		h.push(v)
	}
	return h
}

func (h *halfHeap) len() int { return len(h.values) }

// peek returns the root. Callers must check len first.
func (h *halfHeap) peek() float64 { return h.values[0] }

func (h *halfHeap) push(v float64) {
	h.values = append(h.values, v)
	i := len(h.values) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.values[i], h.values[parent]) {
			break
		}
		h.values[i], h.values[parent] = h.values[parent], h.values[i]
		i = parent
	}
}

func (h *halfHeap) pop() float64 {
	top := h.values[0]
	last := len(h.values) - 1
	h.values[0] = h.values[last]
	h.values = h.values[:last]

	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < len(h.values) && h.less(h.values[left], h.values[smallest]) {
			smallest = left
		}
		if right < len(h.values) && h.less(h.values[right], h.values[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.values[i], h.values[smallest] = h.values[smallest], h.values[i]
		i = smallest
	}
	return top
}

// Tracker is the two-heap running median. The lower half is max-ordered and
// may hold at most one element more than the min-ordered upper half; every
// lower value is <= every upper value.
type Tracker struct {
	lower *halfHeap // max at root, holds the smaller amounts
	upper *halfHeap // min at root, holds the larger amounts
}

// NewTracker rebuilds a tracker from two persisted half sequences. Order
// within each sequence does not matter; values are re-heapified.
func NewTracker(lower, upper []float64) *Tracker {
	return &Tracker{
		lower: newHalfHeap(func(a, b float64) bool { return a > b }, lower),
		upper: newHalfHeap(func(a, b float64) bool { return a < b }, upper),
	}
}

// Median returns the current median without modifying the tracker. An empty
// tracker yields 0.
func (t *Tracker) Median() float64 {
	switch {
	case t.lower.len() == 0 && t.upper.len() == 0:
		return 0
	case t.lower.len() == t.upper.len():
		return (t.lower.peek() + t.upper.peek()) / 2
	default:
		return t.lower.peek()
	}
}

// Insert adds a value and rebalances so the size invariant holds.
func (t *Tracker) Insert(v float64) {
	if t.upper.len() == 0 || v < t.upper.peek() {
		t.lower.push(v)
	} else {
		t.upper.push(v)
	}

	if t.lower.len() > t.upper.len()+1 {
		t.upper.push(t.lower.pop())
	} else if t.upper.len() > t.lower.len() {
		t.lower.push(t.upper.pop())
	}
}

// Size returns the total number of tracked values.
func (t *Tracker) Size() int { return t.lower.len() + t.upper.len() }

// Halves returns copies of the two halves in heap order for persistence.
func (t *Tracker) Halves() (lower, upper []float64) {
	lower = append([]float64(nil), t.lower.values...)
	upper = append([]float64(nil), t.upper.values...)
	return lower, upper
}

// Marshal serializes both halves as JSON float arrays.
func (t *Tracker) Marshal() (lower, upper string, err error) {
	lo, up := t.Halves()
	loBytes, err := json.Marshal(lo)
	if err != nil {
		return "", "", err
	}
	upBytes, err := json.Marshal(up)
	if err != nil {
		return "", "", err
	}
	return string(loBytes), string(upBytes), nil
}

// Unmarshal rebuilds a tracker from the JSON half arrays produced by Marshal.
// Empty strings are treated as empty halves.
func Unmarshal(lower, upper string) (*Tracker, error) {
	var lo, up []float64
	if lower != "" {
		if err := json.Unmarshal([]byte(lower), &lo); err != nil {
			return nil, err
		}
	}
	if upper != "" {
		if err := json.Unmarshal([]byte(upper), &up); err != nil {
			return nil, err
		}
	}
	return NewTracker(lo, up), nil
}
