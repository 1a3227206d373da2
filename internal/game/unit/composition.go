package unit

import "sort"

// Composition maps unit types to counts.
type Composition map[Type]int

// Total returns the sum of all counts.
func (c Composition) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Clone returns an independent copy of c with zero and negative entries dropped.
//
// Postcondition: Every value in the result is > 0; the result is never nil.
func (c Composition) Clone() Composition {
	out := make(Composition, len(c))
	for t, n := range c {
		if n > 0 {
			out[t] = n
		}
	}
	return out
}

// Add adds n units of t, removing the entry if the result is not positive.
func (c Composition) Add(t Type, n int) {
	v := c[t] + n
	if v <= 0 {
		delete(c, t)
		return
	}
	c[t] = v
}

// Types returns the unit types present in c in lexicographic order.
func (c Composition) Types() []Type {
	out := make([]Type, 0, len(c))
	for t := range c {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
