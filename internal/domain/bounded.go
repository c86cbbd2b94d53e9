package domain

// BoundedIndex is a non-negative index with an inclusive upper bound.
//
// The value is always <= bound. The zero value is a valid index pinned at 0.
type BoundedIndex struct {
	value int
	bound int
}

// NewBoundedIndex makes an index with bound as its maximum value. Negative
// bounds are treated as 0. The value starts at zero.
func NewBoundedIndex(bound int) BoundedIndex {
	if bound < 0 {
		bound = 0
	}
	return BoundedIndex{bound: bound}
}

// Value returns the current value.
func (b BoundedIndex) Value() int { return b.value }

// Bound returns the inclusive upper bound.
func (b BoundedIndex) Bound() int { return b.bound }

// SaturatingSet sets the value, clamping it to [0, bound].
func (b *BoundedIndex) SaturatingSet(value int) {
	switch {
	case value < 0:
		b.value = 0
	case value > b.bound:
		b.value = b.bound
	default:
		b.value = value
	}
}

// SaturatingAddSigned moves the value by delta, clamping at 0 and bound.
func (b *BoundedIndex) SaturatingAddSigned(delta int) {
	if delta >= 0 {
		// value and delta are both non-negative; compare against the
		// remaining headroom instead of adding to avoid overflow.
		if delta >= b.bound-b.value {
			b.value = b.bound
			return
		}
		b.value += delta
		return
	}
	if delta <= -b.value {
		b.value = 0
		return
	}
	b.value += delta
}

// WrappingAddSigned moves the value by delta modulo bound+1.
//
// The arithmetic is carried out in uint so any bound (including the
// maximum int) and any delta (including the minimum int) are handled
// without overflow.
func (b *BoundedIndex) WrappingAddSigned(delta int) {
	n := uint(b.bound) + 1 // never overflows: bound <= MaxInt
	v := uint(b.value)

	var mag uint
	if delta < 0 {
		mag = uint(-(delta + 1)) + 1
	} else {
		mag = uint(delta)
	}
	step := mag % n

	if delta >= 0 {
		if step >= n-v {
			v = step - (n - v)
		} else {
			v += step
		}
	} else {
		if step > v {
			v = n - (step - v)
		} else {
			v -= step
		}
	}
	b.value = int(v)
}

// IsMin reports whether the value is 0.
func (b BoundedIndex) IsMin() bool { return b.value == 0 }

// IsMax reports whether the value equals the bound.
func (b BoundedIndex) IsMax() bool { return b.value == b.bound }

// IsAtBounds reports whether the value sits on either end of the range.
func (b BoundedIndex) IsAtBounds() bool { return b.IsMin() || b.IsMax() }
