package domain

// ResultList is the authoritative list of items currently shown.
//
// The selection is always valid against the current length: for an empty
// list it is 0 and SelectedItem reports false.
type ResultList struct {
	items     []ListItem
	selection BoundedIndex
	style     *ListStyle
}

// NewResultList builds a list with the selection at 0.
func NewResultList(items []ListItem, style *ListStyle) ResultList {
	var rl ResultList
	rl.Set(items, style)
	return rl
}

// Set replaces the list wholesale and resets the selection to 0.
func (rl *ResultList) Set(items []ListItem, style *ListStyle) {
	rl.items = items
	rl.style = style
	rl.selection = NewBoundedIndex(len(items) - 1)
}

// Items returns the items in display order.
func (rl *ResultList) Items() []ListItem { return rl.items }

// Len returns the number of items.
func (rl *ResultList) Len() int { return len(rl.items) }

// IsEmpty reports whether the list has no items.
func (rl *ResultList) IsEmpty() bool { return len(rl.items) == 0 }

// Style returns the display hint, if any.
func (rl *ResultList) Style() *ListStyle { return rl.style }

// Selection returns the selected index.
func (rl *ResultList) Selection() int { return rl.selection.Value() }

// SetSelection selects index, saturating at the last item.
func (rl *ResultList) SetSelection(index int) {
	rl.selection.SaturatingSet(index)
}

// MoveSelectionSigned moves the selection by delta. A selection sitting on
// either end wraps around; one strictly inside saturates, so a large jump
// lands on an end first and only wraps on the next move.
func (rl *ResultList) MoveSelectionSigned(delta int) {
	if rl.selection.IsAtBounds() {
		rl.selection.WrappingAddSigned(delta)
	} else {
		rl.selection.SaturatingAddSigned(delta)
	}
}

// SelectedItem returns the selected item. ok is false iff the list is empty.
func (rl *ResultList) SelectedItem() (ListItem, bool) {
	i := rl.selection.Value()
	if i >= len(rl.items) {
		return ListItem{}, false
	}
	return rl.items[i], true
}

// IndexOf returns the position of the item with key.
func (rl *ResultList) IndexOf(key ItemKey) (int, bool) {
	for i, it := range rl.items {
		if it.Key() == key {
			return i, true
		}
	}
	return 0, false
}

// Clone returns a copy that shares no slice storage with rl.
func (rl *ResultList) Clone() ResultList {
	out := *rl
	out.items = append([]ListItem(nil), rl.items...)
	if rl.style != nil {
		s := *rl.style
		out.style = &s
	}
	return out
}
