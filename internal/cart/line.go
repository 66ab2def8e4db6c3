package cart

import "sort"

// Line is one sku in a cart.
type Line struct {
	SKUID    int64 `json:"sku_id"`
	Quantity int   `json:"count"`
	Selected bool  `json:"selected"`
}

// Lines maps sku id to its line. Quantities are always positive.
type Lines map[int64]Line

// Sorted returns the lines ordered by ascending sku id.
func (l Lines) Sorted() []Line {
	out := make([]Line, 0, len(l))
	for _, line := range l {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID < out[j].SKUID })
	return out
}

// Selected returns the selected lines ordered by ascending sku id.
func (l Lines) Selected() []Line {
	out := make([]Line, 0, len(l))
	for _, line := range l.Sorted() {
		if line.Selected {
			out = append(out, line)
		}
	}
	return out
}

// SKUIDs returns the sku ids in ascending order.
func (l Lines) SKUIDs() []int64 {
	ids := make([]int64, 0, len(l))
	for _, line := range l.Sorted() {
		ids = append(ids, line.SKUID)
	}
	return ids
}
