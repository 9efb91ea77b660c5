package domain

type CartItem struct {
	MenuItem
	Quantity int
}

// Cart is a customer's in-progress selection. Every Add appends a new
// line; repeated additions of the same item are not merged.
type Cart struct {
	items []MenuItem
}

func (c *Cart) Add(item MenuItem) {
	c.items = append(c.items, item)
}

// RemoveAt drops the line at index i and reports whether it existed.
func (c *Cart) RemoveAt(i int) bool {
	if i < 0 || i >= len(c.items) {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

func (c *Cart) Items() []MenuItem {
	out := make([]MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Total() int64 {
	var total int64
	for _, it := range c.items {
		total += it.Price
	}
	return total
}

func (c *Cart) Clear() { c.items = nil }

// DropFirst removes the first n lines, keeping anything appended after them.
func (c *Cart) DropFirst(n int) {
	if n >= len(c.items) {
		c.items = nil
		return
	}
	if n > 0 {
		c.items = append([]MenuItem(nil), c.items[n:]...)
	}
}
