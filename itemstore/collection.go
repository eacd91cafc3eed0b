package itemstore

import (
	"slices"
	"sync"
)

// Collection is the ordered, in-memory list of records.
// Ids are unique. Safe for concurrent use.
type Collection[T Record] struct {
	mu    sync.RWMutex
	items []T
	// id => position in items, nil when it needs to be rebuilt
	pos map[ID]int
}

// must be called with c.mu locked
func (c *Collection[T]) positions() map[ID]int {
	if c.pos != nil {
		return c.pos
	}
	c.pos = make(map[ID]int, len(c.items))
	for i, it := range c.items {
		c.pos[it.RecordID()] = i
	}
	return c.pos
}

func (c *Collection[T]) invalidate() {
	c.pos = nil
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// All returns a copy of the records in order
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// IDs returns ids of the records in order
func (c *Collection[T]) IDs() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]ID, len(c.items))
	for i, it := range c.items {
		res[i] = it.RecordID()
	}
	return res
}

func (c *Collection[T]) Get(id ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.positions()[id]; ok {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// IndexOf returns position of the record with id or -1
func (c *Collection[T]) IndexOf(id ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.positions()[id]; ok {
		return i
	}
	return -1
}

// Append adds records at the end, skipping ids already present.
// Returns the number of added records.
func (c *Collection[T]) Append(items ...T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.positions()
	n := 0
	for _, it := range items {
		id := it.RecordID()
		if _, ok := pos[id]; ok {
			continue
		}
		pos[id] = len(c.items)
		c.items = append(c.items, it)
		n++
	}
	return n
}

// Insert puts item at position at, clamped to [0, Len()].
// Returns false if a record with the same id is already present.
func (c *Collection[T]) Insert(at int, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions()[item.RecordID()]; ok {
		return false
	}
	at = max(0, min(at, len(c.items)))
	c.items = slices.Insert(c.items, at, item)
	c.invalidate()
	return true
}

// Replace swaps the record that has item's id with item.
// Returns false if there is no such record.
func (c *Collection[T]) Replace(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.positions()[item.RecordID()]
	if !ok {
		return false
	}
	c.items[i] = item
	return true
}

func (c *Collection[T]) Remove(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.positions()[id]
	if !ok {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.invalidate()
	return true
}

// RemoveDeletable removes records marked deletable and returns their ids
func (c *Collection[T]) RemoveDeletable() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed []ID
	c.items = slices.DeleteFunc(c.items, func(it T) bool {
		if it.StoreFlags().IsDeletable() {
			removed = append(removed, it.RecordID())
			return true
		}
		return false
	})
	if len(removed) > 0 {
		c.invalidate()
	}
	return removed
}

// SortBy orders records by their position in seq. Records whose id
// is not in seq go first, keeping their relative order.
func (c *Collection[T]) SortBy(seq []ID) {
	rank := make(map[ID]int, len(seq))
	for i, id := range seq {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rankOf := func(it T) int {
		if r, ok := rank[it.RecordID()]; ok {
			return r
		}
		return -1
	}
	slices.SortStableFunc(c.items, func(a, b T) int {
		return rankOf(a) - rankOf(b)
	})
	c.invalidate()
}

// PromoteToTop moves records with given ids to the front,
// in the order of ids. Unknown ids are ignored.
func (c *Collection[T]) PromoteToTop(ids ...ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.positions()
	var top []T
	moved := map[ID]bool{}
	for _, id := range ids {
		if i, ok := pos[id]; ok && !moved[id] {
			top = append(top, c.items[i])
			moved[id] = true
		}
	}
	if len(top) == 0 {
		return
	}
	rest := slices.DeleteFunc(slices.Clone(c.items), func(it T) bool {
		return moved[it.RecordID()]
	})
	c.items = append(top, rest...)
	c.invalidate()
}

// Reset replaces all records. items must have unique ids.
func (c *Collection[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.invalidate()
}
