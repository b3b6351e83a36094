package core

import (
	"fmt"

	"pkt.systems/tabtear/schema"
)

// TabCollection is the ordered tab list owned by one window. It must only be
// touched from that window's loop.
type TabCollection struct {
	records  []*schema.TabRecord
	selected int
}

// NewTabCollection returns an empty collection with no selection.
func NewTabCollection() *TabCollection {
	return &TabCollection{selected: -1}
}

// Len returns the number of tabs.
func (c *TabCollection) Len() int {
	return len(c.records)
}

// At returns the record at index.
func (c *TabCollection) At(index int) (*schema.TabRecord, error) {
	if index < 0 || index >= len(c.records) {
		return nil, fmt.Errorf("%w: %d", schema.ErrTabIndexOutOfRange, index)
	}
	return c.records[index], nil
}

// IndexOf returns the position of record by identity, or -1.
func (c *TabCollection) IndexOf(record *schema.TabRecord) int {
	for i, r := range c.records {
		if r == record {
			return i
		}
	}
	return -1
}

// Insert places record at index, clamped to the collection bounds, and
// returns the index used.
func (c *TabCollection) Insert(index int, record *schema.TabRecord) int {
	if index < 0 {
		index = 0
	}
	if index > len(c.records) {
		index = len(c.records)
	}
	c.records = append(c.records, nil)
	copy(c.records[index+1:], c.records[index:])
	c.records[index] = record
	if c.selected >= index {
		c.selected++
	}
	return index
}

// Append adds record at the end and returns its index.
func (c *TabCollection) Append(record *schema.TabRecord) int {
	return c.Insert(len(c.records), record)
}

// RemoveAt removes the record at index. When the selected tab is removed the
// selection moves to its neighbour.
func (c *TabCollection) RemoveAt(index int) (*schema.TabRecord, error) {
	if index < 0 || index >= len(c.records) {
		return nil, fmt.Errorf("%w: %d", schema.ErrTabIndexOutOfRange, index)
	}
	record := c.records[index]
	c.records = append(c.records[:index], c.records[index+1:]...)
	switch {
	case len(c.records) == 0:
		c.selected = -1
	case c.selected > index:
		c.selected--
	case c.selected == index && c.selected >= len(c.records):
		c.selected = len(c.records) - 1
	}
	return record, nil
}

// Remove removes record by identity and reports the index it held.
func (c *TabCollection) Remove(record *schema.TabRecord) (int, bool) {
	index := c.IndexOf(record)
	if index < 0 {
		return -1, false
	}
	_, _ = c.RemoveAt(index)
	return index, true
}

// Select marks the tab at index as selected.
func (c *TabCollection) Select(index int) error {
	if index < 0 || index >= len(c.records) {
		return fmt.Errorf("%w: %d", schema.ErrTabIndexOutOfRange, index)
	}
	c.selected = index
	return nil
}

// Selected returns the selected index, or -1 when empty.
func (c *TabCollection) Selected() int {
	return c.selected
}

// list returns a copy of the record pointers in order.
func (c *TabCollection) list() []*schema.TabRecord {
	return append([]*schema.TabRecord(nil), c.records...)
}

// Snapshot copies the tabs into transport form.
func (c *TabCollection) Snapshot() []schema.TabSnapshot {
	out := make([]schema.TabSnapshot, 0, len(c.records))
	for i, r := range c.records {
		out = append(out, schema.TabSnapshot{
			Index:    i,
			Title:    r.Title,
			Content:  r.Content,
			Selected: i == c.selected,
		})
	}
	return out
}
