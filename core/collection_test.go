package core

import (
	"errors"
	"testing"

	"pkt.systems/tabtear/schema"
)

func records(titles ...string) []*schema.TabRecord {
	out := make([]*schema.TabRecord, 0, len(titles))
	for _, title := range titles {
		out = append(out, &schema.TabRecord{Title: title, Content: "body-" + title})
	}
	return out
}

func collectionTitles(c *TabCollection) []string {
	out := make([]string, 0, c.Len())
	for _, r := range c.list() {
		out = append(out, r.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCollectionInsertClampsAndShiftsSelection(t *testing.T) {
	c := NewTabCollection()
	if c.Selected() != -1 {
		t.Fatalf("expected no selection, got %d", c.Selected())
	}
	rs := records("a", "b", "c")
	c.Append(rs[0])
	c.Append(rs[2])
	if err := c.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := c.Insert(1, rs[1]); got != 1 {
		t.Fatalf("expected insert at 1, got %d", got)
	}
	if c.Selected() != 2 {
		t.Fatalf("selection must follow the selected tab, got %d", c.Selected())
	}
	if got := c.Insert(99, &schema.TabRecord{Title: "d"}); got != 3 {
		t.Fatalf("expected clamp to 3, got %d", got)
	}
	if got := c.Insert(-5, &schema.TabRecord{Title: "z"}); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if want := []string{"z", "a", "b", "c", "d"}; !equalStrings(collectionTitles(c), want) {
		t.Fatalf("expected %v, got %v", want, collectionTitles(c))
	}
}

func TestCollectionRemoveSelection(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		remove   int
		want     int
	}{
		{name: "before selection", selected: 2, remove: 0, want: 1},
		{name: "after selection", selected: 0, remove: 2, want: 0},
		{name: "selected middle", selected: 1, remove: 1, want: 1},
		{name: "selected last", selected: 2, remove: 2, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewTabCollection()
			for _, r := range records("a", "b", "c") {
				c.Append(r)
			}
			if err := c.Select(tc.selected); err != nil {
				t.Fatalf("select: %v", err)
			}
			if _, err := c.RemoveAt(tc.remove); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if c.Selected() != tc.want {
				t.Fatalf("expected selection %d, got %d", tc.want, c.Selected())
			}
		})
	}
}

func TestCollectionRemoveByIdentity(t *testing.T) {
	c := NewTabCollection()
	rs := records("a", "b")
	for _, r := range rs {
		c.Append(r)
	}
	twin := &schema.TabRecord{Title: "a", Content: "body-a"}
	if _, ok := c.Remove(twin); ok {
		t.Fatalf("equal value must not match by identity")
	}
	index, ok := c.Remove(rs[0])
	if !ok || index != 0 {
		t.Fatalf("expected removal at 0, got %d %v", index, ok)
	}
	if _, err := c.RemoveAt(0); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if c.Len() != 0 || c.Selected() != -1 {
		t.Fatalf("expected empty collection without selection")
	}
	if _, err := c.RemoveAt(0); !errors.Is(err, schema.ErrTabIndexOutOfRange) {
		t.Fatalf("expected ErrTabIndexOutOfRange, got %v", err)
	}
}

func TestCollectionSnapshot(t *testing.T) {
	c := NewTabCollection()
	for _, r := range records("a", "b") {
		c.Append(r)
	}
	_ = c.Select(1)
	snap := c.Snapshot()
	if len(snap) != 2 || snap[1].Title != "b" || !snap[1].Selected || snap[0].Selected {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
