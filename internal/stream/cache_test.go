package stream

import (
	"testing"

	"github.com/jmurray2011/skein/internal/source"
)

func TestCache_PutOrder(t *testing.T) {
	c := NewCache()
	fp := source.Fingerprint{Service: "svc"}

	c.Put(fp, source.NoCursor, &source.Page{Previous: "p1"})
	c.Put(fp, "p1", &source.Page{Previous: "p2"})
	c.Put(fp, "p2", &source.Page{})

	want := []source.Cursor{source.NoCursor, "p1", "p2"}
	if got := c.Positions(fp); !equalCursors(got, want) {
		t.Errorf("Positions() = %v, want %v", got, want)
	}

	// Replacing a page keeps its slot.
	replacement := &source.Page{Previous: "p1b"}
	c.Put(fp, source.NoCursor, replacement)
	if got := c.Positions(fp); !equalCursors(got, want) {
		t.Errorf("Positions() after replace = %v, want %v", got, want)
	}
	if got, _ := c.Get(fp, source.NoCursor); got != replacement {
		t.Error("Get() did not return the replacement page")
	}

	pos, newest, ok := c.Newest(fp)
	if !ok || pos != "p2" || newest == nil {
		t.Errorf("Newest() = %q, %v, %v", pos, newest, ok)
	}
	pos, _, ok = c.Oldest(fp)
	if !ok || pos != source.NoCursor {
		t.Errorf("Oldest() = %q, %v", pos, ok)
	}
	if c.Len(fp) != 3 {
		t.Errorf("Len() = %d, want 3", c.Len(fp))
	}
}

func TestCache_PrependIf(t *testing.T) {
	c := NewCache()
	fp := source.Fingerprint{Service: "svc"}

	c.Put(fp, source.NoCursor, &source.Page{Next: "n1"})
	if !c.PrependIf(fp, "n1", &source.Page{Next: "n2"}, nil) {
		t.Fatal("PrependIf() = false")
	}
	c.PrependIf(fp, "n2", &source.Page{}, func() bool { return true })

	want := []source.Cursor{"n2", "n1", source.NoCursor}
	if got := c.Positions(fp); !equalCursors(got, want) {
		t.Errorf("Positions() = %v, want %v", got, want)
	}
}

func TestCache_PutIfRejected(t *testing.T) {
	c := NewCache()
	fp := source.Fingerprint{Service: "svc"}

	if c.PutIf(fp, source.NoCursor, &source.Page{}, func() bool { return false }) {
		t.Error("PutIf() = true with failing guard")
	}
	if c.PrependIf(fp, "n1", &source.Page{}, func() bool { return false }) {
		t.Error("PrependIf() = true with failing guard")
	}
	if c.Len(fp) != 0 {
		t.Errorf("Len() = %d, want 0", c.Len(fp))
	}
}

func TestCache_PartitionsAreIsolated(t *testing.T) {
	c := NewCache()
	a := source.Fingerprint{Service: "svc", Search: "error"}
	b := source.Fingerprint{Service: "svc", Search: "warn"}

	c.Put(a, source.NoCursor, &source.Page{Entries: entries(2, 1)})
	c.Put(b, source.NoCursor, &source.Page{Entries: entries(9, 9)})

	if got := contents(Assemble(c, a)); !equalStrings(got, []string{"e1", "e2"}) {
		t.Errorf("Assemble(a) = %v", got)
	}

	c.DropFingerprint(a)
	if c.Len(a) != 0 {
		t.Errorf("Len(a) after drop = %d, want 0", c.Len(a))
	}
	if c.Len(b) != 1 {
		t.Errorf("Len(b) after dropping a = %d, want 1", c.Len(b))
	}
}

func TestCache_Empty(t *testing.T) {
	c := NewCache()
	fp := source.Fingerprint{}

	if _, ok := c.Get(fp, source.NoCursor); ok {
		t.Error("Get() on empty cache found a page")
	}
	if _, _, ok := c.Newest(fp); ok {
		t.Error("Newest() on empty cache = ok")
	}
	if _, _, ok := c.Oldest(fp); ok {
		t.Error("Oldest() on empty cache = ok")
	}
	if c.Pages(fp) != nil {
		t.Error("Pages() on empty cache != nil")
	}
}
