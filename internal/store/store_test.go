package store

import (
	"sync"
	"testing"
	"time"
)

// stubClock returns a fixed time, grounded on the fixed-clock-for-tests
// pattern used throughout the example pack.
type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock(t time.Time) *stubClock { return &stubClock{now: t} }

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAddSetsMtimeAndDefaults(t *testing.T) {
	clk := newStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
	s := New(clk)
	r := s.Add(map[string]string{"site": "example.com", "user": "johny"})
	if r.Get("site") != "example.com" || r.Get("user") != "johny" {
		t.Fatal("fields not set")
	}
	if r.Get("password") != "" {
		t.Fatal("expected empty default for unset column")
	}
	if r.Get("mtime") != "2024-01-15 10:30:00" {
		t.Fatalf("unexpected mtime: %q", r.Get("mtime"))
	}
}

func TestAddAppendsInStableOrder(t *testing.T) {
	s := New(newStubClock(time.Now()))
	a := s.Add(map[string]string{"site": "a"})
	b := s.Add(map[string]string{"site": "b"})
	recs := s.Records()
	if len(recs) != 2 || recs[0] != a || recs[1] != b {
		t.Fatal("expected stable insertion order")
	}
}

func TestModifyRefreshesMtimePreservesIdentity(t *testing.T) {
	clk := newStubClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(clk)
	r := s.Add(map[string]string{"site": "a"})
	before := r
	clk.advance(time.Hour)
	s.Modify(r, map[string]string{"site": "b"})
	if r != before {
		t.Fatal("Modify must not change record identity")
	}
	if r.Get("site") != "b" {
		t.Fatal("field not updated")
	}
	if r.Get("mtime") != "2024-01-01 01:00:00" {
		t.Fatalf("mtime not refreshed: %q", r.Get("mtime"))
	}
}

func TestDelete(t *testing.T) {
	s := New(newStubClock(time.Now()))
	a := s.Add(map[string]string{"site": "a"})
	b := s.Add(map[string]string{"site": "b"})
	s.Delete(a)
	recs := s.Records()
	if len(recs) != 1 || recs[0] != b {
		t.Fatal("expected only b to remain")
	}
}

func TestFindUnrestrictedSearchesDefaultColumns(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"site": "Example.com", "user": "johny"})
	s.Add(map[string]string{"site": "other.com", "user": "alice"})
	got := s.Find("example")
	if len(got) != 1 || got[0].Get("site") != "Example.com" {
		t.Fatalf("unexpected search result: %v", got)
	}
}

func TestFindColumnRestricted(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"site": "example.com", "user": "johny"})
	s.Add(map[string]string{"site": "johny.example", "user": "alice"})
	got := s.Find("user:johny")
	if len(got) != 1 || got[0].Get("user") != "johny" {
		t.Fatalf("unexpected search result: %v", got)
	}
}

func TestFindEmptyQueryMatchesAll(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"site": "a"})
	s.Add(map[string]string{"site": "b"})
	if got := s.Find(""); len(got) != 2 {
		t.Fatalf("expected all records, got %d", len(got))
	}
}

func TestSetHeaderAddsEmptyColumn(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"site": "a"})
	if err := s.SetHeader(append(append([]string(nil), DefaultHeader...), "custom"), false); err != nil {
		t.Fatalf("SetHeader: %v", err)
	}
	if s.Records()[0].Get("custom") != "" {
		t.Fatal("expected empty default for newly added column")
	}
}

func TestSetHeaderRejectsLossyDropWithoutForce(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"note": "important"})
	reduced := []string{"site", "user", "url", "tags", "mtime", "password"}
	if err := s.SetHeader(reduced, false); err == nil {
		t.Fatal("expected UnknownColumnError dropping a non-empty column")
	}
	if err := s.SetHeader(reduced, true); err != nil {
		t.Fatalf("expected force to allow the drop, got %v", err)
	}
}

func TestSetHeaderAllowsDroppingEmptyColumn(t *testing.T) {
	s := New(newStubClock(time.Now()))
	s.Add(map[string]string{"site": "a"})
	reduced := []string{"site", "user", "url", "tags", "mtime", "password"}
	if err := s.SetHeader(reduced, false); err != nil {
		t.Fatalf("dropping an all-empty column should not require force: %v", err)
	}
}
