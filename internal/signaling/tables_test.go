package signaling

import (
	"reflect"
	"testing"
)

func TestConnRegistry(t *testing.T) {
	r := NewConnRegistry()

	if _, ok := r.Lookup("c1"); ok {
		t.Fatal("lookup on empty registry must miss")
	}

	r.Register("c1", "u1")
	userID, ok := r.Lookup("c1")
	if !ok || userID != "u1" {
		t.Fatalf("lookup = %q, %v", userID, ok)
	}

	r.Unregister("c1")
	r.Unregister("c1") // idempotent
	if _, ok := r.Lookup("c1"); ok {
		t.Fatal("lookup after unregister must miss")
	}
}

func TestPresenceTableOrderAndIdempotence(t *testing.T) {
	p := NewPresenceTable()

	p.Add("r1", "c1")
	p.Add("r1", "c2")
	p.Add("r1", "c3")
	p.Add("r1", "c2") // no-op

	if got := p.Others("r1", "c2"); !reflect.DeepEqual(got, []string{"c1", "c3"}) {
		t.Fatalf("Others = %v", got)
	}
	if got := p.ConnIDs("r1"); !reflect.DeepEqual(got, []string{"c1", "c2", "c3"}) {
		t.Fatalf("ConnIDs = %v", got)
	}

	p.Remove("r1", "c2")
	p.Remove("r1", "c2") // no-op
	p.Remove("r9", "c1") // absent room, no-op

	if p.Contains("r1", "c2") {
		t.Fatal("c2 should be gone")
	}
	if p.Empty("r1") {
		t.Fatal("r1 still has connections")
	}

	p.Remove("r1", "c1")
	p.Remove("r1", "c3")
	if !p.Empty("r1") {
		t.Fatal("r1 should be empty")
	}
	if p.ActiveRooms() != 0 {
		t.Fatalf("emptied rooms must leave the table, got %d active", p.ActiveRooms())
	}
}

func TestPresenceTableRoomsOf(t *testing.T) {
	p := NewPresenceTable()
	p.Add("r1", "c1")
	p.Add("r2", "c2")

	if got := p.RoomsOf("c1"); !reflect.DeepEqual(got, []string{"r1"}) {
		t.Fatalf("RoomsOf(c1) = %v", got)
	}
	if got := p.RoomsOf("ghost"); len(got) != 0 {
		t.Fatalf("RoomsOf(ghost) = %v", got)
	}
}

func TestScreenShareTracker(t *testing.T) {
	tr := NewScreenShareTracker()

	tr.Mark("r1", "u1")
	tr.Mark("r1", "u2")
	tr.Mark("r1", "u1") // no-op

	if got := tr.Sharers("r1"); !reflect.DeepEqual(got, []string{"u1", "u2"}) {
		t.Fatalf("Sharers = %v", got)
	}
	if !tr.IsSharing("r1", "u1") {
		t.Fatal("u1 should be sharing")
	}

	tr.Unmark("r1", "u1")
	tr.Unmark("r1", "u1") // no-op
	if tr.IsSharing("r1", "u1") {
		t.Fatal("u1 should not be sharing")
	}

	tr.Unmark("r1", "u2")
	if got := tr.Sharers("r1"); len(got) != 0 {
		t.Fatalf("Sharers after unmark = %v", got)
	}
}
