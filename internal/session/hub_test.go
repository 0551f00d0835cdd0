package session

import (
	"testing"

	"github.com/Tadwork/code-dojo/internal/models"
)

func TestGetOrCreateSeedsOnlyOnce(t *testing.T) {
	h := NewHub(DuplicateAllow)

	r1 := h.GetOrCreate("ABCD1234", models.Document{Code: "stored", Language: "go"})
	if doc := r1.Snapshot(); doc.Code != "stored" || doc.Language != "go" {
		t.Fatalf("seed not applied: %+v", doc)
	}

	r1.ApplyCode("live edit", "")
	r2 := h.GetOrCreate("ABCD1234", models.Document{Code: "stale", Language: "python"})
	if r2 != r1 {
		t.Fatalf("GetOrCreate returned a second room for the same code")
	}
	if doc := r2.Snapshot(); doc.Code != "live edit" {
		t.Fatalf("live document overwritten by seed: %+v", doc)
	}
}

func TestRemoveIfEmpty(t *testing.T) {
	h := NewHub(DuplicateAllow)
	r := h.GetOrCreate("ABCD1234", models.Document{})

	c := NewClient(nil)
	r.Register(c)
	if h.RemoveIfEmpty("ABCD1234") {
		t.Fatalf("room with a live connection was removed")
	}

	r.Detach(c)
	if !h.RemoveIfEmpty("ABCD1234") {
		t.Fatalf("empty room was not removed")
	}
	if _, ok := h.Get("ABCD1234"); ok {
		t.Fatalf("removed room still resolvable")
	}
	if h.RemoveIfEmpty("ABCD1234") {
		t.Fatalf("second RemoveIfEmpty reported true for a missing room")
	}
}

func TestActiveUsers(t *testing.T) {
	h := NewHub(DuplicateAllow)
	if n := h.ActiveUsers("NOROOM00"); n != 0 {
		t.Fatalf("ActiveUsers for missing room = %d, want 0", n)
	}

	r := h.GetOrCreate("ABCD1234", models.Document{})
	c := NewClient(nil)
	r.Register(c)
	r.Join(c, "u1", "Ada")
	if n := h.ActiveUsers("ABCD1234"); n != 1 {
		t.Fatalf("ActiveUsers = %d, want 1", n)
	}
}

func TestHubDefaultsToAllowPolicy(t *testing.T) {
	h := NewHub("")
	r := h.GetOrCreate("ABCD1234", models.Document{})

	c1 := NewClient(nil)
	r.Register(c1)
	r.Join(c1, "u1", "Ada")
	c2 := NewClient(nil)
	r.Register(c2)
	if _, _, displaced := r.Join(c2, "u1", "Ada"); displaced != nil {
		t.Fatalf("default policy displaced a connection, want allow")
	}
}
