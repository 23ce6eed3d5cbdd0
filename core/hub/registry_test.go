package hub

import (
	"testing"

	"Soundbay/model"
)

func TestRegistryMaintainsBothIndices(t *testing.T) {
	r := NewRegistry()
	a1 := newClient("alice", model.RoleAdmin, nil)
	a2 := newClient("alice", model.RoleAdmin, nil)
	b := newClient("bob", model.RoleUser, nil)

	r.Insert(a1)
	r.Insert(a2)
	r.Insert(b)
	r.Insert(b)

	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	if got := len(r.ForUser("alice")); got != 2 {
		t.Fatalf("alice clients = %d, want 2", got)
	}
	if got := len(r.ForRole(model.RoleAdmin)); got != 2 {
		t.Fatalf("admin clients = %d, want 2", got)
	}

	if !r.Remove(a1) {
		t.Fatalf("remove a1 should report true")
	}
	if r.Remove(a1) {
		t.Fatalf("second remove should report false")
	}
	if got := len(r.ForUser("alice")); got != 1 {
		t.Fatalf("alice clients after remove = %d, want 1", got)
	}
	if got := len(r.ForRole(model.RoleAdmin)); got != 1 {
		t.Fatalf("admin clients after remove = %d, want 1", got)
	}

	r.Remove(a2)
	r.Remove(b)
	if r.Len() != 0 || len(r.byUser) != 0 || len(r.byRole) != 0 {
		t.Fatalf("registry not empty: len=%d users=%d roles=%d", r.Len(), len(r.byUser), len(r.byRole))
	}
}

func TestSendSkipsClosedClients(t *testing.T) {
	h := New(nil)
	open := newClient("carol", model.RoleUser, nil)
	closed := newClient("carol", model.RoleUser, nil)
	h.registry.Insert(open)
	h.registry.Insert(closed)
	closed.close()

	sent := h.SendToUser("carol", Envelope{Type: TypeNotification, Payload: map[string]string{"message": "hi"}})
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	select {
	case msg := <-open.send:
		if string(msg) != `{"type":"notification","payload":{"message":"hi"}}` {
			t.Fatalf("unexpected message %s", msg)
		}
	default:
		t.Fatalf("open client received nothing")
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	h := New(nil)
	c := newClient("dave", model.RoleSeller, nil)
	h.registry.Insert(c)

	for i := 0; i < sendBuffer; i++ {
		if h.SendToRole(model.RoleSeller, Envelope{Type: TypeNotification}) != 1 {
			t.Fatalf("message %d should have been queued", i)
		}
	}
	if h.SendToRole(model.RoleSeller, Envelope{Type: TypeNotification}) != 0 {
		t.Fatalf("message beyond buffer should be dropped")
	}
}
