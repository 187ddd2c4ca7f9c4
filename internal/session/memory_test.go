package session

import (
	"testing"

	"github.com/google/uuid"
)

func TestMemory_TurnRingEvictsOldest(t *testing.T) {
	m := NewMemory()
	for i := 0; i < turnRingCapacity+5; i++ {
		m.AddUserMessage("turn", "CHECK_BALANCE", nil)
	}
	ctx := m.GetFormattedContext(0)
	if len(ctx) != turnRingCapacity {
		t.Fatalf("len(ctx) = %d, want %d", len(ctx), turnRingCapacity)
	}
}

func TestMemory_SetActiveCustomer(t *testing.T) {
	m := NewMemory()
	ref := CustomerRef{ID: uuid.New(), Name: "Rahul"}
	m.SetActiveCustomer(ref)

	got, ok := m.ActiveCustomer()
	if !ok || got.ID != ref.ID {
		t.Fatalf("ActiveCustomer() = %+v, %v", got, ok)
	}
}

func TestMemory_SwitchToPreviousCustomer(t *testing.T) {
	m := NewMemory()
	rahul := CustomerRef{ID: uuid.New(), Name: "Rahul"}
	bharat := CustomerRef{ID: uuid.New(), Name: "Bharat"}
	m.SetActiveCustomer(rahul)
	m.SetActiveCustomer(bharat)

	prev, ok := m.SwitchToPreviousCustomer()
	if !ok || prev.ID != rahul.ID {
		t.Fatalf("SwitchToPreviousCustomer() = %+v, %v, want Rahul", prev, ok)
	}

	active, _ := m.ActiveCustomer()
	if active.ID != rahul.ID {
		t.Fatalf("ActiveCustomer() = %+v, want Rahul", active)
	}
}

func TestMemory_SwitchToPreviousCustomerNoneYet(t *testing.T) {
	m := NewMemory()
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Rahul"})

	_, ok := m.SwitchToPreviousCustomer()
	if ok {
		t.Fatal("did not expect a previous customer")
	}
}

func TestMemory_SwitchToCustomerByNameExactMatch(t *testing.T) {
	m := NewMemory()
	rahul := CustomerRef{ID: uuid.New(), Name: "Rahul Sharma"}
	m.SetActiveCustomer(rahul)
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Bharat"})

	got, ok := m.SwitchToCustomerByName("Rahul Sharma")
	if !ok || got.ID != rahul.ID {
		t.Fatalf("SwitchToCustomerByName() = %+v, %v, want Rahul", got, ok)
	}
}

func TestMemory_SwitchToCustomerByNameNoMatch(t *testing.T) {
	m := NewMemory()
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Rahul"})

	_, ok := m.SwitchToCustomerByName("Completely Different Name")
	if ok {
		t.Fatal("did not expect a match")
	}
}

func TestMemory_RingCandidatesFuzzyMatch(t *testing.T) {
	m := NewMemory()
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Deepak"})
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Deepika"})

	matches := m.RingCandidates("Deepak")
	for _, cand := range matches {
		if cand.Customer.Name == "Deepika" && cand.Score >= 0.85 {
			t.Fatalf("Deepika must not fuzzy-match Deepak at >= 0.85, got %v", cand.Score)
		}
	}
}

func TestMemory_RingEvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory()
	var first CustomerRef
	for i := 0; i < customerRingCapacity+3; i++ {
		ref := CustomerRef{ID: uuid.New(), Name: "Customer"}
		if i == 0 {
			first = ref
		}
		m.SetActiveCustomer(ref)
	}
	matches := m.RingCandidates("Customer")
	for _, cand := range matches {
		if cand.Customer.ID == first.ID {
			t.Fatal("expected the first customer to have been evicted from the ring")
		}
	}
	if len(matches) > customerRingCapacity {
		t.Fatalf("ring holds %d entries, want <= %d", len(matches), customerRingCapacity)
	}
}

func TestMemory_GetFormattedContextSurfacesActiveCustomer(t *testing.T) {
	m := NewMemory()
	m.SetActiveCustomer(CustomerRef{ID: uuid.New(), Name: "Rahul"})
	m.AddUserMessage("rahul ka balance", "CHECK_BALANCE", nil)

	ctx := m.GetFormattedContext(5)
	if len(ctx) == 0 || ctx[0].Role != "system" {
		t.Fatalf("expected leading system message with active customer, got %+v", ctx)
	}
}
