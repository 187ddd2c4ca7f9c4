package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/session"
)

// Session is the business-engine-facing view of one live voice session:
// its conversation memory plus the mutable state CREATE_INVOICE,
// PROVIDE_EMAIL, and DELETE_CUSTOMER_DATA thread through a sequence of
// turns (pending drafts, a session-level e-mail address, language, and
// timezone). Distinct from [session.Memory], which only tracks
// conversation turns and customer identity, because these fields are
// business-engine concerns rather than conversation-memory concerns.
type Session struct {
	ID       string
	Memory   *session.Memory
	Language string
	Location *time.Location

	mu               sync.Mutex
	email            string
	drafts           map[uuid.UUID]domain.Invoice
	pendingSendInvoice *uuid.UUID
	gstDefault       bool
}

// NewSession returns an empty [Session] in language (e.g. "hi" or "en")
// with the given timezone for natural-language time parsing.
func NewSession(id, language string, loc *time.Location) *Session {
	if loc == nil {
		loc = time.UTC
	}
	return &Session{
		ID:       id,
		Memory:   session.NewMemory(),
		Language: language,
		Location: loc,
		drafts:   make(map[uuid.UUID]domain.Invoice),
	}
}

// addDraft stores inv as a PendingDraft awaiting CONFIRM_INVOICE.
func (s *Session) addDraft(inv domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[inv.ID] = inv
}

// draftCount reports how many drafts are pending.
func (s *Session) draftCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// soleDraft returns the one pending draft, if exactly one exists.
func (s *Session) soleDraft() (domain.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.drafts) != 1 {
		return domain.Invoice{}, false
	}
	for _, inv := range s.drafts {
		return inv, true
	}
	return domain.Invoice{}, false
}

// draftsForCustomer returns every pending draft for customerID.
func (s *Session) draftsForCustomer(customerID uuid.UUID) []domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Invoice
	for _, inv := range s.drafts {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out
}

// allDrafts returns every pending draft in the session, for
// SHOW_PENDING_INVOICE with no named customer.
func (s *Session) allDrafts() []domain.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Invoice, 0, len(s.drafts))
	for _, inv := range s.drafts {
		out = append(out, inv)
	}
	return out
}

// removeDraft drops id from the pending set, e.g. once confirmed.
func (s *Session) removeDraft(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
}

// SetEmail attaches an e-mail address to the session, for PROVIDE_EMAIL.
func (s *Session) SetEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
}

// Email returns the session's attached e-mail address, if any.
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// setPendingSendInvoice records the most recent invoice awaiting a send,
// so a later PROVIDE_EMAIL without an invoice id applies to it.
func (s *Session) setPendingSendInvoice(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idCopy := id
	s.pendingSendInvoice = &idCopy
}

// PendingSendInvoice returns the most recent invoice awaiting a send.
func (s *Session) PendingSendInvoice() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSendInvoice == nil {
		return uuid.Nil, false
	}
	return *s.pendingSendInvoice, true
}

// GSTDefault reports whether GST is applied to CREATE_INVOICE by default
// when the intent carries no explicit gst entity, per TOGGLE_GST.
func (s *Session) GSTDefault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gstDefault
}

// ToggleGST flips the session's GST default and returns the new value.
func (s *Session) ToggleGST() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gstDefault = !s.gstDefault
	return s.gstDefault
}
