package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/namematch"
	"github.com/shopvoice/shopvoice/pkg/types"
)

// turnRingCapacity is the maximum number of conversation turns kept per
// session before the oldest is evicted.
const turnRingCapacity = 20

// customerRingCapacity is the maximum number of distinct customers a
// session remembers having talked about, most-recently-used first.
const customerRingCapacity = 10

// CustomerRef is a lightweight handle to a customer kept in a session's
// customer ring, distinct from [domain.Customer] so this package does
// not need to depend on the store.
type CustomerRef struct {
	ID   uuid.UUID
	Name string
}

// Turn is one exchange recorded in the turn ring.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Text is the spoken or synthesised utterance.
	Text string

	// Intent is the extracted intent name for a user turn, empty otherwise.
	Intent string

	// Entities is the extracted entity map for a user turn, nil otherwise.
	Entities map[string]any
}

// Memory is a session's bounded conversation memory: a ring of recent
// turns and a ring of recently discussed customers, with one of the
// latter tracked as "active" so pronominal back-references ("uska
// balance", "his balance") resolve without naming the customer again.
//
// Grounded on [ContextManager]'s mutex-guarded-ring shape, generalised
// from a single token-budget window into the spec's dual-ring model;
// the customer-ring fuzzy lookup reuses [namematch.Match] rather than
// the teacher's context_manager, which has no customer-identity concept.
//
// All methods are safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	turns    []Turn
	ring     []CustomerRef
	active   *CustomerRef
	previous *CustomerRef
}

// NewMemory returns an empty [Memory].
func NewMemory() *Memory {
	return &Memory{
		turns: make([]Turn, 0, turnRingCapacity),
		ring:  make([]CustomerRef, 0, customerRingCapacity),
	}
}

// AddUserMessage records a user turn, including its extracted intent
// and entities, evicting the oldest turn if the ring is at capacity.
func (m *Memory) AddUserMessage(text, intentName string, entities map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.push(Turn{Role: "user", Text: text, Intent: intentName, Entities: entities})
}

// AddAssistantMessage records the assistant's spoken reply.
func (m *Memory) AddAssistantMessage(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.push(Turn{Role: "assistant", Text: text})
}

func (m *Memory) push(t Turn) {
	m.turns = append(m.turns, t)
	if len(m.turns) > turnRingCapacity {
		m.turns = m.turns[len(m.turns)-turnRingCapacity:]
	}
}

// SetActiveCustomer promotes ref to active, moving it to the front of
// the customer ring (inserting it if new) and remembering the
// previously active customer so [Memory.SwitchToPreviousCustomer] can
// undo the switch.
func (m *Memory) SetActiveCustomer(ref CustomerRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previous = m.active
	m.active = &ref
	m.touchRing(ref)
}

// touchRing moves ref to the front of the ring, inserting it if absent
// and evicting the least-recently-used entry past capacity. Must be
// called with mu held.
func (m *Memory) touchRing(ref CustomerRef) {
	filtered := m.ring[:0:0]
	for _, r := range m.ring {
		if r.ID != ref.ID {
			filtered = append(filtered, r)
		}
	}
	m.ring = append([]CustomerRef{ref}, filtered...)
	if len(m.ring) > customerRingCapacity {
		m.ring = m.ring[:customerRingCapacity]
	}
}

// ActiveCustomer returns the currently active customer, or false if
// none has been set yet this session.
func (m *Memory) ActiveCustomer() (CustomerRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return CustomerRef{}, false
	}
	return *m.active, true
}

// SwitchToPreviousCustomer restores whichever customer was active
// before the current one, swapping the two. Reports false if there is
// no previous customer to switch to.
func (m *Memory) SwitchToPreviousCustomer() (CustomerRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.previous == nil {
		return CustomerRef{}, false
	}
	prev := *m.previous
	m.previous = m.active
	m.active = &prev
	m.touchRing(prev)
	return prev, true
}

// RingMatch is a candidate produced by [Memory.SwitchToCustomerByName],
// pairing a ring entry with its fuzzy-match score against the query.
type RingMatch struct {
	Customer CustomerRef
	Score    float64
	Type     namematch.MatchType
}

// SwitchToCustomerByName searches the customer ring for the
// best fuzzy match to query using [namematch.Match], and if it meets
// [namematch.DefaultThreshold], promotes that customer to active and
// returns it. This lets a session resolve "Rahul" against a customer it
// has already discussed without a database round trip.
func (m *Memory) SwitchToCustomerByName(query string) (CustomerRef, bool) {
	m.mu.Lock()
	best, ok := m.bestRingMatch(query)
	m.mu.Unlock()
	if !ok {
		return CustomerRef{}, false
	}
	m.SetActiveCustomer(best.Customer)
	return best.Customer, true
}

// bestRingMatch returns the ring entry scoring highest against query,
// if any meets the default threshold. Must be called with mu held.
func (m *Memory) bestRingMatch(query string) (RingMatch, bool) {
	var best RingMatch
	found := false
	for _, r := range m.ring {
		res := namematch.Match(query, r.Name)
		if !res.Matched(namematch.DefaultThreshold) {
			continue
		}
		if !found || res.Score > best.Score {
			best = RingMatch{Customer: r, Score: res.Score, Type: res.Type}
			found = true
		}
	}
	return best, found
}

// RingCandidates returns every customer ring entry that fuzzy-matches
// query at all, regardless of threshold, for callers (the business
// engine's resolveCustomer) that need to combine ring candidates with
// database candidates before ranking.
func (m *Memory) RingCandidates(query string) []RingMatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := make([]RingMatch, 0, len(m.ring))
	for _, r := range m.ring {
		res := namematch.Match(query, r.Name)
		if res.Type == namematch.TypeNone {
			continue
		}
		matches = append(matches, RingMatch{Customer: r, Score: res.Score, Type: res.Type})
	}
	return matches
}

// GetFormattedContext renders the last n turns (or all of them, if
// fewer) as [types.Message] values suitable for an LLM prompt, with the
// active customer (if any) surfaced as a leading system message so the
// model has the same "who are we talking about" context the gate and
// engine use.
func (m *Memory) GetFormattedContext(n int) []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if n > 0 && len(m.turns) > n {
		start = len(m.turns) - n
	}
	window := m.turns[start:]

	out := make([]types.Message, 0, len(window)+1)
	if m.active != nil {
		out = append(out, types.Message{
			Role:    "system",
			Content: fmt.Sprintf("[Active customer]: %s", m.active.Name),
		})
	}
	for _, t := range window {
		out = append(out, types.Message{Role: t.Role, Content: t.Text})
	}
	return out
}
