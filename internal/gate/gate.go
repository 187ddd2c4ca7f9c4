// Package gate implements the per-session confidence and confirmation
// state machine that sits between intent extraction and the business
// engine: IDLE → AWAITING_CONFIRMATION → IDLE.
//
// This is the only component that interprets yes/no locally; that
// decision is never delegated to the LLM, so a slow or flaky completion
// call can never strand a pending destructive action.
//
// Grounded on the teacher's internal/resilience.CircuitBreaker in shape
// (a small mutex-guarded state machine with named states and a String
// method) though the transition rules themselves are new — the teacher
// has no confirmation-gate analogue.
package gate

import (
	"strings"
	"sync"

	"github.com/shopvoice/shopvoice/internal/intent"
)

// State is the confirmation gate's current mode for one session.
type State int

const (
	// Idle accepts a freshly extracted intent and decides its fate.
	Idle State = iota

	// AwaitingConfirmation has a [PendingIntent] stored; the next final
	// transcript is interpreted as yes/no rather than re-extracted.
	AwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "unknown"
	}
}

// LowConfidenceThreshold is the floor below which an intent is rejected
// outright and the gate asks the user to repeat themselves.
const LowConfidenceThreshold = 0.65

// ConfirmationThreshold is the ceiling below which (but at or above
// [LowConfidenceThreshold]) an intent requires explicit confirmation
// purely on confidence grounds.
const ConfirmationThreshold = 0.85

// LargeAmountThreshold is the rupee amount above which an intent always
// requires confirmation, regardless of confidence.
const LargeAmountThreshold = 5000.0

// destructiveIntents always require confirmation, regardless of
// confidence or amount.
var destructiveIntents = map[intent.Name]bool{
	intent.DeleteCustomerData: true,
	intent.CancelInvoice:      true,
	intent.CancelReminder:     true,
}

// PendingIntent is an extracted intent held for confirmation.
type PendingIntent struct {
	Intent   intent.Intent
	Language string
}

// Decision is the gate's verdict on a freshly extracted intent or a
// yes/no reply while awaiting confirmation.
type Decision struct {
	// Execute is true when the caller should hand Intent to the business
	// engine now.
	Execute bool

	// Intent is the intent to execute when Execute is true, or the zero
	// value otherwise.
	Intent intent.Intent

	// Reply is the language-appropriate utterance to speak back when
	// Execute is false; it is empty whenever Execute is true, including
	// for SWITCH_LANGUAGE.
	Reply string

	// NewState is the gate's state after this decision.
	NewState State
}

// Gate holds one session's confirmation state. Not safe for concurrent
// use from multiple goroutines on the same session — callers serialize
// intent processing for a session behind its own pipeline lock (SPEC_FULL
// §5), so the gate itself only needs to protect against the rare
// concurrent read (e.g. a status inspection from a health check).
type Gate struct {
	mu      sync.Mutex
	state   State
	pending *PendingIntent
}

// New returns a [Gate] in the Idle state.
func New() *Gate {
	return &Gate{state: Idle}
}

// State reports the gate's current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending returns the stored intent while AwaitingConfirmation, or nil.
func (g *Gate) Pending() *PendingIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Decide evaluates a freshly extracted intent against the gate's rules.
// Must only be called while the gate is Idle; callers in
// AwaitingConfirmation must route the transcript through [Gate.Resolve]
// instead.
func (g *Gate) Decide(in intent.Intent, language string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if in.Name == intent.SwitchLanguage {
		return Decision{Execute: true, Intent: in, NewState: Idle}
	}

	if in.Confidence < LowConfidenceThreshold {
		return Decision{Reply: repeatPrompt(language), NewState: Idle}
	}

	if requiresConfirmation(in) {
		g.pending = &PendingIntent{Intent: in, Language: language}
		g.state = AwaitingConfirmation
		return Decision{Reply: confirmationQuestion(in, language), NewState: AwaitingConfirmation}
	}

	return Decision{Execute: true, Intent: in, NewState: Idle}
}

// Resolve interprets transcript as yes/no while AwaitingConfirmation.
// Must only be called while the gate is in that state.
func (g *Gate) Resolve(transcript string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return Decision{NewState: Idle}
	}
	pending := *g.pending
	language := pending.Language

	switch classifyYesNo(transcript, language) {
	case answerYes:
		g.pending = nil
		g.state = Idle
		return Decision{Execute: true, Intent: pending.Intent, NewState: Idle}
	case answerNo:
		g.pending = nil
		g.state = Idle
		return Decision{Reply: cancelledPrompt(language), NewState: Idle}
	default:
		return Decision{Reply: yesNoPrompt(language), NewState: AwaitingConfirmation}
	}
}

func requiresConfirmation(in intent.Intent) bool {
	if destructiveIntents[in.Name] {
		return true
	}
	if amount, ok := in.Entities["amount"].(float64); ok && amount > LargeAmountThreshold {
		return true
	}
	return in.Confidence >= LowConfidenceThreshold && in.Confidence < ConfirmationThreshold
}

type yesNoAnswer int

const (
	answerNone yesNoAnswer = iota
	answerYes
	answerNo
)

// yesWords and noWords are per-language token sets; "en" doubles as the
// fallback for any language code without its own entry.
var yesWords = map[string][]string{
	"hi": {"haan", "ha", "bilkul", "theek hai", "ok"},
	"en": {"yes", "yeah", "yep", "ok", "okay", "sure", "correct"},
}

var noWords = map[string][]string{
	"hi": {"nahi", "nahin", "mat karo", "band karo", "ruk jao", "cancel"},
	"en": {"no", "nope", "cancel", "stop", "don't"},
}

func classifyYesNo(transcript, language string) yesNoAnswer {
	normalized := strings.ToLower(strings.TrimSpace(transcript))

	for _, word := range append(append([]string{}, yesWords[language]...), yesWords["en"]...) {
		if strings.Contains(normalized, word) {
			return answerYes
		}
	}
	for _, word := range append(append([]string{}, noWords[language]...), noWords["en"]...) {
		if strings.Contains(normalized, word) {
			return answerNo
		}
	}
	return answerNone
}
