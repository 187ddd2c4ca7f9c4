// Package engine implements the business engine: the single dispatch
// point that turns a gate-approved [intent.Intent] into a persisted
// effect and a result to speak back.
//
// Grounded on the teacher's internal/app dependency-injection shape (a
// struct of narrow collaborator interfaces assembled once at startup)
// and on internal/engine/cascade's intent-to-effect dispatch idea,
// generalised from the teacher's single cascade pipeline into a
// per-intent handler table over the shop domain.
package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
	"github.com/shopvoice/shopvoice/internal/money"
	"github.com/shopvoice/shopvoice/internal/namematch"
	"github.com/shopvoice/shopvoice/internal/session"
	"github.com/shopvoice/shopvoice/internal/store/postgres"
)

// Store is the set of persistence operations the engine needs. Satisfied
// by *postgres.Store; narrowed to an interface here so engine tests can
// substitute an in-memory fake without a live database.
type Store interface {
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, c domain.Customer) error
	UpdateCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error
	CustomerByID(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	CustomerByPhone(ctx context.Context, phone string) (domain.Customer, error)
	SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	ListCustomerBalances(ctx context.Context) ([]domain.Customer, error)
	TotalPendingAmount(ctx context.Context) (money.Amount, error)
	DeleteCustomerData(ctx context.Context, id uuid.UUID) error

	ProductByName(ctx context.Context, name string) (domain.Product, error)
	EnsureProduct(ctx context.Context, name string, unit domain.Unit) (domain.Product, error)

	CreateDraftInvoice(ctx context.Context, inv domain.Invoice) (domain.Invoice, error)
	ConfirmInvoice(ctx context.Context, id uuid.UUID) error
	CancelInvoice(ctx context.Context, id uuid.UUID) error
	CancelAllDraftInvoices(ctx context.Context, customerID uuid.UUID) (int, error)
	InvoiceByID(ctx context.Context, id uuid.UUID) (domain.Invoice, error)

	RecordPayment(ctx context.Context, customerID uuid.UUID, amount money.Amount, mode domain.PaymentMode, description string) (domain.LedgerEntry, error)
	AddCredit(ctx context.Context, customerID uuid.UUID, amount money.Amount, description string) (domain.LedgerEntry, error)
	LedgerHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	DailySummaryRange(ctx context.Context, start, end time.Time) (postgres.DailySummary, error)

	CreateReminder(ctx context.Context, r domain.Reminder) (domain.Reminder, error)
	CancelReminder(ctx context.Context, id uuid.UUID) error
	MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	ReminderByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error)
	RemindersForCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Reminder, error)
}

// Cache is the subset of [cache.Cache] the engine needs, for the
// DELETE_CUSTOMER_DATA OTP challenge.
type Cache interface {
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Mailer sends the OTP and invoice e-mails. Implemented by
// internal/mailer; narrowed here so the engine does not depend on SMTP
// configuration.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
	SendInvoiceEmail(ctx context.Context, to string, inv domain.Invoice) error
}

// WhatsAppSender is an interface stub only — no concrete implementation
// is in scope. SEND_INVOICE dispatches through it when the channel
// entity is "whatsapp", so the engine compiles and dispatches correctly
// once a real adapter exists.
type WhatsAppSender interface {
	Send(ctx context.Context, to, message string) error
}

// ExecutionResult is the outcome of [Engine.Execute]: either a speakable
// success with optional structured Data, or a categorized Error the
// response layer translates into a localized apology.
type ExecutionResult struct {
	Success bool
	Message string
	Data    map[string]any
	Err     *apperr.Error
}

func ok(message string, data map[string]any) ExecutionResult {
	return ExecutionResult{Success: true, Message: message, Data: data}
}

func fail(err *apperr.Error) ExecutionResult {
	return ExecutionResult{Success: false, Err: err}
}

// Engine is the business engine. One instance serves every session.
type Engine struct {
	store   Store
	cache   Cache
	mailer  Mailer
	whatsapp WhatsAppSender
	now     func() time.Time

	// otpTTL is the lifetime of a DELETE_CUSTOMER_DATA OTP challenge.
	otpTTL time.Duration
}

// Option configures an [Engine] at construction time.
type Option func(*Engine)

// WithMailer sets the e-mail adapter used for OTP and invoice delivery.
func WithMailer(m Mailer) Option { return func(e *Engine) { e.mailer = m } }

// WithWhatsApp sets the WhatsApp delivery stub.
func WithWhatsApp(w WhatsAppSender) Option { return func(e *Engine) { e.whatsapp = w } }

// WithClock overrides the engine's time source, for deterministic tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithOTPTTL overrides the DELETE_CUSTOMER_DATA OTP challenge lifetime.
func WithOTPTTL(d time.Duration) Option { return func(e *Engine) { e.otpTTL = d } }

// New constructs an [Engine] over store and cache.
func New(store Store, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		cache:  cache,
		now:    time.Now,
		otpTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute dispatches in against sess, the current session's memory and
// pending state. SWITCH_LANGUAGE never reaches the engine; the session
// manager (internal/duplex) applies it directly once the gate approves it.
func (e *Engine) Execute(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	switch in.Name {
	case intent.CreateInvoice:
		return e.handleCreateInvoice(ctx, sess, in)
	case intent.ConfirmInvoice:
		return e.handleConfirmInvoice(ctx, sess, in)
	case intent.CancelInvoice:
		return e.handleCancelInvoice(ctx, sess, in)
	case intent.RecordPayment:
		return e.handleRecordPayment(ctx, sess, in)
	case intent.AddCredit:
		return e.handleAddCredit(ctx, sess, in)
	case intent.CheckBalance:
		return e.handleCheckBalance(ctx, sess, in)
	case intent.CheckStock:
		return e.handleCheckStock(ctx, sess, in)
	case intent.ShowPendingInvoice:
		return e.handleShowPendingInvoice(ctx, sess, in)
	case intent.ToggleGST:
		return e.handleToggleGST(ctx, sess, in)
	case intent.GetCustomerInfo:
		return e.handleGetCustomerInfo(ctx, sess, in)
	case intent.ListCustomerBalances:
		return e.handleListCustomerBalances(ctx, sess, in)
	case intent.TotalPendingAmount:
		return e.handleTotalPendingAmount(ctx, sess, in)
	case intent.DailySummary:
		return e.handleDailySummary(ctx, sess, in)
	case intent.CreateReminder:
		return e.handleCreateReminder(ctx, sess, in)
	case intent.ModifyReminder:
		return e.handleModifyReminder(ctx, sess, in)
	case intent.CancelReminder:
		return e.handleCancelReminder(ctx, sess, in)
	case intent.ListReminders:
		return e.handleListReminders(ctx, sess, in)
	case intent.CreateCustomer:
		return e.handleCreateCustomer(ctx, sess, in)
	case intent.UpdateCustomer:
		return e.handleUpdateCustomer(ctx, sess, in)
	case intent.UpdateCustomerPhone:
		return e.handleUpdateCustomerPhone(ctx, sess, in)
	case intent.DeleteCustomerData:
		return e.handleDeleteCustomerData(ctx, sess, in)
	case intent.ProvideEmail:
		return e.handleProvideEmail(ctx, sess, in)
	case intent.SendInvoice:
		return e.handleSendInvoice(ctx, sess, in)
	default:
		return fail(apperr.New(apperr.BusinessLogic, "UNHANDLED_INTENT", string(in.Name)))
	}
}

// candidate pairs a customer with its combined resolution score.
type candidate struct {
	customer domain.Customer
	score    float64
}

// resolveCustomer implements the three-step resolution algorithm: the
// active-customer shortcut, database-plus-ring ranking, and promotion
// of a unique winner to active.
func (e *Engine) resolveCustomer(ctx context.Context, sess *Session, in intent.Intent) (domain.Customer, error) {
	ref, _ := in.Entities["customerRef"].(string)
	name, _ := in.Entities["customer"].(string)

	if ref == "active" || name == "" {
		if active, ok := sess.Memory.ActiveCustomer(); ok {
			return e.store.CustomerByID(ctx, active.ID)
		}
		return domain.Customer{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", "no active customer in this session")
	}

	dbCandidates, err := e.store.SearchCustomers(ctx, name)
	if err != nil {
		return domain.Customer{}, err
	}
	ringMatches := sess.Memory.RingCandidates(name)
	ranked := e.rankCustomers(ctx, name, dbCandidates, ringMatches)

	if len(ranked) == 0 {
		return domain.Customer{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", "no customer matching \""+name+"\"")
	}

	top := ranked[0]
	if top.score < namematch.DefaultThreshold && len(ranked) > 1 {
		names := make([]string, 0, 3)
		for i, c := range ranked {
			if i >= 3 {
				break
			}
			names = append(names, c.customer.Name)
		}
		return domain.Customer{}, apperr.New(apperr.Conflict, "MULTIPLE_CUSTOMERS", strings.Join(names, ", "))
	}

	sess.Memory.SetActiveCustomer(session.CustomerRef{ID: top.customer.ID, Name: top.customer.Name})
	return top.customer, nil
}

// rankCustomers merges database search results with customer-ring
// matches into one candidate list, scored (a) exact name → (b)
// phone-substring → (c) fuzzy matcher, descending.
func (e *Engine) rankCustomers(ctx context.Context, spoken string, dbCandidates []domain.Customer, ringMatches []session.RingMatch) []candidate {
	byID := make(map[uuid.UUID]*candidate, len(dbCandidates)+len(ringMatches))
	normSpoken := namematch.Normalize(spoken)

	for _, c := range dbCandidates {
		byID[c.ID] = &candidate{customer: c, score: scoreCandidate(spoken, normSpoken, c)}
	}
	for _, rm := range ringMatches {
		if existing, ok := byID[rm.Customer.ID]; ok {
			if rm.Score > existing.score {
				existing.score = rm.Score
			}
			continue
		}
		full, err := e.store.CustomerByID(ctx, rm.Customer.ID)
		if err != nil {
			continue
		}
		byID[rm.Customer.ID] = &candidate{customer: full, score: rm.Score}
	}

	out := make([]candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func scoreCandidate(spoken, normSpoken string, c domain.Customer) float64 {
	if namematch.Normalize(c.Name) == normSpoken {
		return 1.0
	}
	if c.Phone != "" && spoken != "" && strings.Contains(c.Phone, spoken) {
		return 0.97
	}
	return namematch.Match(spoken, c.Name).Score
}

// entityString returns entities[key] as a string, or "".
func entityString(entities map[string]any, key string) string {
	v, _ := entities[key].(string)
	return v
}

// entityAmount returns entities["amount"] as a [money.Amount] and
// whether it was present and numeric.
func entityAmount(entities map[string]any) (money.Amount, bool) {
	v, ok := entities["amount"].(float64)
	if !ok {
		return money.Zero, false
	}
	return money.FromRupees(v), true
}

// entityBool returns entities[key] as a bool, defaulting to false.
func entityBool(entities map[string]any, key string) bool {
	v, _ := entities[key].(bool)
	return v
}
