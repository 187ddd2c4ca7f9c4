package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
	"github.com/shopvoice/shopvoice/internal/store/postgres"
)

// fakeStore is an in-memory stand-in for *postgres.Store, sufficient to
// exercise every engine handler without a live database.
type fakeStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]domain.Customer
	products  map[string]domain.Product
	invoices  map[uuid.UUID]domain.Invoice
	reminders map[uuid.UUID]domain.Reminder
	ledger    []domain.LedgerEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[uuid.UUID]domain.Customer),
		products:  make(map[string]domain.Product),
		invoices:  make(map[uuid.UUID]domain.Invoice),
		reminders: make(map[uuid.UUID]domain.Reminder),
	}
}

func (f *fakeStore) addCustomer(name, phone string, balance money.Amount) domain.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := domain.Customer{ID: uuid.New(), Name: name, Phone: phone, Balance: balance, Email: name + "@example.com"}
	f.customers[c.ID] = c
	return c
}

func (f *fakeStore) addProduct(name string, price money.Amount, stock int) domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Product{ID: uuid.New(), Name: name, Price: price, Stock: stock, Unit: domain.UnitPiece}
	f.products[name] = p
	return p
}

func (f *fakeStore) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.New()
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[c.ID] = c
	return nil
}

func (f *fakeStore) UpdateCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.customers[id]
	c.Phone = phone
	f.customers[id] = c
	return nil
}

func (f *fakeStore) CustomerByID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers[id], nil
}

func (f *fakeStore) CustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return domain.Customer{}, nil
}

func (f *fakeStore) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Customer
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) ListCustomerBalances(ctx context.Context) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Customer
	for _, c := range f.customers {
		if c.Balance.IsPositive() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) TotalPendingAmount(ctx context.Context) (money.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total money.Amount
	for _, c := range f.customers {
		if c.Balance.IsPositive() {
			total = total.Add(c.Balance)
		}
	}
	return total, nil
}

func (f *fakeStore) DeleteCustomerData(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.customers, id)
	return nil
}

func (f *fakeStore) ProductByName(ctx context.Context, name string) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[name]
	if !ok {
		return domain.Product{}, notFoundErr("PRODUCT_NOT_FOUND")
	}
	return p, nil
}

func (f *fakeStore) EnsureProduct(ctx context.Context, name string, unit domain.Unit) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Product{ID: uuid.New(), Name: name, Unit: unit, IsNew: true}
	f.products[name] = p
	return p, nil
}

func (f *fakeStore) UpdateProductPrice(ctx context.Context, id uuid.UUID, price money.Amount) error {
	return nil
}

func (f *fakeStore) CreateDraftInvoice(ctx context.Context, inv domain.Invoice) (domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv.ID = uuid.New()
	inv.Status = domain.InvoiceDraft
	f.invoices[inv.ID] = inv
	c := f.customers[inv.CustomerID]
	c.Balance = c.Balance.Add(inv.Total)
	f.customers[inv.CustomerID] = c
	return inv, nil
}

func (f *fakeStore) ConfirmInvoice(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return notFoundErr("INVOICE_NOT_FOUND")
	}
	inv.Status = domain.InvoiceConfirmed
	f.invoices[id] = inv
	return nil
}

func (f *fakeStore) CancelInvoice(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return notFoundErr("INVOICE_NOT_FOUND")
	}
	inv.Status = domain.InvoiceCancelled
	f.invoices[id] = inv
	c := f.customers[inv.CustomerID]
	c.Balance = c.Balance.Sub(inv.Total)
	f.customers[inv.CustomerID] = c
	return nil
}

func (f *fakeStore) CancelAllDraftInvoices(ctx context.Context, customerID uuid.UUID) (int, error) {
	f.mu.Lock()
	ids := make([]uuid.UUID, 0)
	for id, inv := range f.invoices {
		if inv.CustomerID == customerID && inv.Status == domain.InvoiceDraft {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()
	for _, id := range ids {
		if err := f.CancelInvoice(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (f *fakeStore) InvoiceByID(ctx context.Context, id uuid.UUID) (domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return domain.Invoice{}, notFoundErr("INVOICE_NOT_FOUND")
	}
	return inv, nil
}

func (f *fakeStore) RecordPayment(ctx context.Context, customerID uuid.UUID, amount money.Amount, mode domain.PaymentMode, description string) (domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.customers[customerID]
	c.Balance = c.Balance.Sub(amount)
	f.customers[customerID] = c
	entry := domain.LedgerEntry{ID: uuid.New(), CustomerID: customerID, Type: domain.LedgerCredit, Amount: amount, PaymentMode: mode, Description: description}
	f.ledger = append(f.ledger, entry)
	return entry, nil
}

func (f *fakeStore) AddCredit(ctx context.Context, customerID uuid.UUID, amount money.Amount, description string) (domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.customers[customerID]
	c.Balance = c.Balance.Add(amount)
	f.customers[customerID] = c
	entry := domain.LedgerEntry{ID: uuid.New(), CustomerID: customerID, Type: domain.LedgerDebit, Amount: amount, Description: description}
	f.ledger = append(f.ledger, entry)
	return entry, nil
}

func (f *fakeStore) LedgerHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeStore) DailySummaryRange(ctx context.Context, start, end time.Time) (postgres.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s postgres.DailySummary
	for _, inv := range f.invoices {
		if inv.Status != domain.InvoiceCancelled {
			s.InvoiceCount++
			s.InvoiceTotal = s.InvoiceTotal.Add(inv.Total)
		}
	}
	for _, e := range f.ledger {
		if e.Type == domain.LedgerCredit {
			s.PaymentsTotal = s.PaymentsTotal.Add(e.Amount)
		} else if e.Type == domain.LedgerDebit {
			s.CreditGiven = s.CreditGiven.Add(e.Amount)
		}
	}
	return s, nil
}

func (f *fakeStore) CreateReminder(ctx context.Context, r domain.Reminder) (domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	f.reminders[r.ID] = r
	return r, nil
}

func (f *fakeStore) CancelReminder(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		return nil
	}
	r.Status = domain.ReminderCancelled
	f.reminders[id] = r
	return nil
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return nil
}

func (f *fakeStore) ReminderByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		return domain.Reminder{}, notFoundErr("REMINDER_NOT_FOUND")
	}
	return r, nil
}

func (f *fakeStore) RemindersForCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reminder
	for _, r := range f.reminders {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func notFoundErr(code string) error {
	return apperr.New(apperr.NotFound, code, code)
}

// fakeCache is an in-memory stand-in for [Cache].
type fakeCache struct {
	mu   sync.Mutex
	data map[string]any
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]any)} }

func (c *fakeCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *domain.OTPChallenge:
		*d = v.(domain.OTPChallenge)
	}
	return true, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakeMailer records every send for assertions.
type fakeMailer struct {
	otpSentTo   string
	otpCode     string
	invoicesSent []string
}

func (m *fakeMailer) SendOTP(ctx context.Context, to, code string) error {
	m.otpSentTo = to
	m.otpCode = code
	return nil
}

func (m *fakeMailer) SendInvoiceEmail(ctx context.Context, to string, inv domain.Invoice) error {
	m.invoicesSent = append(m.invoicesSent, to)
	return nil
}
