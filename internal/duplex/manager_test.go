package duplex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/money"
	"github.com/shopvoice/shopvoice/internal/response"
	"github.com/shopvoice/shopvoice/internal/store/postgres"
	"github.com/shopvoice/shopvoice/pkg/provider/llm"
	llmmock "github.com/shopvoice/shopvoice/pkg/provider/llm/mock"
)

// fakeStore is a minimal in-memory engine.Store covering exactly the
// methods CHECK_BALANCE dispatch touches; every other method panics if
// called, so an unexpectedly broader test fails loudly instead of
// silently reading zero values.
type fakeStore struct {
	customers map[uuid.UUID]domain.Customer
}

func newFakeStore(customers ...domain.Customer) *fakeStore {
	fs := &fakeStore{customers: make(map[uuid.UUID]domain.Customer)}
	for _, c := range customers {
		fs.customers[c.ID] = c
	}
	return fs
}

func (f *fakeStore) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	panic("not implemented")
}
func (f *fakeStore) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	panic("not implemented")
}
func (f *fakeStore) UpdateCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error {
	panic("not implemented")
}
func (f *fakeStore) CustomerByID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return domain.Customer{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", "no such customer")
	}
	return c, nil
}
func (f *fakeStore) CustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	panic("not implemented")
}
func (f *fakeStore) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeStore) ListCustomerBalances(ctx context.Context) ([]domain.Customer, error) {
	panic("not implemented")
}
func (f *fakeStore) TotalPendingAmount(ctx context.Context) (money.Amount, error) {
	panic("not implemented")
}
func (f *fakeStore) DeleteCustomerData(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}
func (f *fakeStore) ProductByName(ctx context.Context, name string) (domain.Product, error) {
	panic("not implemented")
}
func (f *fakeStore) EnsureProduct(ctx context.Context, name string, unit domain.Unit) (domain.Product, error) {
	panic("not implemented")
}
func (f *fakeStore) CreateDraftInvoice(ctx context.Context, inv domain.Invoice) (domain.Invoice, error) {
	panic("not implemented")
}
func (f *fakeStore) ConfirmInvoice(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}
func (f *fakeStore) CancelInvoice(ctx context.Context, id uuid.UUID) error { panic("not implemented") }
func (f *fakeStore) CancelAllDraftInvoices(ctx context.Context, customerID uuid.UUID) (int, error) {
	panic("not implemented")
}
func (f *fakeStore) InvoiceByID(ctx context.Context, id uuid.UUID) (domain.Invoice, error) {
	panic("not implemented")
}
func (f *fakeStore) RecordPayment(ctx context.Context, customerID uuid.UUID, amount money.Amount, mode domain.PaymentMode, description string) (domain.LedgerEntry, error) {
	panic("not implemented")
}
func (f *fakeStore) AddCredit(ctx context.Context, customerID uuid.UUID, amount money.Amount, description string) (domain.LedgerEntry, error) {
	panic("not implemented")
}
func (f *fakeStore) LedgerHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	panic("not implemented")
}
func (f *fakeStore) DailySummaryRange(ctx context.Context, start, end time.Time) (postgres.DailySummary, error) {
	panic("not implemented")
}
func (f *fakeStore) CreateReminder(ctx context.Context, r domain.Reminder) (domain.Reminder, error) {
	panic("not implemented")
}
func (f *fakeStore) CancelReminder(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}
func (f *fakeStore) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	panic("not implemented")
}
func (f *fakeStore) ReminderByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error) {
	panic("not implemented")
}
func (f *fakeStore) RemindersForCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Reminder, error) {
	panic("not implemented")
}

// fakeCache is a minimal in-memory engine.Cache; the CHECK_BALANCE path
// never touches it, so every method is a harmless no-op.
type fakeCache struct{}

func (fakeCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}
func (fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) { return false, nil }
func (fakeCache) Delete(ctx context.Context, key string) error                { return nil }

func newTestServer(t *testing.T, deps Deps) (*Manager, *httptest.Server) {
	t.Helper()
	manager := NewManager(deps)
	server := httptest.NewServer(http.HandlerFunc(manager.ServeHTTP))
	t.Cleanup(server.Close)
	return manager, server
}

func dialTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func writeClientMessage(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	msg := struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: msgType, Data: raw}
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestManager_AnnouncesOnAccept(t *testing.T) {
	deps := Deps{Engine: engine.New(newFakeStore(), fakeCache{}), Responses: response.New()}
	manager, server := newTestServer(t, deps)

	conn := dialTestServer(t, server)
	msg := readMessage(t, conn)
	if msg.Type != TypeVoiceStart {
		t.Fatalf("first message type = %q, want %q", msg.Type, TypeVoiceStart)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && manager.ActiveSessions() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if manager.ActiveSessions() != 1 {
		t.Fatalf("ActiveSessions() = %d, want 1", manager.ActiveSessions())
	}
}

func TestConn_CheckBalancePipelineOrdering(t *testing.T) {
	rahul := domain.Customer{ID: uuid.New(), Name: "Rahul", Balance: money.FromRupees(500)}
	store := newFakeStore(rahul)
	eng := engine.New(store, fakeCache{})

	llmProvider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized":"Rahul ka balance","intent":"CHECK_BALANCE","entities":{"customer":"Rahul"},"confidence":0.95}`,
		},
	}

	deps := Deps{
		Engine:    eng,
		Responses: response.New(),
		LLM:       llmProvider,
		Language:  "hi",
	}
	_, server := newTestServer(t, deps)
	conn := dialTestServer(t, server)

	start := readMessage(t, conn)
	if start.Type != TypeVoiceStart {
		t.Fatalf("expected voice:start, got %q", start.Type)
	}

	writeClientMessage(t, conn, TypeClientFinal, map[string]string{"text": "Rahul ka balance"})

	wantOrder := []string{TypeVoiceThinking, TypeVoiceIntent, TypeVoiceResponseChunk, TypeVoiceResponse}
	for _, want := range wantOrder {
		got := readMessage(t, conn)
		if got.Type != want {
			t.Fatalf("message order: got %q, want %q", got.Type, want)
		}
	}
}

func TestManager_ShutdownClosesConnectionsAndStopsAccepting(t *testing.T) {
	deps := Deps{Engine: engine.New(newFakeStore(), fakeCache{}), Responses: response.New()}
	manager, server := newTestServer(t, deps)

	conn := dialTestServer(t, server)
	readMessage(t, conn) // voice:start

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && manager.ActiveSessions() == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Shutdown(ctx, 100*time.Millisecond); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected read to fail after server shutdown, got nil error")
	}

	rejectCtx, rejectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rejectCancel()
	url := "ws" + server.URL[len("http"):]
	if _, _, err := websocket.Dial(rejectCtx, url, nil); err == nil {
		t.Fatal("expected dial after Shutdown to be rejected")
	}
}
