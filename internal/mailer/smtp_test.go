package mailer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

func testMailer() *Mailer {
	return New(Config{
		SMTPAddr:  "localhost:587",
		Username:  "shop@example.com",
		Password:  "secret",
		FromEmail: "shop@example.com",
	})
}

func TestCompose_ContainsSubjectAndBody(t *testing.T) {
	m := testMailer()
	msg, err := m.compose("rahul@example.com", "Payment reminder", "Your balance is due")
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if !bytes.Contains(msg, []byte("Payment reminder")) {
		t.Fatal("expected subject in composed message")
	}
	if !bytes.Contains(msg, []byte("Your balance is due")) {
		t.Fatal("expected body in composed message")
	}
	if !strings.Contains(string(msg), "rahul@example.com") {
		t.Fatal("expected recipient in composed message")
	}
}

func TestCompose_InvoiceBodyIncludesTotal(t *testing.T) {
	m := testMailer()
	inv := domain.Invoice{Total: money.FromRupees(250)}
	msg, err := m.compose("rahul@example.com", "Your invoice", "Invoice total: "+inv.Total.RupeeString())
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if !bytes.Contains(msg, []byte(inv.Total.RupeeString())) {
		t.Fatal("expected invoice total in composed message")
	}
}
