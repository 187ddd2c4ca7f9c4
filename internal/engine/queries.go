package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopvoice/shopvoice/internal/intent"
)

func (e *Engine) handleCheckBalance(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("%s's balance is %s.", customer.Name, customer.Balance.String()),
		map[string]any{"customerId": customer.ID.String(), "balance": customer.Balance.Rupees()})
}

// digitWordsEnglish and digitWordsHindi render a single digit as its
// spoken word, for GET_CUSTOMER_INFO's TTS-friendly phone rendering.
var digitWordsEnglish = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
var digitWordsHindi = []string{"shunya", "ek", "do", "teen", "char", "paanch", "chhe", "saat", "aath", "nau"}

func spokenPhoneWords(phone, language string) string {
	words := digitWordsEnglish
	if language == "hi" {
		words = digitWordsHindi
	}
	out := make([]string, 0, len(phone))
	for _, r := range phone {
		if r < '0' || r > '9' {
			continue
		}
		out = append(out, words[r-'0'])
	}
	return strings.Join(out, " ")
}

func (e *Engine) handleGetCustomerInfo(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	spoken := spokenPhoneWords(customer.Phone, sess.Language)
	return ok(fmt.Sprintf("%s, phone %s, balance %s.", customer.Name, customer.Phone, customer.Balance.String()),
		map[string]any{
			"customerId":  customer.ID.String(),
			"name":        customer.Name,
			"phone":       customer.Phone,
			"phoneSpoken": spoken,
			"balance":     customer.Balance.Rupees(),
			"email":       customer.Email,
		})
}

func (e *Engine) handleListCustomerBalances(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customers, err := e.store.ListCustomerBalances(ctx)
	if err != nil {
		return fail(asAppErr(err))
	}
	rows := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, map[string]any{"customerId": c.ID.String(), "name": c.Name, "balance": c.Balance.Rupees()})
	}
	return ok(fmt.Sprintf("%d customer(s) have a pending balance.", len(customers)), map[string]any{"customers": rows})
}

func (e *Engine) handleTotalPendingAmount(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	total, err := e.store.TotalPendingAmount(ctx)
	if err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("Total pending amount is %s.", total.String()), map[string]any{"total": total.Rupees()})
}

func (e *Engine) handleDailySummary(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	now := e.now().In(sess.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, sess.Location)
	end := start.Add(24 * time.Hour)

	summary, err := e.store.DailySummaryRange(ctx, start, end)
	if err != nil {
		return fail(asAppErr(err))
	}
	pending := summary.InvoiceTotal.Sub(summary.PaymentsTotal)
	return ok(fmt.Sprintf("Today: %d invoices totalling %s, payments %s, credit given %s, %d new customers.",
		summary.InvoiceCount, summary.InvoiceTotal.String(), summary.PaymentsTotal.String(), summary.CreditGiven.String(), summary.NewCustomers),
		map[string]any{
			"invoiceCount":  summary.InvoiceCount,
			"invoiceTotal":  summary.InvoiceTotal.Rupees(),
			"paymentsTotal": summary.PaymentsTotal.Rupees(),
			"creditGiven":   summary.CreditGiven.Rupees(),
			"pendingAmount": pending.Rupees(),
			"newCustomers":  summary.NewCustomers,
		})
}
