package response

import (
	"fmt"

	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/intent"
)

// templateFunc renders a speakable utterance in lang directly from a
// successful [engine.ExecutionResult]'s Data, with no LLM call.
type templateFunc func(lang string, result engine.ExecutionResult) string

// fastTemplates covers the fixed set of intents with stable result shapes
// named in the response generator's fast path: CHECK_BALANCE,
// RECORD_PAYMENT, ADD_CREDIT, CHECK_STOCK, LIST_CUSTOMER_BALANCES, and a
// handful of others whose Data shape is equally stable turn to turn.
var fastTemplates = map[intent.Name]templateFunc{
	intent.CheckBalance:          checkBalanceTemplate,
	intent.RecordPayment:         recordPaymentTemplate,
	intent.AddCredit:             addCreditTemplate,
	intent.CheckStock:            checkStockTemplate,
	intent.ListCustomerBalances:  listCustomerBalancesTemplate,
	intent.TotalPendingAmount:    totalPendingAmountTemplate,
	intent.ConfirmInvoice:        confirmInvoiceTemplate,
	intent.CancelInvoice:         cancelInvoiceTemplate,
	intent.ToggleGST:             toggleGSTTemplate,
}

// fastTemplate looks up name's template, if the fast path covers it.
func fastTemplate(name intent.Name) (templateFunc, bool) {
	t, ok := fastTemplates[name]
	return t, ok
}

func rupeeString(v any) string {
	f, _ := v.(float64)
	neg := f < 0
	if neg {
		f = -f
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s₹%.2f", sign, f)
}

func stringField(result engine.ExecutionResult, key string) string {
	s, _ := result.Data[key].(string)
	return s
}

func intField(result engine.ExecutionResult, key string) int {
	switch v := result.Data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func checkBalanceTemplate(lang string, result engine.ExecutionResult) string {
	balance := rupeeString(result.Data["balance"])
	if lang == "hi" {
		return fmt.Sprintf("Balance hai %s.", balance)
	}
	return fmt.Sprintf("Balance is %s.", balance)
}

func recordPaymentTemplate(lang string, result engine.ExecutionResult) string {
	customer := stringField(result, "customer")
	balance := rupeeString(result.Data["balance"])
	if lang == "hi" {
		return fmt.Sprintf("%s ka payment ho gaya. Naya balance %s hai.", customer, balance)
	}
	return fmt.Sprintf("Payment recorded for %s. New balance %s.", customer, balance)
}

func addCreditTemplate(lang string, result engine.ExecutionResult) string {
	customer := stringField(result, "customer")
	amount := rupeeString(result.Data["amount"])
	balance := rupeeString(result.Data["balance"])
	if lang == "hi" {
		return fmt.Sprintf("%s ko %s add kar diya. Total %s hai.", customer, amount, balance)
	}
	return fmt.Sprintf("Added %s to %s. Total %s.", amount, customer, balance)
}

func checkStockTemplate(lang string, result engine.ExecutionResult) string {
	name := stringField(result, "name")
	stock := intField(result, "stock")
	if lang == "hi" {
		return fmt.Sprintf("%s: %d stock mein hai.", name, stock)
	}
	return fmt.Sprintf("%s: %d in stock.", name, stock)
}

func listCustomerBalancesTemplate(lang string, result engine.ExecutionResult) string {
	customers, _ := result.Data["customers"].([]map[string]any)
	if lang == "hi" {
		return fmt.Sprintf("%d customer ka balance pending hai.", len(customers))
	}
	return fmt.Sprintf("%d customer(s) have a pending balance.", len(customers))
}

func totalPendingAmountTemplate(lang string, result engine.ExecutionResult) string {
	total := rupeeString(result.Data["total"])
	if lang == "hi" {
		return fmt.Sprintf("Total pending amount %s hai.", total)
	}
	return fmt.Sprintf("Total pending amount is %s.", total)
}

func confirmInvoiceTemplate(lang string, result engine.ExecutionResult) string {
	if lang == "hi" {
		return "Invoice confirm ho gaya."
	}
	return "Invoice confirmed."
}

func cancelInvoiceTemplate(lang string, result engine.ExecutionResult) string {
	if count := intField(result, "count"); count > 0 {
		if lang == "hi" {
			return fmt.Sprintf("%d invoice cancel ho gaye.", count)
		}
		return fmt.Sprintf("%d invoice(s) cancelled.", count)
	}
	if lang == "hi" {
		return "Invoice cancel ho gaya."
	}
	return "Invoice cancelled."
}

func toggleGSTTemplate(lang string, result engine.ExecutionResult) string {
	enabled, _ := result.Data["gst"].(bool)
	status := map[bool]string{true: "on", false: "off"}[enabled]
	if lang == "hi" {
		return fmt.Sprintf("Naye invoice ke liye GST %s hai.", status)
	}
	return fmt.Sprintf("GST is now %s for new invoices.", status)
}
