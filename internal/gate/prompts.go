package gate

import (
	"fmt"

	"github.com/shopvoice/shopvoice/internal/intent"
)

// confirmQuestionSuffix is the only part of a confirmation question that
// is translated; the customer name and amount stay in Latin script.
var confirmQuestionSuffix = map[string]string{
	"hi": "haan ya nahi?",
	"en": "yes or no?",
}

var repeatPrompts = map[string]string{
	"hi": "Maaf kijiye, phir se boliye.",
	"en": "Sorry, could you repeat that?",
}

var cancelledPrompts = map[string]string{
	"hi": "Theek hai, cancel kar diya.",
	"en": "Okay, cancelled.",
}

var yesNoPrompts = map[string]string{
	"hi": "Kripya haan ya nahi boliye.",
	"en": "Please say yes or no.",
}

func localized(table map[string]string, language string) string {
	if v, ok := table[language]; ok {
		return v
	}
	return table["en"]
}

func repeatPrompt(language string) string {
	return localized(repeatPrompts, language)
}

func cancelledPrompt(language string) string {
	return localized(cancelledPrompts, language)
}

func yesNoPrompt(language string) string {
	return localized(yesNoPrompts, language)
}

// confirmationQuestion builds a confirmation question for in, keeping the
// customer name and amount in Latin script and translating only the
// yes/no suffix.
func confirmationQuestion(in intent.Intent, language string) string {
	suffix := localized(confirmQuestionSuffix, language)
	customer, _ := in.Entities["customer"].(string)
	amount, hasAmount := in.Entities["amount"].(float64)

	switch in.Name {
	case intent.DeleteCustomerData:
		return fmt.Sprintf("%s ka saara data delete karna hai, %s", orPlaceholder(customer, "is customer"), suffix)
	case intent.CancelInvoice:
		return fmt.Sprintf("Invoice cancel karna hai, %s", suffix)
	case intent.CancelReminder:
		return fmt.Sprintf("Reminder cancel karna hai, %s", suffix)
	default:
		if hasAmount && customer != "" {
			return fmt.Sprintf("%s ke liye %.0f rupaye, %s", customer, amount, suffix)
		}
		if hasAmount {
			return fmt.Sprintf("%.0f rupaye, %s", amount, suffix)
		}
		return fmt.Sprintf("Confirm karein, %s", suffix)
	}
}

func orPlaceholder(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
