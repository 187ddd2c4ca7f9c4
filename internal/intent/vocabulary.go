// Package intent turns a normalized spoken utterance into a structured
// [Intent] by calling an LLM chat-completion provider with a fixed system
// prompt enumerating the closed intent vocabulary, then runs a set of
// deterministic post-processing rules over its JSON response so the
// result is reliable regardless of how literally the model followed
// instructions.
//
// Grounded on the teacher's pkg/provider/llm.Provider interface
// (Complete/StreamCompletion) with the "tolerate embedded JSON" and
// "worst-case UNKNOWN" rules layered on top, in the style of the
// teacher's now-removed internal/transcript/llmcorrect post-processing
// package (a single-purpose function chain over one LLM call's output).
package intent

// Name is one member of the closed intent vocabulary. Any value produced
// by the LLM outside this set is coerced to [Unknown] by [Extract].
type Name string

const (
	CreateInvoice        Name = "CREATE_INVOICE"
	ConfirmInvoice        Name = "CONFIRM_INVOICE"
	ShowPendingInvoice    Name = "SHOW_PENDING_INVOICE"
	ToggleGST             Name = "TOGGLE_GST"
	CancelInvoice         Name = "CANCEL_INVOICE"
	CreateReminder        Name = "CREATE_REMINDER"
	CancelReminder        Name = "CANCEL_REMINDER"
	ModifyReminder        Name = "MODIFY_REMINDER"
	ListReminders         Name = "LIST_REMINDERS"
	RecordPayment         Name = "RECORD_PAYMENT"
	AddCredit             Name = "ADD_CREDIT"
	CheckBalance          Name = "CHECK_BALANCE"
	CheckStock            Name = "CHECK_STOCK"
	CreateCustomer        Name = "CREATE_CUSTOMER"
	UpdateCustomer        Name = "UPDATE_CUSTOMER"
	UpdateCustomerPhone   Name = "UPDATE_CUSTOMER_PHONE"
	GetCustomerInfo       Name = "GET_CUSTOMER_INFO"
	DeleteCustomerData    Name = "DELETE_CUSTOMER_DATA"
	ListCustomerBalances  Name = "LIST_CUSTOMER_BALANCES"
	TotalPendingAmount    Name = "TOTAL_PENDING_AMOUNT"
	DailySummary          Name = "DAILY_SUMMARY"
	SwitchLanguage        Name = "SWITCH_LANGUAGE"
	ProvideEmail          Name = "PROVIDE_EMAIL"
	SendInvoice           Name = "SEND_INVOICE"
	StartRecording        Name = "START_RECORDING"
	StopRecording         Name = "STOP_RECORDING"
	Unknown               Name = "UNKNOWN"
)

// vocabulary is the closed set Extract validates the LLM's intent field
// against.
var vocabulary = map[Name]bool{
	CreateInvoice: true, ConfirmInvoice: true, ShowPendingInvoice: true,
	ToggleGST: true, CancelInvoice: true, CreateReminder: true,
	CancelReminder: true, ModifyReminder: true, ListReminders: true,
	RecordPayment: true, AddCredit: true, CheckBalance: true,
	CheckStock: true, CreateCustomer: true, UpdateCustomer: true,
	UpdateCustomerPhone: true, GetCustomerInfo: true, DeleteCustomerData: true,
	ListCustomerBalances: true, TotalPendingAmount: true, DailySummary: true,
	SwitchLanguage: true, ProvideEmail: true, SendInvoice: true,
	StartRecording: true, StopRecording: true, Unknown: true,
}

// Valid reports whether n is a member of the closed vocabulary.
func (n Name) Valid() bool {
	return vocabulary[n]
}

// systemPrompt enumerates the vocabulary and output contract for the
// extraction call. Built once; vocabulary changes require updating both
// this string and the constants above.
const systemPrompt = `You are the intent extractor for a shopkeeper's voice assistant. The
shopkeeper speaks Hindi, English, or Hinglish. Given the conversation context and the
shopkeeper's latest utterance, respond with a single JSON object and nothing else:

{"normalized": "<cleaned transcript>", "intent": "<ONE_OF_THE_VOCABULARY>", "entities": {...}, "confidence": <0..1>}

Intent vocabulary (respond with exactly one of these, or UNKNOWN if none fit):
CREATE_INVOICE, CONFIRM_INVOICE, SHOW_PENDING_INVOICE, TOGGLE_GST, CANCEL_INVOICE,
CREATE_REMINDER, CANCEL_REMINDER, MODIFY_REMINDER, LIST_REMINDERS, RECORD_PAYMENT,
ADD_CREDIT, CHECK_BALANCE, CHECK_STOCK, CREATE_CUSTOMER, UPDATE_CUSTOMER,
UPDATE_CUSTOMER_PHONE, GET_CUSTOMER_INFO, DELETE_CUSTOMER_DATA, LIST_CUSTOMER_BALANCES,
TOTAL_PENDING_AMOUNT, DAILY_SUMMARY, SWITCH_LANGUAGE, PROVIDE_EMAIL, SEND_INVOICE,
START_RECORDING, STOP_RECORDING, UNKNOWN.

Put any customer name, product name, amount, phone number, or payment mode mentioned
into entities using the keys: customer, name, product, amount, phone, paymentMode.

For CREATE_INVOICE, put the line items under entities.items as a JSON array of
{"product": "<name>", "quantity": <integer>, "unit": "<kg|piece|packet|litre, optional>"}.
For CANCEL_INVOICE and CANCEL_REMINDER, set entities.cancelAll to true only if the
shopkeeper clearly means every one, not just the most recent.`
