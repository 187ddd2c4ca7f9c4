package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/shopvoice/shopvoice/pkg/provider/llm"
	"github.com/shopvoice/shopvoice/pkg/provider/llm/mock"
)

func TestExtract_ParsesCleanJSON(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "rahul ka balance check karo", "intent": "check_balance", "entities": {"customer": "Rahul"}, "confidence": 0.92}`,
		},
	}

	got := Extract(context.Background(), p, nil, "rahul ka balance check karo")

	if got.Name != CheckBalance {
		t.Fatalf("Name = %v, want %v", got.Name, CheckBalance)
	}
	if got.Confidence != 0.92 {
		t.Fatalf("Confidence = %v, want 0.92", got.Confidence)
	}
	if got.Entities["customer"] != "Rahul" {
		t.Fatalf("Entities[customer] = %v, want Rahul", got.Entities["customer"])
	}
}

func TestExtract_ToleratesSurroundingProse(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "Sure, here is the result:\n" +
				`{"normalized": "bharat ko 500 add karo", "intent": "ADD_CREDIT", "entities": {}, "confidence": 0.8}` +
				"\nLet me know if you need anything else.",
		},
	}

	got := Extract(context.Background(), p, nil, "bharat ko 500 add karo")
	if got.Name != AddCredit {
		t.Fatalf("Name = %v, want %v", got.Name, AddCredit)
	}
}

func TestExtract_UnknownIntentOutsideVocabulary(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "what is the weather", "intent": "GET_WEATHER", "entities": {}, "confidence": 0.5}`,
		},
	}

	got := Extract(context.Background(), p, nil, "what is the weather")
	if got.Name != Unknown {
		t.Fatalf("Name = %v, want %v", got.Name, Unknown)
	}
}

func TestExtract_ProviderErrorDegradesToUnknown(t *testing.T) {
	p := &mock.Provider{CompleteErr: errors.New("provider unavailable")}

	got := Extract(context.Background(), p, nil, "rahul ka balance")
	if got.Name != Unknown || got.Confidence != 0 {
		t.Fatalf("got %+v, want unknown/zero-confidence", got)
	}
}

func TestExtract_MalformedJSONDegradesToUnknown(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "not json at all"},
	}

	got := Extract(context.Background(), p, nil, "rahul ka balance")
	if got.Name != Unknown {
		t.Fatalf("Name = %v, want %v", got.Name, Unknown)
	}
}

func TestExtract_DevanagariCustomerNameTransliterated(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "rahul ka balance", "intent": "CHECK_BALANCE", "entities": {"customer": "राहुल"}, "confidence": 0.9}`,
		},
	}

	got := Extract(context.Background(), p, nil, "राहुल का बैलेंस")
	if v, ok := got.Entities["customer"].(string); !ok || v == "राहुल" {
		t.Fatalf("expected transliteration, got %v", got.Entities["customer"])
	}
}

func TestExtract_SpokenPhoneDigitsNormalized(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "phone update karo", "intent": "UPDATE_CUSTOMER_PHONE", "entities": {"phone": "nau aath sat che panch char teen do ek shunya"}, "confidence": 0.85}`,
		},
	}

	got := Extract(context.Background(), p, nil, "phone update karo")
	phone, ok := got.Entities["phone"].(string)
	if !ok {
		t.Fatalf("expected phone entity to remain a string, got %T", got.Entities["phone"])
	}
	if phone != "9876543210" {
		t.Fatalf("phone = %q, want 9876543210", phone)
	}
}

func TestExtract_AmountCoercedToNumber(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "500 add karo", "intent": "ADD_CREDIT", "entities": {"amount": "500"}, "confidence": 0.9}`,
		},
	}

	got := Extract(context.Background(), p, nil, "500 add karo")
	amount, ok := got.Entities["amount"].(float64)
	if !ok {
		t.Fatalf("expected amount to be coerced to float64, got %T", got.Entities["amount"])
	}
	if amount != 500 {
		t.Fatalf("amount = %v, want 500", amount)
	}
}

func TestExtract_CustomerFilledFromName(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "rahul ka balance", "intent": "CHECK_BALANCE", "entities": {"name": "Rahul"}, "confidence": 0.9}`,
		},
	}

	got := Extract(context.Background(), p, nil, "rahul ka balance")
	if got.Entities["customer"] != "Rahul" {
		t.Fatalf("Entities[customer] = %v, want Rahul", got.Entities["customer"])
	}
}

func TestExtract_PronominalBackReferenceSetsActiveCustomerRef(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "uska balance check karo", "intent": "CHECK_BALANCE", "entities": {}, "confidence": 0.8}`,
		},
	}

	got := Extract(context.Background(), p, nil, "uska balance check karo")
	if got.Entities["customerRef"] != "active" {
		t.Fatalf("Entities[customerRef] = %v, want active", got.Entities["customerRef"])
	}
}

func TestExtract_NoBackReferenceLeavesCustomerRefUnset(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"normalized": "rahul ka balance", "intent": "CHECK_BALANCE", "entities": {}, "confidence": 0.8}`,
		},
	}

	got := Extract(context.Background(), p, nil, "rahul ka balance")
	if _, ok := got.Entities["customerRef"]; ok {
		t.Fatalf("did not expect customerRef to be set")
	}
}

func TestName_Valid(t *testing.T) {
	cases := []struct {
		name Name
		want bool
	}{
		{CheckBalance, true},
		{Unknown, true},
		{Name("NOT_A_REAL_INTENT"), false},
	}
	for _, tc := range cases {
		if got := tc.name.Valid(); got != tc.want {
			t.Errorf("Name(%q).Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
