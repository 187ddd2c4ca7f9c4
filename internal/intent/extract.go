package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopvoice/shopvoice/internal/translit"
	"github.com/shopvoice/shopvoice/pkg/provider/llm"
	"github.com/shopvoice/shopvoice/pkg/types"
)

// Intent is the structured result of [Extract]: the recognized intent, a
// normalized transcript, free-form entities, and the model's confidence.
type Intent struct {
	Normalized string
	Name       Name
	Entities   map[string]any
	Confidence float64
}

// rawIntent is the shape the model is asked to return; Extract decodes into
// this before running post-processing.
type rawIntent struct {
	Normalized string         `json:"normalized"`
	Intent     string         `json:"intent"`
	Entities   map[string]any `json:"entities"`
	Confidence float64        `json:"confidence"`
}

// unknownIntent is the extractor's mandated worst-case return: a failed or
// unparseable call must never surface as an error the caller needs to
// handle specially, it must surface as low-confidence UNKNOWN.
var unknownIntent = Intent{Name: Unknown, Entities: map[string]any{}, Confidence: 0}

// Extract calls provider with a fixed system prompt plus the given
// conversation context and runs the full post-processing rule set over its
// response. It never returns an error: any failure (provider error,
// malformed JSON, missing fields) degrades to [unknownIntent].
func Extract(ctx context.Context, provider llm.Provider, contextMessages []types.Message, utterance string) Intent {
	messages := append(append([]types.Message{}, contextMessages...), types.Message{
		Role:    "user",
		Content: utterance,
	})

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  0,
	})
	if err != nil || resp == nil {
		return unknownIntent
	}

	raw, ok := extractJSONObject(resp.Content)
	if !ok {
		return unknownIntent
	}

	var parsed rawIntent
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return unknownIntent
	}

	return postprocess(parsed, utterance)
}

// extractJSONObject finds the first balanced {...} span in s, tolerating
// surrounding prose the model was told not to add but sometimes does
// anyway.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// pronominalBackReference matches the Hindi/Hinglish back-reference
// patterns that mean "the customer we were just talking about".
var pronominalBackReference = regexp.MustCompile(`(?i)\b(uska|uski|iska|iski|usi|pichla|pichhla|same customer|wahi customer)\b`)

// spokenDigits maps spoken Hindi/English digit words to their numeral, for
// parsing a phone number dictated one digit at a time.
var spokenDigits = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ek": "1", "do": "2", "teen": "3", "char": "4", "chaar": "4",
	"paanch": "5", "panch": "5", "chhe": "6", "che": "6", "saat": "7",
	"sat": "7", "aath": "8", "at": "8", "nau": "9", "shunya": "0",
}

func postprocess(raw rawIntent, utterance string) Intent {
	result := Intent{
		Normalized: raw.Normalized,
		Entities:   raw.Entities,
		Confidence: raw.Confidence,
	}
	if result.Normalized == "" {
		result.Normalized = utterance
	}
	if result.Entities == nil {
		result.Entities = map[string]any{}
	}

	name := Name(strings.ToUpper(strings.TrimSpace(raw.Intent)))
	if !name.Valid() {
		name = Unknown
	}
	result.Name = name

	for _, field := range []string{"customer", "name", "product"} {
		if v, ok := result.Entities[field].(string); ok && translit.HasDevanagari(v) {
			result.Entities[field] = translit.ToRoman(v)
		}
	}

	if phone, ok := result.Entities["phone"].(string); ok {
		if normalized := normalizeSpokenPhone(phone); normalized != "" {
			result.Entities["phone"] = normalized
		}
	}

	if amount, ok := result.Entities["amount"].(string); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(amount), 64); err == nil {
			result.Entities["amount"] = n
		}
	}

	if _, hasCustomer := result.Entities["customer"]; !hasCustomer {
		if name, ok := result.Entities["name"].(string); ok && name != "" {
			result.Entities["customer"] = name
		}
	}

	if pronominalBackReference.MatchString(utterance) {
		result.Entities["customerRef"] = "active"
	}

	return result
}

// normalizeSpokenPhone converts a phone number dictated as spoken digit
// words (English or Hindi) or already-numeric text into a bare digit
// string of 10-15 digits. Returns "" if the result falls outside that
// range, leaving the original value untouched.
func normalizeSpokenPhone(s string) string {
	var digits strings.Builder
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ",.")
		if d, ok := spokenDigits[word]; ok {
			digits.WriteString(d)
			continue
		}
		for _, r := range word {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
	}
	out := digits.String()
	if len(out) < 10 || len(out) > 15 {
		return ""
	}
	return out
}
