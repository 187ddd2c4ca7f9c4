// Package response turns a business-engine [engine.ExecutionResult] into a
// speakable utterance in the session's language, then hands it to a TTS
// adapter for synthesis.
//
// Two paths exist. The fast path covers a fixed set of intents with stable
// result shapes (CHECK_BALANCE, RECORD_PAYMENT, ADD_CREDIT, CHECK_STOCK,
// LIST_CUSTOMER_BALANCES, and others registered in [templates]): a
// language-keyed template renders the utterance directly from
// ExecutionResult.Data with no LLM round trip, targeting a few
// milliseconds. The slow path covers everything else: a chat-completion
// call with a brevity-enforcing system prompt streams the utterance one
// sentence at a time through a caller-supplied callback, so playback can
// begin before the full string is known.
//
// Grounded on the teacher's internal/engine/cascade sentence-boundary
// streaming cascade (fast-model opener stitched to a slower continuation),
// generalized here from "fast model opener, slow model continuation" to
// "fast template opener, slow LLM continuation when no template fits".
package response

import (
	"context"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/intent"
	"github.com/shopvoice/shopvoice/pkg/provider/llm"
)

// fallbackUtterance is returned whenever generation itself cannot produce
// a reply (LLM timeout, unsupported language) rather than leaving the
// caller without any text to speak.
const fallbackUtterance = "Theek hai."

// Chunk is one piece of a streamed utterance delivered to a [ChunkFunc].
// Final is true on the last chunk of the utterance, mirroring the
// voice:response:chunk / voice:response framing at the session boundary.
type Chunk struct {
	Text  string
	Final bool
}

// ChunkFunc receives each streamed fragment of a slow-path utterance as it
// becomes available. Implementations should not block for long, since the
// generator is on the hot path between the LLM stream and TTS playback.
type ChunkFunc func(Chunk)

// Generator renders execution results into speakable text. One instance
// serves every session; it holds no per-session state.
type Generator struct {
	llm llm.Provider

	// maxSentences bounds the slow path's brevity instruction: 1 sentence
	// for simple results, 2 only when the reply ends in a follow-up
	// question. Defaults to 2.
	maxSentences int
}

// Option configures a [Generator] at construction time.
type Option func(*Generator)

// WithLLM supplies the chat-completion provider used by the slow path.
// Without one, Generate falls back to the fixed apology text for any
// intent the fast path doesn't cover.
func WithLLM(p llm.Provider) Option {
	return func(g *Generator) { g.llm = p }
}

// WithMaxSentences overrides the slow path's brevity cap. Default is 2.
func WithMaxSentences(n int) Option {
	return func(g *Generator) { g.maxSentences = n }
}

// New constructs a Generator. Options are applied after defaults.
func New(opts ...Option) *Generator {
	g := &Generator{maxSentences: 2}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate renders result as a speakable utterance in the given language
// ("hi" or "en"), invoking onChunk as fragments become available.
// onChunk is always called at least once, with the final chunk's Final
// field set to true.
//
// Business failures never surface the raw error message; the fast-path
// apology templates ([apologyFor]) translate [apperr.Kind] into a
// user-friendly sentence, per the propagation policy that business
// failures reach the client as normal responses, not error frames.
func (g *Generator) Generate(ctx context.Context, lang string, name intent.Name, result engine.ExecutionResult, onChunk ChunkFunc) (string, error) {
	if onChunk == nil {
		onChunk = func(Chunk) {}
	}

	if !result.Success {
		text := apologyFor(lang, result.Err)
		onChunk(Chunk{Text: text, Final: true})
		return text, nil
	}

	if tmpl, ok := fastTemplate(name); ok {
		text := tmpl(lang, result)
		onChunk(Chunk{Text: text, Final: true})
		return text, nil
	}

	return g.slowPath(ctx, lang, result, onChunk)
}

// slowPath asks the LLM to paraphrase result.Message under a brevity cap,
// streaming sentence-sized fragments to onChunk as they arrive. On any
// failure to start or complete the stream it falls back to the fixed
// apology text rather than leaving the session without a reply.
func (g *Generator) slowPath(ctx context.Context, lang string, result engine.ExecutionResult, onChunk ChunkFunc) (string, error) {
	if g.llm == nil {
		onChunk(Chunk{Text: fallbackUtterance, Final: true})
		return fallbackUtterance, nil
	}

	req := llm.CompletionRequest{
		SystemPrompt: brevityPrompt(lang, g.maxSentences),
		Messages: []llm.Message{
			{Role: "user", Content: result.Message},
		},
		Temperature: 0.2,
	}

	ch, err := g.llm.StreamCompletion(ctx, req)
	if err != nil {
		onChunk(Chunk{Text: fallbackUtterance, Final: true})
		return fallbackUtterance, nil
	}

	full, ok := forwardSentences(ctx, ch, onChunk)
	if !ok || full == "" {
		onChunk(Chunk{Text: fallbackUtterance, Final: true})
		return fallbackUtterance, nil
	}
	return full, nil
}

// brevityPrompt builds the slow path's language-specific system prompt,
// enforcing the 1-sentence-for-simple-results / 2-sentences-only-for-a-
// follow-up rule and instructing the model not to pad with filler endings.
func brevityPrompt(lang string, maxSentences int) string {
	base := fmt.Sprintf(
		"You rephrase a shopkeeper assistant's result into at most %d short sentence(s). "+
			"Use 1 sentence for a simple result; use a 2nd sentence only to ask a necessary "+
			"follow-up question. Never add filler greetings or closing remarks. "+
			"Keep customer names, product names, and phone numbers in Latin script. "+
			"Render monetary amounts with the rupee symbol, e.g. ₹500.", maxSentences)
	if lang == "hi" {
		return base + " Respond in Hindi (Devanagari script), mixing in Latin-script " +
			"names and numbers where natural."
	}
	return base + " Respond in English, optionally mixing in common Hindi words " +
		"the way a Hinglish-speaking shopkeeper would."
}
