package response

import (
	"context"
	"strings"

	"github.com/shopvoice/shopvoice/pkg/provider/llm"
)

// forwardSentences reads token chunks from ch, accumulates them, and
// invokes onChunk once per complete sentence so TTS can start on each
// fragment without waiting for the rest of the stream. Returns the full
// accumulated text and whether the stream completed without the caller's
// context being cancelled first.
//
// Adapted from the teacher's cascade.forwardSentences sentence-boundary
// flushing idea, generalized from forwarding a second model's continuation
// into a single LLM stream's entire output.
func forwardSentences(ctx context.Context, ch <-chan llm.Chunk, onChunk ChunkFunc) (full string, completed bool) {
	var buf, all strings.Builder
	for {
		select {
		case <-ctx.Done():
			return all.String(), false
		case chunk, ok := <-ch:
			if !ok {
				flushRemainder(&buf, onChunk)
				return all.String(), true
			}
			if chunk.Text != "" {
				buf.WriteString(chunk.Text)
				all.WriteString(chunk.Text)
			}

			for {
				idx := firstSentenceBoundary(buf.String())
				if idx < 0 {
					break
				}
				sentence := buf.String()[:idx+1]
				rest := strings.TrimLeft(buf.String()[idx+1:], " \t\n\r")
				buf.Reset()
				buf.WriteString(rest)
				onChunk(Chunk{Text: sentence, Final: false})
			}

			if chunk.FinishReason != "" {
				flushRemainder(&buf, onChunk)
				return all.String(), true
			}
		}
	}
}

// flushRemainder emits any partial sentence left in buf as the stream's
// final chunk, marking it Final so the caller knows no more text follows.
func flushRemainder(buf *strings.Builder, onChunk ChunkFunc) {
	onChunk(Chunk{Text: buf.String(), Final: true})
}

// firstSentenceBoundary returns the index of the first '.', '!', or '?'
// immediately followed by whitespace, or -1 if no such boundary exists.
func firstSentenceBoundary(s string) int {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			switch s[i+1] {
			case ' ', '\n', '\r', '\t':
				return i
			}
		}
	}
	return -1
}
