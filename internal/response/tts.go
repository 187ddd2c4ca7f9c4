package response

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/shopvoice/shopvoice/pkg/provider/tts"
	"github.com/shopvoice/shopvoice/pkg/types"
)

// TTSAdapter wraps a [tts.Provider] with the single-string convenience
// entry point and stream/transport utilities the session manager needs.
// Directly grounded on the teacher's pkg/provider/tts.Provider interface
// shape (a text channel in, an audio byte channel out).
type TTSAdapter struct {
	provider tts.Provider
}

// NewTTSAdapter wraps provider. A nil provider means the client has
// selected in-browser speech synthesis; GenerateSpeechStream returns an
// error in that case so the caller can skip synthesis and let the client
// play the text locally, per the fast-path/slow-path contract.
func NewTTSAdapter(provider tts.Provider) *TTSAdapter {
	return &TTSAdapter{provider: provider}
}

// GenerateSpeechStream synthesizes text in voice and returns a channel of
// raw PCM audio chunks as they become available. text is delivered to the
// provider as a single fragment; callers that already have a streaming
// source of text (the slow path's sentence-by-sentence output) should
// drive the provider's SynthesizeStream directly instead.
func (a *TTSAdapter) GenerateSpeechStream(ctx context.Context, text string, voice types.VoiceProfile) (<-chan []byte, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("response: no TTS provider configured (client-side synthesis expected)")
	}
	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)
	return a.provider.SynthesizeStream(ctx, textCh, voice)
}

// StreamToBuffer drains an audio channel into a single byte buffer. Use
// when the transport needs one complete payload rather than a stream of
// frames (e.g. a single voice:tts-stream message).
func StreamToBuffer(ch <-chan []byte) []byte {
	var buf []byte
	for frame := range ch {
		buf = append(buf, frame...)
	}
	return buf
}

// BufferToBase64 encodes buf for inclusion in a JSON text frame, per the
// voice:tts-stream message's {audio: base64, format, provider} shape.
func BufferToBase64(buf []byte) string {
	return base64.StdEncoding.EncodeToString(buf)
}
