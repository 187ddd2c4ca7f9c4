package response

import (
	"context"
	"testing"

	ttsmock "github.com/shopvoice/shopvoice/pkg/provider/tts/mock"
	"github.com/shopvoice/shopvoice/pkg/types"
)

func TestTTSAdapter_GenerateSpeechStream(t *testing.T) {
	mockTTS := &ttsmock.Provider{SynthesizeChunks: [][]byte{[]byte("abc"), []byte("def")}}
	adapter := NewTTSAdapter(mockTTS)

	ch, err := adapter.GenerateSpeechStream(context.Background(), "Balance is ₹500.", types.VoiceProfile{ID: "v1"})
	if err != nil {
		t.Fatalf("GenerateSpeechStream: %v", err)
	}
	buf := StreamToBuffer(ch)
	if string(buf) != "abcdef" {
		t.Fatalf("buf = %q", buf)
	}
	if got := BufferToBase64(buf); got == "" {
		t.Fatal("expected non-empty base64 string")
	}
}

func TestTTSAdapter_NilProviderErrors(t *testing.T) {
	adapter := NewTTSAdapter(nil)
	if _, err := adapter.GenerateSpeechStream(context.Background(), "hi", types.VoiceProfile{}); err == nil {
		t.Fatal("expected error for client-side synthesis fallback")
	}
}
