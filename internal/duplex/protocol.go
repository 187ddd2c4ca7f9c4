// Package duplex is the Session Manager (SPEC_FULL §4.1): it accepts the
// external websocket duplex protocol (§6), owns the process-wide map of
// live sessions, and is the only component that writes to a client.
//
// It is a sibling of internal/session rather than a file inside it —
// internal/engine.Session already depends on internal/session.Memory, so a
// connection-handling type here that needed internal/engine (to dispatch
// approved intents) could not also live inside internal/session without
// an import cycle. DESIGN.md records this as the one deliberate departure
// from the reviewer's suggested file path.
//
// Grounded on the teacher's cmd/glyphoxa/main.go (process wiring and
// graceful-shutdown shape), internal/app/session_manager.go (one manager
// struct owning a mutex-guarded set of live sessions with Start/Stop
// lifecycle methods), and pkg/provider/stt/deepgram's readLoop/writeLoop
// goroutine pair (the same split is reused here, server-side, over
// github.com/coder/websocket).
package duplex

import "encoding/json"

// Server-to-client message types (SPEC_FULL §4.1, §6).
const (
	TypeVoiceStart         = "voice:start"
	TypeVoiceTranscript    = "voice:transcript"
	TypeVoiceThinking      = "voice:thinking"
	TypeVoiceIntent        = "voice:intent"
	TypeVoiceResponseChunk = "voice:response:chunk"
	TypeVoiceResponse      = "voice:response"
	TypeVoiceTTSStream     = "voice:tts-stream"
	TypeVoiceConfirmNeeded = "voice:confirm_needed"
	TypeVoiceLanguageChanged = "voice:language_changed"
	TypeRecordingStarted   = "recording:started"
	TypeRecordingStopped   = "recording:stopped"
	TypeError              = "error"
)

// Client-to-server message types.
const (
	TypeClientVoiceStart  = "voice:start"
	TypeClientVoiceStop   = "voice:stop"
	TypeClientFinal       = "voice:final"
	TypeClientRecordStart = "recording:start"
	TypeClientRecordStop  = "recording:stop"
)

// serverMessage is the JSON envelope for every server-to-client text frame:
// {type, data?, timestamp} per SPEC_FULL §6.
type serverMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// clientMessage is the JSON envelope for every client-to-server text frame.
// Data is left raw since its shape depends on Type.
type clientMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// finalTranscriptBody is the payload of a client-sent voice:final message —
// the manual testing path that bypasses STT and audio frames entirely by
// supplying the final transcript text directly.
type finalTranscriptBody struct {
	Text string `json:"text"`
}
