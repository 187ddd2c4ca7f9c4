package duplex

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/gate"
	"github.com/shopvoice/shopvoice/internal/intent"
	"github.com/shopvoice/shopvoice/internal/response"
	"github.com/shopvoice/shopvoice/pkg/provider/stt"
)

// outboundBuffer bounds the writeLoop's queue. The pipelineMu lock already
// keeps one session's message sequence in order; this only absorbs bursts
// against a slow client.
const outboundBuffer = 32

// Conn is one live duplex session: a websocket connection, its optional STT
// stream, its business-engine session state, and its confirmation gate. It
// is the only component that writes to its client (SPEC_FULL §4.1).
type Conn struct {
	id   string
	ws   *websocket.Conn
	deps Deps

	engineSess *engine.Session
	gate       *gate.Gate

	out       chan serverMessage
	done      chan struct{}
	closeOnce sync.Once

	// pipelineMu serializes intent processing for this session end to end
	// (SPEC_FULL §5): at most one final transcript is ever being resolved,
	// extracted, gated, dispatched, and spoken at a time.
	pipelineMu sync.Mutex

	sttMu     sync.Mutex
	sttHandle stt.SessionHandle
}

func newConn(id string, ws *websocket.Conn, deps Deps) *Conn {
	return &Conn{
		id:         id,
		ws:         ws,
		deps:       deps,
		engineSess: engine.NewSession(id, deps.Language, deps.Location),
		gate:       gate.New(),
		out:        make(chan serverMessage, outboundBuffer),
		done:       make(chan struct{}),
	}
}

// run drives the connection until the client disconnects or ctx is
// cancelled. The writeLoop starts first so the voice:start announcement is
// never dropped, then readLoop blocks until the connection ends.
func (c *Conn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx)
	}()

	c.announce()
	c.readLoop(ctx)

	c.closeClean("")
	cancel()
	wg.Wait()
}

// announce emits the voice:start capabilities message on accept, per
// SPEC_FULL §4.1.
func (c *Conn) announce() {
	c.send(TypeVoiceStart, map[string]any{
		"sessionId":    c.id,
		"sttAvailable": c.deps.STT != nil,
		"ttsAvailable": c.deps.TTS != nil,
		"sttProvider":  c.deps.STTName,
		"ttsProvider":  c.deps.TTSName,
		"llm":          c.deps.LLMName,
		"sampleRate":   c.deps.SampleRate,
		"language":     c.engineSess.Language,
	})
}

func (c *Conn) send(msgType string, data any) {
	msg := serverMessage{Type: msgType, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	select {
	case c.out <- msg:
	case <-c.done:
	}
}

func (c *Conn) sendError(message string) {
	c.send(TypeError, map[string]any{"error": message})
}

// writeLoop is the only goroutine that writes to the websocket, so
// server-to-client ordering is exactly the order messages were enqueued —
// the ordering guarantee SPEC_FULL §5/§8 require.
func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg := <-c.out:
			payload, err := json.Marshal(msg)
			if err != nil {
				slog.Error("duplex: marshal outbound message", "type", msg.Type, "err", err)
				continue
			}
			if err := c.ws.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}

// readLoop dispatches inbound frames: binary frames are raw audio forwarded
// to the live STT stream, text frames are JSON control messages.
func (c *Conn) readLoop(ctx context.Context) {
	for {
		msgType, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		switch msgType {
		case websocket.MessageBinary:
			c.handleAudioFrame(data)
		case websocket.MessageText:
			c.handleClientMessage(ctx, data)
		}
	}
}

func (c *Conn) handleAudioFrame(data []byte) {
	c.sttMu.Lock()
	handle := c.sttHandle
	c.sttMu.Unlock()
	if handle == nil {
		return
	}
	if err := handle.SendAudio(data); err != nil {
		slog.Warn("duplex: send audio", "session", c.id, "err", err)
	}
}

func (c *Conn) handleClientMessage(ctx context.Context, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("malformed control message")
		return
	}

	switch msg.Type {
	case TypeClientRecordStart:
		c.startRecording(ctx)
	case TypeClientRecordStop, TypeClientVoiceStop:
		c.stopRecording()
	case TypeClientFinal:
		var body finalTranscriptBody
		_ = json.Unmarshal(msg.Data, &body)
		if body.Text != "" {
			c.handleFinalTranscript(ctx, body.Text)
		}
	case TypeClientVoiceStart:
		// Accepted without effect: capabilities were already announced on
		// accept, and a ttsProvider in its data is not applied.
	default:
		c.sendError("unknown message type")
	}
}

// startRecording opens a live STT stream and begins forwarding its partials
// and finals, unless one is already open or no STT provider is configured.
func (c *Conn) startRecording(ctx context.Context) {
	c.sttMu.Lock()
	defer c.sttMu.Unlock()
	if c.sttHandle != nil || c.deps.STT == nil {
		return
	}

	handle, err := c.deps.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: c.deps.SampleRate,
		Channels:   1,
		Language:   c.engineSess.Language,
	})
	if err != nil {
		c.recordMetric("stt", "error")
		c.sendError("speech recognition error")
		return
	}
	c.sttHandle = handle
	c.send(TypeRecordingStarted, nil)

	go c.drainTranscripts(ctx, handle)
}

// stopRecording tears down the live STT stream. The session remains
// connected so the user can retry (SPEC_FULL §4.2 failure semantics reuse
// this same teardown path).
func (c *Conn) stopRecording() {
	c.sttMu.Lock()
	handle := c.sttHandle
	c.sttHandle = nil
	c.sttMu.Unlock()
	if handle == nil {
		return
	}
	_ = handle.Close()
	c.send(TypeRecordingStopped, nil)
}

// drainTranscripts forwards interim partials as voice:transcript messages
// and dispatches every final transcript into the command pipeline exactly
// once. A provider may emit several interim frames per final; only the
// final advances the pipeline (SPEC_FULL §4.2).
func (c *Conn) drainTranscripts(ctx context.Context, handle stt.SessionHandle) {
	for {
		select {
		case <-c.done:
			return
		case partial, ok := <-handle.Partials():
			if !ok {
				return
			}
			c.send(TypeVoiceTranscript, map[string]any{"text": partial.Text, "isFinal": false})
		case final, ok := <-handle.Finals():
			if !ok {
				return
			}
			if final.Text == "" {
				continue
			}
			c.send(TypeVoiceTranscript, map[string]any{"text": final.Text, "isFinal": true})
			c.handleFinalTranscript(ctx, final.Text)
		}
	}
}

// handleFinalTranscript runs one pass of the command pipeline for a single
// final transcript: yes/no resolution while awaiting confirmation, or fresh
// intent extraction and gate evaluation otherwise. Serialized by
// pipelineMu so a session never has two final transcripts in flight.
func (c *Conn) handleFinalTranscript(ctx context.Context, text string) {
	c.pipelineMu.Lock()
	defer c.pipelineMu.Unlock()

	if c.gate.State() == gate.AwaitingConfirmation {
		c.engineSess.Memory.AddUserMessage(text, "", nil)
		c.applyDecision(ctx, c.gate.Resolve(text))
		return
	}

	// Thinking must be emitted immediately after the final transcript and
	// before any LLM call (SPEC_FULL §5 ordering guarantee).
	c.send(TypeVoiceThinking, nil)

	formatted := c.engineSess.Memory.GetFormattedContext(20)
	in := intent.Extract(ctx, c.deps.LLM, formatted, text)
	c.recordMetric("llm", "ok")
	c.send(TypeVoiceIntent, map[string]any{"intent": string(in.Name), "confidence": in.Confidence, "entities": in.Entities})
	c.engineSess.Memory.AddUserMessage(text, string(in.Name), in.Entities)

	c.applyDecision(ctx, c.gate.Decide(in, c.engineSess.Language))
}

// applyDecision acts on a [gate.Decision]: speaking the gate's own reply
// when it withholds execution, handling SWITCH_LANGUAGE locally (the
// engine never sees it, per SPEC_FULL §4.6), or dispatching to the
// business engine and speaking its generated response.
func (c *Conn) applyDecision(ctx context.Context, decision gate.Decision) {
	if !decision.Execute {
		msgType := TypeVoiceResponse
		if decision.NewState == gate.AwaitingConfirmation {
			msgType = TypeVoiceConfirmNeeded
		}
		c.engineSess.Memory.AddAssistantMessage(decision.Reply)
		c.send(msgType, map[string]any{"text": decision.Reply})
		c.speak(ctx, decision.Reply)
		return
	}

	if decision.Intent.Name == intent.SwitchLanguage {
		c.switchLanguage(ctx, decision)
		return
	}

	result := c.deps.Engine.Execute(ctx, c.engineSess, decision.Intent)
	c.respond(ctx, decision.Intent.Name, result)
}

func (c *Conn) switchLanguage(ctx context.Context, decision gate.Decision) {
	lang, _ := decision.Intent.Entities["language"].(string)
	if lang == "" {
		lang = c.engineSess.Language
	}
	c.engineSess.Language = lang

	ack := "Okay, switching to English."
	if lang == "hi" {
		ack = "Theek hai, ab Hindi mein baat karte hain."
	}
	c.engineSess.Memory.AddAssistantMessage(ack)
	c.send(TypeVoiceLanguageChanged, map[string]any{"language": lang})
	c.send(TypeVoiceResponse, map[string]any{"text": ack})
	c.speak(ctx, ack)
}

// respond runs the response generator over an engine result, streaming its
// sentence chunks to the client as they are produced (voice:response:chunk*
// then voice:response, per SPEC_FULL §5/§8), then speaks the final text.
func (c *Conn) respond(ctx context.Context, name intent.Name, result engine.ExecutionResult) {
	onChunk := func(chunk response.Chunk) {
		if chunk.Text == "" {
			return
		}
		c.send(TypeVoiceResponseChunk, map[string]any{"text": chunk.Text, "final": chunk.Final})
	}

	full, err := c.deps.Responses.Generate(ctx, c.engineSess.Language, name, result, onChunk)
	if err != nil {
		full = fallbackReply(c.engineSess.Language)
	}

	c.engineSess.Memory.AddAssistantMessage(full)
	c.send(TypeVoiceResponse, map[string]any{"text": full})
	c.speak(ctx, full)
}

func fallbackReply(lang string) string {
	if lang == "hi" {
		return "Theek hai."
	}
	return "Okay."
}

// speak synthesizes text via the configured TTS provider and streams the
// result as base64-encoded voice:tts-stream frames. When no TTS provider is
// configured the client synthesizes speech itself from the voice:response
// text already sent.
func (c *Conn) speak(ctx context.Context, text string) {
	if c.deps.TTS == nil || text == "" {
		return
	}
	adapter := response.NewTTSAdapter(c.deps.TTS)
	audioCh, err := adapter.GenerateSpeechStream(ctx, text, c.deps.Voice)
	if err != nil {
		c.recordMetric("tts", "error")
		slog.Warn("duplex: tts synthesis failed", "session", c.id, "err", err)
		return
	}
	for chunk := range audioCh {
		c.send(TypeVoiceTTSStream, map[string]any{"audio": response.BufferToBase64(chunk)})
	}
	c.recordMetric("tts", "ok")
}

func (c *Conn) recordMetric(provider, status string) {
	if c.deps.Metrics == nil {
		return
	}
	c.deps.Metrics.RecordProviderRequest(context.Background(), provider, "voice", status)
}

// closeClean ends the connection with a clean close code. Called both from
// run's own teardown and, during process shutdown, by the Manager for
// sessions still active after the drain window.
func (c *Conn) closeClean(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sttMu.Lock()
		handle := c.sttHandle
		c.sttHandle = nil
		c.sttMu.Unlock()
		if handle != nil {
			_ = handle.Close()
		}
		if reason == "" {
			reason = "session ended"
		}
		_ = c.ws.Close(websocket.StatusNormalClosure, reason)
	})
}
