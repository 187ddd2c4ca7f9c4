package duplex

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/observe"
	"github.com/shopvoice/shopvoice/internal/response"
	"github.com/shopvoice/shopvoice/pkg/provider/llm"
	"github.com/shopvoice/shopvoice/pkg/provider/stt"
	"github.com/shopvoice/shopvoice/pkg/provider/tts"
	"github.com/shopvoice/shopvoice/pkg/types"
)

// Deps are the Session Manager's collaborators, assembled once at startup
// by cmd/shopvoice/main.go and shared by every [Conn].
type Deps struct {
	STT       stt.Provider
	TTS       tts.Provider
	LLM       llm.Provider
	Engine    *engine.Engine
	Responses *response.Generator
	Metrics   *observe.Metrics

	// Voice is the TTS voice profile used for every session unless a
	// future per-session selection is added.
	Voice types.VoiceProfile

	// Language is the default session language ("hi" or "en") before any
	// SWITCH_LANGUAGE intent changes it.
	Language string

	// Location is the timezone used for reminder/daily-summary time
	// parsing (SPEC_FULL §4.6).
	Location *time.Location

	// SampleRate is the PCM sample rate audio frames are expected at.
	SampleRate int

	// STTName, TTSName, LLMName are the configured provider names, echoed
	// in the voice:start capabilities announcement for client diagnostics.
	STTName, TTSName, LLMName string
}

func (d *Deps) withDefaults() Deps {
	out := *d
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.Language == "" {
		out.Language = "hi"
	}
	if out.SampleRate == 0 {
		out.SampleRate = 16000
	}
	return out
}

// Manager is the Session Manager (SPEC_FULL §4.1): it accepts incoming
// websocket upgrades, assigns each one a session id, and maintains the
// process-wide map of live [Conn]s so graceful shutdown can drain or close
// them all. Safe for concurrent use.
type Manager struct {
	deps Deps

	mu        sync.Mutex
	conns     map[string]*Conn
	accepting bool

	wg sync.WaitGroup
}

// NewManager builds a [Manager] ready to accept connections.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:      deps.withDefaults(),
		conns:     make(map[string]*Conn),
		accepting: true,
	}
}

// ServeHTTP upgrades the request to a websocket connection, assigns it a
// session id, registers it in the process-wide map, and runs its
// read/write loops until the client disconnects or the manager shuts down.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	accepting := m.accepting
	m.mu.Unlock()
	if !accepting {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		return
	}

	id := uuid.NewString()
	c := newConn(id, ws, m.deps)

	m.mu.Lock()
	m.conns[id] = c
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.conns, id)
			m.mu.Unlock()
		}()
		c.run(context.WithoutCancel(r.Context()))
	}()
}

// ActiveSessions reports the number of live connections.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Shutdown implements the graceful-drain sequence from SPEC_FULL §5: stop
// accepting new connections, wait up to drainWindow for active sessions to
// end naturally, then close whatever remains with a clean close code.
func (m *Manager) Shutdown(ctx context.Context, drainWindow time.Duration) error {
	m.mu.Lock()
	m.accepting = false
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(drainWindow)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
	case <-ctx.Done():
	}

	m.mu.Lock()
	remaining := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		remaining = append(remaining, c)
	}
	m.mu.Unlock()

	for _, c := range remaining {
		c.closeClean("server shutting down")
	}
	return nil
}
