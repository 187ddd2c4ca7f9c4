// Command shopvoice is the entry point for the voice-driven shop command
// server: config → provider registry → Postgres pool → cache → business
// engine → reminder scheduler → Session Manager, wired the way the
// teacher's cmd/glyphoxa/main.go wires its own dependency graph.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopvoice/shopvoice/internal/cache"
	"github.com/shopvoice/shopvoice/internal/config"
	"github.com/shopvoice/shopvoice/internal/duplex"
	"github.com/shopvoice/shopvoice/internal/engine"
	"github.com/shopvoice/shopvoice/internal/health"
	"github.com/shopvoice/shopvoice/internal/mailer"
	"github.com/shopvoice/shopvoice/internal/observe"
	"github.com/shopvoice/shopvoice/internal/reminder"
	"github.com/shopvoice/shopvoice/internal/resilience"
	"github.com/shopvoice/shopvoice/internal/response"
	"github.com/shopvoice/shopvoice/internal/store/postgres"
	"github.com/shopvoice/shopvoice/pkg/provider/llm"
	"github.com/shopvoice/shopvoice/pkg/provider/llm/anyllm"
	"github.com/shopvoice/shopvoice/pkg/provider/llm/openai"
	"github.com/shopvoice/shopvoice/pkg/provider/stt"
	"github.com/shopvoice/shopvoice/pkg/provider/stt/deepgram"
	"github.com/shopvoice/shopvoice/pkg/provider/tts"
	"github.com/shopvoice/shopvoice/pkg/provider/tts/coqui"
	"github.com/shopvoice/shopvoice/pkg/provider/tts/elevenlabs"
)

// shutdownDrainWindow bounds how long the Session Manager waits for active
// sessions to end naturally before closing them during shutdown (§5).
const shutdownDrainWindow = 20 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "shopvoice: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "shopvoice: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	slog.Info("shopvoice starting", "config", *configPath, "listen_addr", cfg.Server.ListenAddr)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	loc := time.UTC
	if cfg.Server.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Server.Timezone); err != nil {
			slog.Warn("unknown timezone, defaulting to UTC", "timezone", cfg.Server.Timezone, "err", err)
		} else {
			loc = l
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.Store.DSN, cfg.Store.MaxConns, cfg.Store.MigrateOnStart)
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		return 1
	}

	kv := cache.New(cfg.Cache.Addr, 0, 0, 0)

	mail := mailer.New(mailer.Config{
		SMTPAddr:  cfg.Mail.SMTPAddr,
		Username:  cfg.Mail.Username,
		Password:  cfg.Mail.Password,
		FromEmail: cfg.Mail.FromEmail,
	})

	eng := engine.New(store, kv, engine.WithMailer(mail))

	scheduler := reminder.New(cfg.Queue.Addr, store,
		reminder.WithMailer(mail),
		reminder.WithMaxAttempts(cfg.Queue.MaxAttempts),
		reminder.WithSweepCron(cfg.Queue.SweepCron),
	)
	if err := scheduler.StartSweep(ctx); err != nil {
		slog.Error("failed to start reminder sweep", "err", err)
		return 1
	}

	metrics := observe.DefaultMetrics()

	generatorLLM := ps.llmFallback
	if generatorLLM == nil {
		generatorLLM = ps.llm
	}
	var responder *response.Generator
	if generatorLLM != nil {
		responder = response.New(response.WithLLM(generatorLLM))
	} else {
		responder = response.New()
	}

	manager := duplex.NewManager(duplex.Deps{
		STT:       ps.stt,
		TTS:       ps.tts,
		LLM:       ps.llm,
		Engine:    eng,
		Responses: responder,
		Metrics:   metrics,
		Location:  loc,
		Language:  "hi",
		STTName:   cfg.Providers.STT.Name,
		TTSName:   cfg.Providers.TTS.Name,
		LLMName:   cfg.Providers.LLM.Name,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", observe.Middleware(metrics)(http.HandlerFunc(manager.ServeHTTP)))
	health.New().Register(mux)

	server := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	printStartupSummary(cfg, ps)

	httpErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
			return
		}
		httpErrCh <- nil
	}()

	reminderDone := make(chan error, 1)
	go func() {
		reminderDone <- reminder.RunServer(ctx, cfg.Queue.Addr, 10, scheduler)
	}()

	slog.Info("server ready — listening", "addr", cfg.Server.ListenAddr)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-httpErrCh:
		if err != nil {
			slog.Error("http server error", "err", err)
		}
		stop()
	}

	// ── Graceful shutdown (SPEC_FULL §5): stop accepting, drain sessions,
	// drain the reminder worker, then close store/cache/queue clients.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)
	_ = manager.Shutdown(shutdownCtx, shutdownDrainWindow)

	if err := <-reminderDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("reminder server error", "err", err)
	}
	_ = scheduler.Close()

	_ = kv.Close()
	store.Close()

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ──────────────────────────────────────────────────────

// registerBuiltinProviders registers the real provider constructors that
// ship with shopvoice against reg, keyed by the name operators use in
// config.yaml's providers block.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		return openai.New(e.APIKey, e.Model)
	})
	reg.RegisterLLM("any-llm", func(e config.ProviderEntry) (llm.Provider, error) {
		backend, _ := e.Options["provider"].(string)
		return anyllm.New(backend, e.Model)
	})
	reg.RegisterSTT("deepgram", func(e config.ProviderEntry) (stt.Provider, error) {
		return deepgram.New(e.APIKey)
	})
	reg.RegisterTTS("elevenlabs", func(e config.ProviderEntry) (tts.Provider, error) {
		return elevenlabs.New(e.APIKey)
	})
	reg.RegisterTTS("coqui", func(e config.ProviderEntry) (tts.Provider, error) {
		return coqui.New(e.BaseURL)
	})
}

// providerSet holds the instantiated providers an operator configured.
// Slots whose provider name is empty are left nil; a configured name that
// fails to build, including one with no registered factory
// (ErrProviderNotRegistered), makes buildProviders return an error.
type providerSet struct {
	llm         llm.Provider
	llmFallback llm.Provider
	stt         stt.Provider
	tts         tts.Provider
}

func buildProviders(cfg *config.Config, reg *config.Registry) (providerSet, error) {
	var ps providerSet

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return ps, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.llm = resilience.NewLLMFallback(p, name, resilience.FallbackConfig{})
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	if name := cfg.Providers.LLMFallback.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLMFallback)
		if err != nil {
			return ps, fmt.Errorf("create llm fallback provider %q: %w", name, err)
		}
		ps.llmFallback = p
		slog.Info("provider created", "kind", "llm_fallback", "name", name)
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return ps, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.stt = resilience.NewSTTFallback(p, name, resilience.FallbackConfig{})
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return ps, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.tts = resilience.NewTTSFallback(p, name, resilience.FallbackConfig{})
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	return ps, nil
}

// ── Startup summary ──────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, ps providerSet) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        shopvoice — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("LLM fallback", cfg.Providers.LLMFallback.Name, cfg.Providers.LLMFallback.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-16s: %-19s ║\n", kind, value)
}

// ── Logger ────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
