// Package app wires all Notewisp subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order. Config hot reload is applied through
// [App.ApplyConfig].
//
// For testing, inject doubles via functional options (WithStore and the
// Providers struct). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notewisp/notewisp/internal/config"
	"github.com/notewisp/notewisp/internal/health"
	"github.com/notewisp/notewisp/internal/note"
	"github.com/notewisp/notewisp/internal/server"
	"github.com/notewisp/notewisp/internal/transcript"
	"github.com/notewisp/notewisp/pkg/notes"
	"github.com/notewisp/notewisp/pkg/notes/postgres"
	"github.com/notewisp/notewisp/pkg/provider/embeddings"
	"github.com/notewisp/notewisp/pkg/provider/llm"
	"github.com/notewisp/notewisp/pkg/provider/transcribe"
)

// defaultListenAddr is used when server.listen_addr is not configured.
const defaultListenAddr = ":8080"

// defaultEmbeddingDimensions matches OpenAI text-embedding-3-small.
const defaultEmbeddingDimensions = 1536

// shutdownTimeout bounds the graceful HTTP drain during Run teardown.
const shutdownTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	Transcriber transcribe.Provider
	Structurer  llm.Provider
	Embeddings  embeddings.Provider
}

// App owns all subsystem lifetimes for the Notewisp server.
type App struct {
	cfg       *config.Config
	providers *Providers
	version   string
	logLevel  *slog.LevelVar

	store    notes.Store
	composer *note.Composer
	httpSrv  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a note store instead of creating one from config.
func WithStore(s notes.Store) Option {
	return func(a *App) { a.store = s }
}

// WithVersion sets the build version reported on /healthz.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithLogLevelVar hands the App the level var backing the process logger, so
// log_level changes can be hot-applied.
func WithLogLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Transcriber == nil {
		return nil, errors.New("app: a transcription provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Note store ────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Composer ──────────────────────────────────────────────────────
	composerOpts := []note.ComposerOption{
		note.WithVocabulary(cfg.Vocabulary),
		note.WithCleaner(buildCleaner(cfg.Cleaner)),
	}
	if providers.Structurer != nil {
		composerOpts = append(composerOpts, note.WithStructurer(providers.Structurer))
	}
	a.composer = note.NewComposer(providers.Transcriber, composerOpts...)

	// ── 3. HTTP server ───────────────────────────────────────────────────
	serverOpts := []server.Option{
		server.WithHealth(a.buildHealth()),
	}
	if providers.Embeddings != nil {
		serverOpts = append(serverOpts, server.WithEmbedder(providers.Embeddings))
	}
	srv := server.New(a.store, a.composer, serverOpts...)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStore creates the configured note store unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, using in-memory note store")
		a.store = notes.NewMemStore()
		return nil
	}

	dims := a.cfg.Storage.EmbeddingDimensions
	if dims <= 0 {
		dims = defaultEmbeddingDimensions
	}

	store, err := postgres.NewStore(ctx, dsn, dims)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// buildHealth assembles the health handler with readiness checks for the
// store backends that support probing.
func (a *App) buildHealth() *health.Handler {
	var checkers []health.Checker

	if pinger, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: pinger.Ping,
		})
	}

	return health.New(a.version, checkers...)
}

// buildCleaner maps the cleaner config onto a transcript cleaner.
func buildCleaner(cfg config.CleanerConfig) *transcript.Cleaner {
	var opts []transcript.Option
	if cfg.MaxRepetitions > 0 {
		opts = append(opts, transcript.WithMaxRepetitions(cfg.MaxRepetitions))
	}
	if cfg.HallucinationThreshold > 0 {
		opts = append(opts, transcript.WithHallucinationThreshold(cfg.HallucinationThreshold))
	}
	return transcript.NewCleaner(opts...)
}

// Run serves HTTP until ctx is cancelled, then drains connections gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tls := a.cfg.Server.TLS
		slog.Info("notewisp listening", "addr", a.httpSrv.Addr, "tls", tls != nil)

		var err error
		if tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpSrv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("app: http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// ApplyConfig hot-applies the reloadable parts of a new config: log level,
// vocabulary, and cleaner tuning. Provider and storage changes are ignored
// (they require a restart) and logged.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}

	if d.LogLevelChanged {
		if a.logLevel != nil {
			a.logLevel.Set(d.NewLogLevel.Slog())
			slog.Info("log level changed", "level", d.NewLogLevel)
		} else {
			slog.Warn("log level changed in config but no level var is wired; restart to apply")
		}
	}

	if d.VocabularyChanged {
		a.composer.SetVocabulary(new.Vocabulary)
		slog.Info("vocabulary reloaded", "terms", len(new.Vocabulary))
	}

	if d.CleanerChanged {
		a.composer.SetCleaner(buildCleaner(new.Cleaner))
		slog.Info("cleaner tuning reloaded",
			"max_repetitions", new.Cleaner.MaxRepetitions,
			"hallucination_threshold", new.Cleaner.HallucinationThreshold,
		)
	}

	a.cfg = new
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
