// Package cli implements the interactive terminal surface: it wires the
// store, GenAI client, price provider, and flow layer together and drives the
// read-classify-respond-persist loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/agmarket"
	"github.com/KisanLab/MandiSaathi/internal/flow"
	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/prices"
	"github.com/KisanLab/MandiSaathi/internal/store"
	"github.com/google/uuid"
)

// welcomeBanner is printed when a new conversation starts.
const welcomeBanner = `Namaste! Mandi Saathi mein aapka swagat hai.
Ask about mandi prices or get help negotiating with a trader.
(Type 'exit' or 'quit' to leave.)`

// Opts holds configuration for the CLI surface.
type Opts struct {
	SessionID     string
	ListSessions  bool
	CleanupDays   int
	CacheValidity time.Duration
	Input         io.Reader
	Output        io.Writer
}

// Option configures the CLI surface.
type Option func(*Opts)

// WithSessionID resumes a stored session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(o *Opts) { o.SessionID = id }
}

// WithListSessions prints stored sessions and exits.
func WithListSessions() Option {
	return func(o *Opts) { o.ListSessions = true }
}

// WithCleanupDays purges cached prices older than the given days and exits.
func WithCleanupDays(days int) Option {
	return func(o *Opts) { o.CleanupDays = days }
}

// WithCacheValidity overrides the price cache freshness window.
func WithCacheValidity(d time.Duration) Option {
	return func(o *Opts) { o.CacheValidity = d }
}

// WithInput overrides the input stream (used by tests).
func WithInput(r io.Reader) Option {
	return func(o *Opts) { o.Input = r }
}

// WithOutput overrides the output stream (used by tests).
func WithOutput(w io.Writer) Option {
	return func(o *Opts) { o.Output = w }
}

// App holds the wired components behind one conversation surface.
type App struct {
	store        store.Store
	supervisor   *flow.Supervisor
	orchestrator *flow.Orchestrator
	input        io.Reader
	output       io.Writer
}

// NewApp assembles the conversation surface from already-built dependencies.
func NewApp(st store.Store, genaiClient genai.ClientInterface, resolver flow.PriceResolver, districts flow.DistrictResolver, opts ...Option) *App {
	cfg := applyOptions(opts)
	return &App{
		store:        st,
		supervisor:   flow.NewSupervisor(genaiClient),
		orchestrator: flow.NewOrchestrator(genaiClient, resolver, districts, st),
		input:        cfg.Input,
		output:       cfg.Output,
	}
}

// Run builds every module from options and executes the requested mode:
// session listing, cache cleanup, or the interactive loop.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, agmarketOpts []agmarket.Option, cliOpts []Option) error {
	cfg := applyOptions(cliOpts)

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	if cfg.ListSessions {
		return listSessions(st, cfg.Output)
	}
	if cfg.CleanupDays > 0 {
		return cleanupPrices(st, cfg.CleanupDays, cfg.Output)
	}

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	provider := agmarket.NewClient(agmarketOpts...)
	var priceOpts []prices.Option
	if cfg.CacheValidity > 0 {
		priceOpts = append(priceOpts, prices.WithCacheValidity(cfg.CacheValidity))
	}
	priceService := prices.NewService(st, provider, priceOpts...)

	app := NewApp(st, genaiClient, priceService, priceService, cliOpts...)
	return app.RunInteractive(context.Background(), cfg.SessionID)
}

// RunInteractive drives the prompt loop until EOF or an exit command.
func (a *App) RunInteractive(ctx context.Context, sessionID string) error {
	resumed := sessionID != ""
	if resumed {
		sess, err := a.store.GetSession(sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
		if sess == nil {
			return fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
		}
		fmt.Fprintf(a.output, "Resuming session %s (%d messages)\n", sessionID, sess.MessageCount)
	} else {
		sessionID = NewSessionID()
		fmt.Fprintln(a.output, welcomeBanner)
	}
	slog.Info("App.RunInteractive: session started", "sessionID", sessionID, "resumed", resumed)

	scanner := bufio.NewScanner(a.input)
	for {
		fmt.Fprint(a.output, "\nAap> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			fmt.Fprintln(a.output, "Dhanyavaad! Phir milenge.")
			break
		}

		reply := a.HandleMessage(ctx, sessionID, message)
		fmt.Fprintf(a.output, "\nMandi Saathi> %s\n", reply)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	slog.Info("App.RunInteractive: session ended", "sessionID", sessionID)
	return nil
}

// HandleMessage processes one farmer message end to end: load history,
// classify, answer directly or run the pipeline, then persist the turn. It
// always returns a reply; persistence failures are logged, not surfaced.
func (a *App) HandleMessage(ctx context.Context, sessionID, message string) string {
	traceID := uuid.NewString()
	slog.Info("App.HandleMessage: processing message",
		"traceID", traceID, "sessionID", sessionID, "messageLength", len(message))

	history, err := a.store.GetChatHistory(sessionID)
	if err != nil {
		slog.Warn("App.HandleMessage: failed to load history, continuing without",
			"traceID", traceID, "error", err)
	}

	decision := a.supervisor.Classify(ctx, message, history)

	var reply string
	if decision.Intent.NeedsDirectResponse() && decision.DirectResponse != "" {
		slog.Info("App.HandleMessage: handled directly",
			"traceID", traceID, "intent", decision.Intent)
		reply = decision.DirectResponse
	} else {
		reply = a.orchestrator.Run(ctx, decision, message, history)
	}

	if err := a.store.TouchSession(sessionID, message); err != nil {
		slog.Warn("App.HandleMessage: failed to touch session", "traceID", traceID, "error", err)
	}
	if err := a.store.AddChatMessage(sessionID, message, reply); err != nil {
		slog.Warn("App.HandleMessage: failed to persist turn", "traceID", traceID, "error", err)
	}
	return reply
}

// NewSessionID derives a fresh session identifier from the current time.
func NewSessionID() string {
	now := time.Now()
	return fmt.Sprintf("%s%09d", now.Format("20060102150405"), now.Nanosecond())
}

// listSessions prints the stored sessions, most recent first.
func listSessions(st store.Store, w io.Writer) error {
	sessions, err := st.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No stored sessions.")
		return nil
	}
	for _, s := range sessions {
		first := s.FirstMessage
		if runes := []rune(first); len(runes) > 60 {
			first = string(runes[:57]) + "..."
		}
		fmt.Fprintf(w, "%s  %s  %3d msgs  %s\n",
			s.ID, s.LastUpdated.Format("2006-01-02 15:04"), s.MessageCount, first)
	}
	return nil
}

// cleanupPrices runs the explicit cache purge.
func cleanupPrices(st store.Store, days int, w io.Writer) error {
	removed, err := st.CleanupPrices(days)
	if err != nil {
		return fmt.Errorf("failed to clean up prices: %w", err)
	}
	fmt.Fprintf(w, "Removed %d cached price records older than %d days.\n", removed, days)
	slog.Info("cleanupPrices: cache purged", "removed", removed, "olderThanDays", days)
	return nil
}

// buildStore selects the backend from the DSN, defaulting to in-memory.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("buildStore: no DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("buildStore: detected PostgreSQL DSN")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Debug("buildStore: detected SQLite DSN", "path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}

func applyOptions(opts []Option) Opts {
	cfg := Opts{Input: os.Stdin, Output: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
