package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edumesh/eduagent/pkg/assistant"
	_ "github.com/edumesh/eduagent/pkg/assistant/gemini"
	_ "github.com/edumesh/eduagent/pkg/assistant/openai"
	"github.com/edumesh/eduagent/pkg/dispatch"
	"github.com/edumesh/eduagent/pkg/mcpserver"
	"github.com/edumesh/eduagent/pkg/otel"
	"github.com/edumesh/eduagent/pkg/resources"
	"github.com/edumesh/eduagent/pkg/session"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	// Local overrides; absence is not an error.
	_ = godotenv.Load()

	var (
		showVersion bool
		transport   string
		addr        string
		provider    string
		model       string
		capacity    int
		history     int
		tokenBudget int
		trace       bool
	)

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&transport, "transport", getEnv("EDUAGENT_TRANSPORT", "stdio"), "mcp transport: stdio or http")
	flag.StringVar(&addr, "addr", getEnv("EDUAGENT_ADDR", ":8080"), "http listen address")
	flag.StringVar(&provider, "provider", getEnv("EDUAGENT_PROVIDER", "none"), "llm provider: none, openai, or gemini")
	flag.StringVar(&model, "model", getEnv("EDUAGENT_MODEL", ""), "llm model override")
	flag.IntVar(&capacity, "capacity", getEnvInt("EDUAGENT_CAPACITY", session.DefaultCapacity), "max concurrent agent sessions")
	flag.IntVar(&history, "history", getEnvInt("EDUAGENT_HISTORY", session.DefaultHistoryLimit), "max conversation turns per session")
	flag.IntVar(&tokenBudget, "token-budget", getEnvInt("EDUAGENT_TOKEN_BUDGET", 0), "max conversation tokens per session (0 disables)")
	flag.BoolVar(&trace, "trace", getEnvBool("EDUAGENT_TRACE", false), "emit traces to stderr")
	flag.Parse()

	if showVersion {
		fmt.Printf("eduagent %s (commit=%s, date=%s)\n", version, commit, date)
		return
	}

	// Stdout belongs to the stdio transport.
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, runConfig{
		transport:   transport,
		addr:        addr,
		provider:    provider,
		model:       model,
		capacity:    capacity,
		history:     history,
		tokenBudget: tokenBudget,
		trace:       trace,
	}); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

type runConfig struct {
	transport   string
	addr        string
	provider    string
	model       string
	capacity    int
	history     int
	tokenBudget int
	trace       bool
}

func run(ctx context.Context, log *slog.Logger, cfg runConfig) error {
	if cfg.trace {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName:    "eduagent",
			ServiceVersion: version,
			UseStderr:      true,
		})
		if err != nil {
			return fmt.Errorf("otel init: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	opts := []session.Option{
		session.WithCapacity(cfg.capacity),
		session.WithHistoryLimit(cfg.history),
		session.WithLogger(log),
	}

	if cfg.provider != "" && cfg.provider != "none" {
		factory, ok := assistant.Resolve(cfg.provider)
		if !ok {
			return fmt.Errorf("unknown provider %q", cfg.provider)
		}
		acfg := assistant.Config{}
		if cfg.model != "" {
			acfg["model"] = cfg.model
		}
		opts = append(opts, session.WithAssistant(factory, acfg))
	}

	if cfg.tokenBudget > 0 {
		est, err := session.NewTikTokenEstimator(cfg.model)
		if err != nil {
			log.Warn("token estimator unavailable, budget disabled", "err", err)
		} else {
			opts = append(opts, session.WithTokenBudget(est, cfg.tokenBudget))
		}
	}

	reg := session.NewRegistry(opts...)
	d := dispatch.NewDispatcher(reg, dispatch.WithLogger(log))
	srv, err := mcpserver.New(d, resources.NewReader(reg), mcpserver.WithLogger(log))
	if err != nil {
		return err
	}

	switch cfg.transport {
	case "stdio":
		return srv.RunStdio(ctx)
	case "http":
		return srv.ServeHTTP(ctx, cfg.addr)
	default:
		return fmt.Errorf("unknown transport %q", cfg.transport)
	}
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
