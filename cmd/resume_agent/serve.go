package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-enhancer/internal/agent"
	"github.com/jonathan/resume-enhancer/internal/archive"
	"github.com/jonathan/resume-enhancer/internal/cache"
	"github.com/jonathan/resume-enhancer/internal/config"
	"github.com/jonathan/resume-enhancer/internal/db"
	"github.com/jonathan/resume-enhancer/internal/events"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/logging"
	"github.com/jonathan/resume-enhancer/internal/parsing"
	"github.com/jonathan/resume-enhancer/internal/server"
	"github.com/jonathan/resume-enhancer/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts resume uploads and serves stored parse results.

Adapters are enabled by configuration: DATABASE_URL (PostgreSQL, otherwise in-memory),
REDIS_URL (parse cache), MINIO_ENDPOINT (original document archive) and AMQP_URL
(activity feed). Without GEMINI_API_KEY every upload uses heuristic parsing.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	jwtCfg, err := config.LoadJWTConfig(os.LookupEnv)
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		deps.Logger.Warn().Msg("JWT_SECRET not set, /api/resumes routes are unauthenticated")
	}

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Structuring:    structuringOptions(cfg),
		RateLimit:      ratelimit.LoadConfig(os.LookupEnv),
		JWT:            jwtCfg,
	}, deps)

	return srv.Start(ctx)
}

// structuringOptions maps the llm config section onto parser options
func structuringOptions(cfg *config.Config) parsing.Options {
	return parsing.Options{
		Tier:          llm.ParseTier(cfg.LLM.Tier),
		Timeout:       cfg.LLMTimeout(),
		MaxInputChars: cfg.LLM.MaxInputChars,
	}
}

// newLLMClient returns nil, nil when no API key is configured
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, nil
	}
	models := llm.DefaultConfig().WithModel(llm.ParseTier(cfg.LLM.Tier), cfg.LLM.Model)
	client, err := llm.NewClient(ctx, models, cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// buildDeps connects every configured adapter. The returned func closes them
// in reverse order; on error everything opened so far is already closed.
func buildDeps(ctx context.Context, cfg *config.Config) (server.Deps, func(), error) {
	logger := logging.Logger
	deps := server.Deps{Logger: &logger}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (server.Deps, func(), error) {
		closeAll()
		return server.Deps{}, func() {}, err
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if client != nil {
		deps.Client = client
		closers = append(closers, func() { _ = client.Close() })
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, uploads will use fallback parsing")
	}

	if cfg.Storage.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return fail(err)
		}
		deps.Store = database
	} else {
		logger.Warn().Msg("DATABASE_URL not set, resumes are kept in memory")
		deps.Store = db.NewMemoryStore()
	}

	if cfg.Cache.RedisURL != "" {
		resultCache, redisClient, err := cache.Connect(ctx, cfg.Cache.RedisURL, cfg.CacheTTL())
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Cache = resultCache
	}

	if cfg.Archive.Endpoint != "" {
		docs, err := archive.NewMinIOArchive(ctx, archive.Config{
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Bucket:          cfg.Archive.Bucket,
			Location:        cfg.Archive.Location,
			UseSSL:          cfg.Archive.UseSSL,
		})
		if err != nil {
			return fail(err)
		}
		deps.Archive = docs
	}

	if cfg.Events.AMQPURL != "" {
		publisher, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = publisher.Close() })
		deps.Feed = func(sessionID string) agent.ActivitySink {
			return publisher.Session(sessionID)
		}
	}

	logger.Info().
		Bool("llm", deps.Client != nil).
		Bool("postgres", cfg.Storage.DatabaseURL != "").
		Bool("cache", deps.Cache != nil).
		Bool("archive", deps.Archive != nil).
		Bool("events", deps.Feed != nil).
		Msg("adapters ready")

	return deps, closeAll, nil
}
