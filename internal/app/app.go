// Package app wires the application together: configuration, logging,
// Genkit, the database pool, the knowledge store, guardrails, and the agent.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/helpdesk/db"
	"github.com/koopa0/helpdesk/internal/agent"
	"github.com/koopa0/helpdesk/internal/config"
	"github.com/koopa0/helpdesk/internal/guardrail"
	"github.com/koopa0/helpdesk/internal/knowledge"
	"github.com/koopa0/helpdesk/internal/log"
	"github.com/koopa0/helpdesk/internal/observability"
	"github.com/koopa0/helpdesk/internal/session"
)

// App holds the initialized application components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	Guardrail *guardrail.Engine
	Agent     *agent.Agent
	Sessions  *session.MemoryStore

	otelShutdown func(context.Context) error
}

// Setup creates and initializes the application.
// Call Close to release resources.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			Environment: cfg.Telemetry.Environment,
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Knowledge = knowledge.New(pool, a.Embedder, logger.With("component", "knowledge"))

	a.Guardrail = guardrail.New(guardrail.Config{
		RateLimitWindow:      time.Duration(cfg.Guardrail.RateLimitWindowSeconds) * time.Second,
		RateLimitMaxRequests: cfg.Guardrail.RateLimitMaxRequests,
		Vocabulary: guardrail.Vocabulary{
			LegalFinancial:  cfg.Guardrail.LegalFinancialKeywords,
			Toxicity:        cfg.Guardrail.ToxicityKeywords,
			SensitiveTopics: cfg.Guardrail.SensitiveTopics,
		},
	}, guardrail.NewMemoryRateStore(), logger.With("component", "guardrail"))

	generator := agent.NewGenkitGenerator(g, cfg.ModelName, logger.With("component", "generator"))
	a.Agent = agent.New(
		a.Guardrail,
		a.Knowledge,
		generator,
		agent.NewKeywordIntentDetector(),
		agent.Config{
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			VoiceMaxTokens: cfg.VoiceMaxTokens,
		},
		logger.With("component", "agent"),
	)

	a.Sessions = session.NewMemoryStore()

	return a, nil
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracing: %w", err)
		}
	}

	return nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
