package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cardscan/internal/config"
	"github.com/sells-group/cardscan/internal/extract"
	"github.com/sells-group/cardscan/internal/notify"
	"github.com/sells-group/cardscan/internal/pipeline"
	"github.com/sells-group/cardscan/internal/reconcile"
	"github.com/sells-group/cardscan/internal/store"
	anthropicpkg "github.com/sells-group/cardscan/pkg/anthropic"
	"github.com/sells-group/cardscan/pkg/github"
	"github.com/sells-group/cardscan/pkg/telegram"
)

// pipelineEnv holds the initialized store, clients, and the pipeline
// needed by the serve/process/backfill commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Fetcher  github.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "cardscan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store and API clients and builds the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, scope string) (*pipelineEnv, error) {
	if err := cfg.Validate(scope); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if _, err := st.EnsureUser(ctx, cfg.Pipeline.AdminUser, ""); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "ensure admin user")
	}

	fetchOpts := []github.Option{}
	if cfg.GitHub.RawBaseURL != "" {
		fetchOpts = append(fetchOpts, github.WithBaseURL(cfg.GitHub.RawBaseURL))
	}
	if cfg.Pipeline.FetchTimeoutSecs > 0 {
		fetchOpts = append(fetchOpts, github.WithTimeout(time.Duration(cfg.Pipeline.FetchTimeoutSecs)*time.Second))
	}
	fetcher := github.NewClient(cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Branch, fetchOpts...)

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	extractor := extract.New(anthropicClient, cfg.Anthropic)
	reconciler := reconcile.New(st, cfg)

	var tgClient telegram.Client
	if cfg.Telegram.BotToken != "" {
		tgClient = telegram.NewClient(cfg.Telegram.BotToken)
	}
	notifier := notify.New(tgClient, cfg.Telegram.ChatID)

	p := pipeline.New(cfg, fetcher, extractor, reconciler, notifier)

	return &pipelineEnv{Store: st, Pipeline: p, Fetcher: fetcher}, nil
}

// redactedConfig is a copy of the loaded config with secrets masked,
// used by the config command and startup logging.
func redactedConfig() config.Config {
	return cfg.Redacted()
}
