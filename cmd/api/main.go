package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shirley959/amazon-final/internal/campaign"
	"github.com/shirley959/amazon-final/internal/copywriter"
	"github.com/shirley959/amazon-final/internal/http/handlers"
	"github.com/shirley959/amazon-final/internal/http/httpapi"
	"github.com/shirley959/amazon-final/internal/infra"
	"github.com/shirley959/amazon-final/internal/jobstore"
	"github.com/shirley959/amazon-final/internal/relay"
	"github.com/shirley959/amazon-final/internal/session"
	"github.com/shirley959/amazon-final/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireServerSecrets(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayOpts, err := relay.OptionsFromConfig(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid relay configuration")
	}
	relayOpts.RequestTimeout = 90 * time.Second
	client, err := relay.NewClient(relayOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build relay client")
	}
	for _, warning := range relayOpts.Credentials.Lint() {
		logger.Warn().Str("credential", relayOpts.Credentials.String()).Msg(warning)
	}

	var jobs jobstore.Store = jobstore.NewMemoryStore()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if pool != nil {
		defer pool.Close()
		pg := jobstore.NewPostgresStore(infra.NewSQLRunner(pool, &logger))
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare schema")
		}
		jobs = pg
	} else {
		logger.Warn().Msg("DATABASE_URL not set, jobs are kept in memory")
	}

	assets, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	var writer copywriter.Writer = copywriter.NewStaticWriter()
	if cfg.OpenAIAPIKey != "" {
		writer, err = copywriter.NewOpenAIWriter(copywriter.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build copywriter")
		}
	}

	campaigns, err := campaign.NewService(campaign.Options{
		Generator:   client,
		Writer:      writer,
		Jobs:        jobs,
		Assets:      assets,
		ModelPath:   cfg.ModelPath,
		Concurrency: cfg.CampaignConcurrency,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build campaign service")
	}

	issuer, err := session.NewIssuer(cfg.AccessPassword, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build session issuer")
	}

	app := &handlers.App{
		Config:    cfg,
		Logger:    &logger,
		Sessions:  issuer,
		Relay:     client,
		Campaigns: campaigns,
		Jobs:      jobs,
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("upstream", client.BaseURL()).
			Bool("relayed", client.Relayed()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
