package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/bot"
	"totem-quiz-bot/internal/config"
	"totem-quiz-bot/internal/content"
	"totem-quiz-bot/internal/infra/file"
	"totem-quiz-bot/internal/infra/memory"
	"totem-quiz-bot/internal/infra/postgres"
	redissession "totem-quiz-bot/internal/infra/redis"
	"totem-quiz-bot/internal/logging"
	"totem-quiz-bot/internal/metrics"
	"totem-quiz-bot/internal/render"
	transport "totem-quiz-bot/internal/transport/http"
	"totem-quiz-bot/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, closer := newLogger(cfg)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := RunMigrations(ctx, cfg.Postgres.URL, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgPool.Close()
	}

	store, err := loadContent(ctx, cfg, pgPool)
	if err != nil {
		return err
	}
	for _, d := range content.CrossCheck(store) {
		logger.Warn().Str("finding", d.String()).Msg("answer weight references unknown animal")
	}
	logger.Info().
		Int("questions", store.TotalQuestions()).
		Int("animals", len(store.AnimalKeys())).
		Msg("content loaded")

	sessions, redisClient, err := newSessionRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var requests bot.RequestLog
	if cfg.RequestLog.Backend == "postgres" && pgPool != nil {
		requests = postgres.NewRequestLog(pgPool)
	} else {
		fileLog, err := file.NewRequestLog(cfg.RequestLog.Dir)
		if err != nil {
			return fmt.Errorf("request log: %w", err)
		}
		requests = fileLog
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	quiz := app.NewQuizService(sessions, store,
		app.WithMetrics(m),
		app.WithLogger(logger.With().Str("component", "quiz").Logger()),
	)
	renderer := render.New(render.Options{
		OutputDir: cfg.Media.GeneratedDir,
		TitleFont: cfg.Media.TitleFont,
		TextFont:  cfg.Media.TextFont,
		LogoPath:  cfg.Media.LogoPath,
	}, logger)

	dispatcherOpts := []bot.DispatcherOption{
		bot.WithDispatcherMetrics(m),
		bot.WithDispatcherLogger(logger.With().Str("component", "bot").Logger()),
	}
	if redisClient != nil {
		ttl := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		dispatcherOpts = append(dispatcherOpts, bot.WithFeedbackState(redissession.NewFeedbackState(redisClient, ttl)))
	}

	router := bot.NewRouter()
	dispatcher := bot.NewDispatcher(quiz, router, renderer, requests, bot.Settings{
		WelcomeImage:     cfg.Bot.WelcomeImage,
		GuardianshipLink: cfg.Bot.GuardianshipLink,
		FallbackUsername: cfg.Bot.FallbackUsername,
		DebugCommands:    cfg.Bot.DebugCommands,
	}, dispatcherOpts...)
	pool := bot.NewPool(cfg.Bot.Workers, dispatcher, time.Duration(cfg.Bot.EventTimeoutSeconds)*time.Second, logger)
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()

	group, ctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		tg, err := telegram.Dial(cfg.Telegram.Token, cfg.Telegram.PollTimeout, cfg.Telegram.Debug, logger)
		if err != nil {
			return err
		}
		router.Register(telegram.Prefix, tg)
		group.Go(func() error { return tg.Run(ctx, pool) })
	} else {
		logger.Warn().Msg("telegram token not set, telegram transport disabled")
	}

	if cfg.Server.Enabled {
		finalPort := portFlag
		if finalPort == "" {
			finalPort = cfg.Server.Port
		}
		wsHandler := transport.NewWSHandler(pool, cfg.Media.Root, logger)
		router.Register(transport.Prefix, wsHandler)
		m.ObserveConnectedChats(wsHandler.Connected)
		server := &http.Server{
			Addr:        ":" + finalPort,
			Handler:     newMux(wsHandler, registry, cfg.Media.Root, cfg.Server.AllowedOrigins),
			ReadTimeout: 15 * time.Second,
		}
		group.Go(func() error {
			logger.Info().Str("addr", server.Addr).Msg("http server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()
	logger.Info().Msg("shutting down")
	return err
}

func newMux(ws *transport.WSHandler, registry *prometheus.Registry, mediaRoot string, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/ws", ws.ServeWS)
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaRoot))))
	return r
}

func newLogger(cfg config.Config) (zerolog.Logger, io.Closer) {
	return logging.New(logging.Options{
		AppName:    cfg.App.Name,
		Env:        cfg.App.Env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    os.Stdout,
	})
}

func loadContent(ctx context.Context, cfg config.Config, pgPool *pgxpool.Pool) (*content.Store, error) {
	var src content.Source
	switch cfg.Content.Source {
	case "postgres":
		if pgPool == nil {
			return nil, fmt.Errorf("content source postgres requires postgres.url")
		}
		src = postgres.NewContentSource(pgPool)
	default:
		src = content.NewFileSource(cfg.Content.QuestionsPath, cfg.Content.AnimalsPath)
	}
	return content.Initialize(ctx, src)
}

func newSessionRepository(ctx context.Context, cfg config.Config) (app.SessionRepository, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewSessionStore(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	ttl := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	return redissession.NewSessionStore(client, ttl), client, nil
}
