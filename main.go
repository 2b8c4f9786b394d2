package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"hrc-blackjack/casino"
	"hrc-blackjack/cogs"
	"hrc-blackjack/ledger"
	"hrc-blackjack/sessions"
	"hrc-blackjack/utils"
)

const sessionKeyPrefix = "hrc:"

var botStatus atomic.Value

func main() {
	botStatus.Store("starting")

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("ledger setup failed", "err", err)
	}
	defer closeLedger()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("session store setup failed", "err", err)
	}
	defer closeStore()

	svc := casino.NewService(l, store, casino.Config{
		Decks:          cfg.Decks,
		Timeout:        cfg.Timeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runHealthServer(ctx, cfg.Port, logger) })
	g.Go(func() error { return runBot(ctx, cfg, svc, logger) })

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "err", err)
		os.Exit(1)
	}
	logger.Info("Gracefully shut down")
}

func openLedger(ctx context.Context, cfg utils.Config, logger *log.Logger) (ledger.Ledger, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := utils.OpenDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pl := ledger.NewPostgresLedger(pool, cfg.StartingChips)
		if err := pl.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Database connected successfully", "backend", "postgres")
		return pl, pool.Close, nil
	case cfg.SQLitePath != "":
		sl, err := ledger.OpenSQLite(ctx, cfg.SQLitePath, cfg.StartingChips)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Database connected successfully", "backend", "sqlite", "path", cfg.SQLitePath)
		return sl, func() { sl.Close() }, nil
	default:
		logger.Warn("no database configured, balances will not survive a restart")
		return ledger.NewMemoryLedger(cfg.StartingChips), func() {}, nil
	}
}

func openStore(ctx context.Context, cfg utils.Config, logger *log.Logger) (sessions.Store, func(), error) {
	if cfg.RedisURL == "" {
		return sessions.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Session store connected", "backend", "redis", "addr", opts.Addr)
	// sessions outlive one timeout window while a payout is retried
	ttl := 3*cfg.Timeout + cfg.ConfirmTimeout
	return sessions.NewRedisStore(rdb, sessionKeyPrefix, ttl), func() { rdb.Close() }, nil
}

func runBot(ctx context.Context, cfg utils.Config, svc *casino.Service, logger *log.Logger) error {
	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN not set - Discord bot will not connect")
		botStatus.Store("no_token")
		<-ctx.Done()
		return nil
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		botStatus.Store("error")
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	bj := cogs.NewBlackjack(session, svc, logger)
	commands := map[string]func(*discordgo.Session, *discordgo.InteractionCreate){
		"ping":      cogs.HandlePing,
		"balance":   cogs.HandleBalance(svc),
		"blackjack": bj.HandleCommand,
	}

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		onReady(s, event, logger)
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if handler, ok := commands[i.ApplicationCommandData().Name]; ok {
				handler(s, i)
			}
		case discordgo.InteractionMessageComponent:
			if !bj.HandleComponent(s, i) {
				logger.Debug("unhandled component", "custom_id", i.MessageComponentData().CustomID)
			}
		}
	})

	if err := session.Open(); err != nil {
		botStatus.Store("connection_failed")
		return fmt.Errorf("open discord connection: %w", err)
	}
	logger.Info("Bot is now running. Press CTRL+C to exit.")
	botStatus.Store("running")

	<-ctx.Done()
	logger.Info("Gracefully shutting down...")
	botStatus.Store("shutting_down")
	return session.Close()
}

func onReady(s *discordgo.Session, event *discordgo.Ready, logger *log.Logger) {
	logger.Info("Discord bot logged in", "user", event.User.Username, "id", event.User.ID)
	botStatus.Store("online")

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{Name: "Blackjack", Type: discordgo.ActivityTypeGame},
		},
		Status: "online",
	}); err != nil {
		logger.Warn("Failed to update status", "err", err)
	}

	if err := registerSlashCommands(s); err != nil {
		logger.Error("Failed to register slash commands", "err", err)
	}
}

func registerSlashCommands(s *discordgo.Session) error {
	commands := append(cogs.GeneralCommands(), cogs.RegisterBlackjackCommands())
	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}
	return nil
}

func runHealthServer(ctx context.Context, port string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Discord Bot Status: %s", botStatus.Load())
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"discord-bot","bot_status":"%s"}`, botStatus.Load())
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Health server starting", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
