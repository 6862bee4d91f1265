package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"showroom/internal/agenda"
	"showroom/internal/api"
	"showroom/internal/auth"
	"showroom/internal/availability"
	"showroom/internal/booking"
	"showroom/internal/config"
	"showroom/internal/database"
	"showroom/internal/events"
	"showroom/internal/firebaseapp"
	"showroom/internal/google"
	"showroom/internal/media"
	"showroom/internal/metrics"
	"showroom/internal/model"
	"showroom/internal/notify"
	"showroom/internal/store"
)

// documentStore is what main needs from either backend.
type documentStore interface {
	store.DocumentStore
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SHOWROOM_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		docs     documentStore
		sqliteDB *store.SQLiteStore
		verifier auth.TokenVerifier
	)
	switch cfg.Database.Driver {
	case config.DriverFirestore:
		app, err := firebaseapp.New(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("firebase init error")
		}
		client, err := firebaseapp.Firestore(ctx, app)
		if err != nil {
			logger.Fatal().Err(err).Msg("firestore init error")
		}
		docs = store.NewFirestoreStore(client, &logger)
		authClient, err := firebaseapp.Auth(ctx, app)
		if err != nil {
			logger.Fatal().Err(err).Msg("firebase auth init error")
		}
		verifier = auth.NewFirebaseVerifier(authClient)
	default:
		sqliteDB, err = store.NewSQLiteStore(cfg.Database.Path, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open db error")
		}
		docs = sqliteDB
	}
	defer docs.Close()

	seed := scheduleSeed(cfg.HoursPath(), &logger)
	var schedule store.ScheduleStore = store.NewScheduleRepository(docs, seed, &logger)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		schedule = store.NewCachedScheduleRepository(schedule, rdb, cfg.CacheTTL(), &logger)
	}

	blocked := store.NewBlockedDatesRepository(docs)
	appointments := store.NewAppointmentRepository(docs)
	vehicles := store.NewVehicleRepository(docs)
	admins := store.NewAdminRepository(docs)

	// Events and booking
	bus := events.NewEventBus(&logger)
	bus.Subscribe(events.ScheduleUpdated, func(ev events.Event) error {
		var u api.ScheduleUpdate
		if err := ev.Decode(&u); err != nil {
			return err
		}
		logger.Info().Int64("revision", u.Revision).Str("by", u.By).Msg("business hours changed")
		return nil
	})

	engine := availability.NewEngine(cfg.SlotInterval(), cfg.HorizonDays(), loc)
	rules := booking.Rules{
		MinAdvance:     cfg.BookingMinAdvance(),
		MaxAdvanceDays: cfg.BookingMaxAdvanceDays(),
	}
	bookings := booking.NewService(schedule, blocked, appointments, bus, engine, rules, &logger)

	// Manager notifications
	var notifier *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		bot.Debug = cfg.Telegram.Debug
		notifier = notify.NewTelegramNotifier(bot, notify.Config{
			ChatIDs:   cfg.Telegram.Managers,
			PerSecond: cfg.Telegram.PerSecond,
			Retry:     notify.DefaultRetryConfig(),
		}, &logger)
		notifier.Subscribe(bus)
		notifier.Start(ctx)
		logger.Info().Int("managers", len(cfg.Telegram.Managers)).Msg("telegram notifications enabled")
	}

	var sheetsSync *google.SheetsService
	if cfg.GoogleSheets.Enabled {
		sheetsAPI, err := google.NewSheetsAPI(ctx, cfg.GoogleSheets.CredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sheets init error")
		}
		sheetsSync = google.NewSheetsService(sheetsAPI, cfg.GoogleSheets.SpreadsheetID, cfg.GoogleSheets.SheetName, &logger)
		if err := sheetsSync.EnsureHeader(ctx); err != nil {
			logger.Warn().Err(err).Msg("could not write sheet header")
		}
		sheetsSync.Subscribe(bus)
		sheetsSync.Start(ctx)
	}

	// Scheduled jobs
	scheduler := cron.New(cron.WithLocation(loc))
	if sqliteDB != nil {
		if err := database.NewBackupService(sqliteDB, cfg.Backup, &logger).Schedule(scheduler); err != nil {
			logger.Fatal().Err(err).Msg("schedule backups error")
		}
	}
	if cfg.Agenda.Enabled && notifier != nil {
		digest := agenda.NewService(bookings, notifier, loc, &logger)
		if _, err := digest.Schedule(scheduler, cfg.Agenda.Schedule); err != nil {
			logger.Fatal().Err(err).Msg("schedule agenda error")
		}
	}
	scheduler.Start()

	// Admin auth
	if verifier == nil {
		dev := auth.StaticVerifier{}
		for token, uid := range cfg.Auth.DevTokens {
			dev[token] = auth.Principal{UID: uid}
		}
		verifier = dev
		if len(dev) > 0 {
			logger.Warn().Int("tokens", len(dev)).Msg("using static dev tokens for admin auth")
		}
	}
	for _, uid := range cfg.Auth.Admins {
		if err := admins.Grant(ctx, uid, ""); err != nil {
			logger.Fatal().Err(err).Str("uid", uid).Msg("grant admin error")
		}
	}
	access := auth.NewService(verifier, admins, logger)

	// Photos
	var (
		images   media.ImageHost
		mediaDir string
	)
	if cfg.Cloudinary.CloudName != "" {
		host, err := media.NewCloudinaryHost(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("cloudinary init error")
		}
		images = host
	} else {
		mediaDir = filepath.Join(filepath.Dir(cfg.Database.Path), "media")
		images = &media.LocalHost{Dir: mediaDir, BaseURL: "/media"}
		logger.Info().Str("dir", mediaDir).Msg("storing vehicle photos locally")
	}

	perSecond, burst := cfg.SubmitRate()
	server := api.NewHTTPServer(api.Deps{
		Bookings: bookings,
		Schedule: schedule,
		Blocked:  blocked,
		Vehicles: vehicles,
		Auth:     access,
		Images:   images,
		Bus:      bus,
	}, api.Options{
		Address:        cfg.ServerAddress(),
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		SubmitPerSec:   perSecond,
		SubmitBurst:    burst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MediaDir:       mediaDir,
	}, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, docs, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server stopped")
			stop()
		}
	}()

	logger.Info().Str("driver", cfg.Database.Driver).Str("timezone", loc.String()).Msg("showroom started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown error")
	}
	<-scheduler.Stop().Done()
	if notifier != nil {
		notifier.Wait()
	}
	if sheetsSync != nil {
		sheetsSync.Wait()
	}
}

// scheduleSeed builds the first business hours document from the hours file,
// falling back to the built-in defaults when the file is absent.
func scheduleSeed(path string, logger *zerolog.Logger) func() *model.ScheduleConfiguration {
	hours, err := config.LoadHoursConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal().Err(err).Str("path", path).Msg("invalid hours config")
		}
		logger.Warn().Str("path", path).Msg("hours config not found, using default hours")
		return nil
	}
	logger.Info().Str("hours", hours.String()).Msg("hours config loaded")
	return hours.Schedule
}

func startHealthServer(ctx context.Context, port int, docs documentStore, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := docs.Ping(ctxPing); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
