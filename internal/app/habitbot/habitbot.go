// Package habitbot собирает зависимости бота и управляет его жизненным циклом.
package habitbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/duragon35SG/habit-bot/internal/bot"
	"github.com/duragon35SG/habit-bot/internal/cache"
	"github.com/duragon35SG/habit-bot/internal/config"
	"github.com/duragon35SG/habit-bot/internal/lib/access"
	"github.com/duragon35SG/habit-bot/internal/lib/sl"
	"github.com/duragon35SG/habit-bot/internal/metrics"
	"github.com/duragon35SG/habit-bot/internal/migrations"
	"github.com/duragon35SG/habit-bot/internal/rabbitmq"
	broadcastservice "github.com/duragon35SG/habit-bot/internal/services/broadcast"
	habitservice "github.com/duragon35SG/habit-bot/internal/services/habit"
	reminderservice "github.com/duragon35SG/habit-bot/internal/services/reminder"
	schedulerservice "github.com/duragon35SG/habit-bot/internal/services/scheduler"
	senderservice "github.com/duragon35SG/habit-bot/internal/services/sender"
	"github.com/duragon35SG/habit-bot/internal/storage"
	"github.com/duragon35SG/habit-bot/internal/storage/memory"
	"github.com/duragon35SG/habit-bot/internal/storage/repository"
	"github.com/duragon35SG/habit-bot/internal/transport"
	"github.com/duragon35SG/habit-bot/internal/transport/telegram"
)

const shutdownTimeout = 15 * time.Second

// App бот со всеми зависимостями.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	cache     *cache.Cache
	conn      *amqp.Connection
	ch        *amqp.Channel
	client    *telegram.Client
	bot       *bot.Bot
	sender    *senderservice.SenderService
	scheduler *schedulerservice.SchedulerService
	server    *http.Server
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает приложение: хранилище, необязательные redis и RabbitMQ, клиент Telegram и сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Интерфейс остаётся nil, если redis не настроен.
	var marker schedulerservice.FiredMarker
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		marker = a.cache
	}

	api, err := telegram.NewBotAPI(cfg.Bot)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect telegram: %w", err)
	}
	logger.Info("authorized on telegram", slog.String("bot", api.Self.UserName))
	a.client = telegram.New(api, cfg.Bot, logger)

	admins := access.New(cfg.AdminIDs)
	if admins.Len() == 0 {
		logger.Warn("no admins configured, broadcast is disabled")
	}
	a.sender = senderservice.NewSenderService(a.client, store, cfg.SendTimeout, m, logger)

	var notifier schedulerservice.Notifier = a.sender
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		notifier = senderservice.NewQueueNotifier(a.ch, logger)
	}

	habits := habitservice.NewHabitService(store, logger)
	reminders := reminderservice.NewReminderService(store, logger)
	broadcaster := broadcastservice.NewBroadcastService(store, a.client, admins, cfg.SendTimeout, m, logger)

	a.bot = bot.New(a.client, store, habits, reminders, broadcaster, admins, m, logger)
	a.scheduler = schedulerservice.NewSchedulerService(reminders, store, notifier, marker, cfg.Interval, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, store, registry)
	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return a, nil
}

func openStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage, data will be lost on restart")
		return memory.New(), nil
	}

	db, err := repository.New(cfg.StorageConnectionString, cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	if err = waitForDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Run запускает приём обновлений, планировщик, потребителя очереди и HTTP-сервер.
// Возвращается после отмены ctx, дождавшись обработки принятых событий.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if a.ch != nil {
		err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.RemindersQueue, a.sender.HandleDelivery, a.logger)
		if err != nil {
			a.logger.Error("failed to start reminders consumer", sl.Err(err))
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.scheduler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		transport.Serve(ctx, a.client.Listen(ctx), a.bot, a.cfg.Workers)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		if runErr != nil {
			a.logger.Error("HTTP server failed", sl.Err(runErr))
		}
		<-ctx.Done()
	case <-ctx.Done():
	}

	a.logger.Info("shutting down gracefully")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shutdown HTTP server", sl.Err(err))
	}

	wg.Wait()
	return runErr
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
