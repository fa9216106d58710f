// Package main - точка входа фонового движка Curriculum Engine.
//
// Движок отвечает за жизненный цикл заданий и наград школьной платформы:
// - Материализация персональных заданий из опубликованных планов уроков
// - Начисление наград (exp/points) ровно один раз на задание
// - Досведение зависших заданий (reconciliation) и пересборка дневных сводок
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: реализация репозиториев, кеши, шина событий, планировщик
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arkok-lms/curriculum-engine/config"
	"github.com/arkok-lms/curriculum-engine/internal/application/eventhandler"
	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/messaging"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/inmem"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/postgres"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/projections"
	rediscache "github.com/arkok-lms/curriculum-engine/internal/infrastructure/persistence/redis"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/scheduler"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/scheduler/jobs"
	"github.com/arkok-lms/curriculum-engine/internal/infrastructure/service"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env необязателен: в контейнерах конфигурация приходит из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Curriculum Engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// Школы, которые обслуживает этот инстанс (seed политик, пересборка сводок).
	schoolIDs := splitCSV(getEnv("SCHOOL_IDS", ""))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ (PostgreSQL или in-memory для разработки)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		studentRepo student.Repository
		taskRepo    task.Repository
		policyRepo  reward.PolicyRepository
		eventRepo   reward.EventRepository
		settlements reward.SettlementStore
	)

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		status, err := migrator.Status(ctx)
		if err != nil {
			log.Warn("failed to get migration status", "error", err)
		} else {
			appliedCount := 0
			for _, m := range status {
				if m.IsApplied {
					appliedCount++
				}
			}
			log.Info("migrations completed", "applied", appliedCount, "total", len(status))
		}

		studentRepo = postgres.NewStudentRepository(dbConn)
		taskRepo = postgres.NewTaskRepository(dbConn)
		policyRepo = postgres.NewPolicyRepository(dbConn)
		eventRepo = postgres.NewEventRepository(dbConn)
		settlements = postgres.NewSettlementStore(dbConn)
	} else {
		// Без DATABASE_URL движок работает на in-memory хранилище.
		// Подходит только для локальной разработки: данные живут до рестарта.
		log.Warn("DATABASE_URL is not set, using in-memory storage")
		store := inmem.NewStore()
		studentRepo = store.Students()
		taskRepo = store.Tasks()
		policyRepo = store.Policies()
		eventRepo = store.Events()
		settlements = store.Settlement()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. КЕШИ (Redis или in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache    *rediscache.Cache
		studentCache  student.Cache
		progressCache curriculum.ProgressCache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
		redisCfg := rediscache.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = rediscache.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-memory caches", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	if redisCache != nil {
		studentCache = rediscache.NewStudentCache(redisCache)
		progressCache = rediscache.NewProgressCache(redisCache)
	} else {
		studentCache = inmem.NewStudentCache()
		progressCache = inmem.NewProgressCache()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ШИНА СОБЫТИЙ И ВНЕШНИЙ BROADCAST
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// Broadcast уходит в отдельный канал, а не во внутреннюю шину:
	// обработчики сами переотправляют reward.task_settled наружу, и общий
	// канал зациклил бы доставку.
	var broadcastBus shared.EventPublisher
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:      &redisBusClient{cache: redisCache, ctx: ctx},
			ChannelName: "curriculum:broadcast",
			Logger:      log,
		})
		if err != nil {
			return fmt.Errorf("failed to create broadcast bus: %w", err)
		}
		defer func() { _ = redisBus.Close() }()
		broadcastBus = redisBus
	} else {
		// Без Redis внешним потребителям отправлять некуда.
		log.Warn("Redis is disabled, broadcast events stay local")
		broadcastBus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	}

	broadcaster := service.NewBroadcaster(broadcastBus, cfg.Features, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ПРОЕКЦИИ И EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	summaryView := projections.NewDailySummaryView()

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	onTaskSettled := eventhandler.NewOnTaskSettledHandler(
		taskRepo, studentCache, progressCache, summaryView, broadcaster, log)
	onPlanPublished := eventhandler.NewOnPlanPublishedHandler(progressCache, broadcaster, log)
	onProgressOverridden := eventhandler.NewOnProgressOverriddenHandler(progressCache, log)
	onRewardsRolledBack := eventhandler.NewOnRewardsRolledBackHandler(
		studentRepo, studentCache, summaryView, broadcaster, log)

	registrations := []struct {
		eventType shared.EventType
		name      string
		handler   shared.EventHandler
	}{
		{shared.EventTaskSettled, "on_task_settled", onTaskSettled.Handle},
		{shared.EventPlanPublished, "on_plan_published", onPlanPublished.Handle},
		{shared.EventProgressOverridden, "on_progress_overridden", onProgressOverridden.Handle},
		{shared.EventRewardsRolledBack, "on_rewards_rolled_back", onRewardsRolledBack.Handle},
	}
	for _, reg := range registrations {
		if err := dispatcher.Register(reg.eventType, reg.name, reg.handler); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", reg.name, err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SEED ПОЛИТИК НАГРАД
	// ─────────────────────────────────────────────────────────────────────────
	for _, schoolID := range schoolIDs {
		if err := policyRepo.Seed(ctx, schoolID); err != nil {
			return fmt.Errorf("failed to seed reward policies for school %s: %w", schoolID, err)
		}
	}
	if len(schoolIDs) > 0 {
		log.Info("reward policies seeded", "schools", len(schoolIDs))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:   log,
			Timezone: cfg.App.Location,
		})

		if cfg.Features.IsEnabled(config.FeatureReconcileSettlement, nil) {
			reconcileJob := jobs.NewSettleReconcileJob(
				taskRepo, settlements, eventBus, log,
				jobs.SettleReconcileConfig{
					GracePeriod: cfg.Scheduler.ReconcileGracePeriod,
					BatchSize:   cfg.Scheduler.ReconcileBatchSize,
					Timeout:     cfg.Scheduler.JobTimeout,
				})
			if err := sched.Register(reconcileJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileInterval)); err != nil {
				return fmt.Errorf("failed to register reconcile job: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureDailySummary, nil) && len(schoolIDs) > 0 {
			rebuildCfg := jobs.DefaultRebuildSummaryConfig()
			rebuildCfg.SchoolIDs = schoolIDs
			rebuildJob := jobs.NewRebuildSummaryJob(studentRepo, eventRepo, summaryView, log, rebuildCfg)
			if err := sched.Register(rebuildJob, scheduler.MustParseCronExpression(scheduler.EveryHour)); err != nil {
				return fmt.Errorf("failed to register rebuild job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		log.Info("scheduler is disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Curriculum Engine is running", "schools", len(schoolIDs))

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if sched != nil {
			log.Info("stopping scheduler...")
			if err := sched.Stop(); err != nil {
				log.Error("failed to stop scheduler gracefully", "error", err)
			}
		}
		// Диспетчер, шина и база закрываются через defer.
	}()

	select {
	case <-shutdownDone:
		log.Info("shutdown completed successfully")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timed out, exiting anyway")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.Observability.LogFormat == "text" {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv возвращает переменную окружения или значение по умолчанию.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitCSV разбирает список через запятую, отбрасывая пустые элементы.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// These adapt infrastructure implementations to messaging interfaces.
// ══════════════════════════════════════════════════════════════════════════════

// redisBusClient adapts the redis Cache to messaging.RedisClient.
type redisBusClient struct {
	cache *rediscache.Cache
	ctx   context.Context
}

// Publish implements messaging.RedisClient. The message is already a
// serialized envelope, so it goes through the raw client untouched.
func (a *redisBusClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return a.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe implements messaging.RedisClient.
func (a *redisBusClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	pubsub := a.cache.Subscribe(ctx, channels...)
	out := make(chan messaging.RedisMessage)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()

	return out, nil
}

// Close implements messaging.RedisClient. The cache owns the connection,
// so nothing to do here.
func (a *redisBusClient) Close() error {
	return nil
}
