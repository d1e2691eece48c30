package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"interior-sync-service/internal/adapters/googlesheets"
	logger_adapter "interior-sync-service/internal/adapters/logger"
	memory_adapter "interior-sync-service/internal/adapters/memory"
	postgres_adapter "interior-sync-service/internal/adapters/postgres"
	rabbitmq_adapter "interior-sync-service/internal/adapters/rabbitmq"
	"interior-sync-service/internal/adapters/rest"
	"interior-sync-service/internal/adapters/xlsxsheet"
	"interior-sync-service/internal/configs"
	"interior-sync-service/internal/constants"
	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/port"
	"interior-sync-service/internal/core/usecase"
	fluentlogger "interior-sync-service/pkg/fluent_logger"
	"interior-sync-service/pkg/postgres"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_common"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_consumer"
	"interior-sync-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	config    *configs.AppConfig
	apiServer *rest.Server

	commandListener port.SyncCommandListenerPort
	eventProducer   *rabbitmq_producer.Publisher
	connManager     *rabbitmq_common.ConnectionManager
	dbPool          *pgxpool.Pool

	logger       port.LoggerPort
	fluentClient *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	app := &App{config: appConfig}
	ok := false
	defer func() {
		if !ok {
			app.closeResources()
		}
	}()

	// --- логгеры ---
	baseLogger, err := app.initLoggers()
	if err != nil {
		return nil, err
	}
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	app.logger = appLogger

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	initCtx = contextkeys.ContextWithLogger(initCtx, baseLogger)

	// --- хранилище ---
	interiorRepo, syncLogRepo, err := app.initStorage(initCtx)
	if err != nil {
		appLogger.Error("Failed to initialize storage", err, port.Fields{"driver": appConfig.Storage.Driver})
		return nil, err
	}

	// --- транспорт таблиц ---
	// у клиента Google токен обновляется в контексте создания, поэтому не initCtx
	transport, err := app.initTransport(contextkeys.ContextWithLogger(context.Background(), baseLogger))
	if err != nil {
		appLogger.Error("Failed to initialize sheet transport", err, port.Fields{"transport": appConfig.Sheet.Transport})
		return nil, err
	}

	// --- RabbitMQ: издатель событий о завершении прогонов ---
	var reporter port.SyncReporterPort
	if appConfig.RabbitMQ.Enabled {
		connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
		app.connManager, err = rabbitmq_common.NewConnectionManager(
			rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger),
		)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}

		producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
		app.eventProducer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.ExchangeInteriorSync,
			ExchangeType:             constants.ExchangeInteriorSyncType,
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
		}, app.connManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}

		syncReporter, err := rabbitmq_adapter.NewSyncReporterAdapter(app.eventProducer, constants.RoutingKeySyncCompleted)
		if err != nil {
			return nil, err
		}
		reporter = syncReporter
		appLogger.Info("RabbitMQ producer initialized", nil)
	}

	// --- use cases ---
	runner := usecase.NewSyncRunner(syncLogRepo, reporter, usecase.NewRunLock(), usecase.RunnerConfig{
		Workers:    appConfig.Sync.Workers,
		RowTimeout: appConfig.Sync.RowTimeout,
		RunTimeout: appConfig.Sync.RunTimeout,
	})
	pullUC := usecase.NewPullFromSheetUseCase(runner, transport, interiorRepo)
	pushUC := usecase.NewPushToSheetUseCase(runner, transport, interiorRepo)
	previewUC := usecase.NewPreviewSyncUseCase(runner, transport, interiorRepo)
	listLogsUC := usecase.NewListSyncLogsUseCase(syncLogRepo)
	getLogUC := usecase.NewGetSyncLogUseCase(syncLogRepo)
	appLogger.Info("All use cases initialized", nil)

	// --- RabbitMQ: команды на запуск прогонов ---
	if appConfig.RabbitMQ.Enabled {
		commandConsumer, err := rabbitmq_adapter.NewSyncCommandConsumerAdapter(
			rabbitmq_consumer.ConsumerConfig{
				Config:        rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
				QueueName:     constants.QueueSyncCommands,
				DurableQueue:  true,
				ExchangeName:  constants.ExchangeInteriorSync,
				ExchangeType:  constants.ExchangeInteriorSyncType,
				RoutingKey:    constants.RoutingKeySyncCommand,
				PrefetchCount: 2,
				ConsumerTag:   appConfig.AppName + "-sync-commands",
				Retry: rabbitmq_consumer.RetryConfig{
					Enabled:            true,
					Exchange:           constants.RetryExchange,
					WaitQueue:          constants.RetryWaitQueue,
					TTLMillis:          constants.RetryTTLMillis,
					FinalDLXExchange:   constants.FinalDLXExchange,
					FinalDLQ:           constants.FinalDLQ,
					FinalDLQRoutingKey: constants.FinalDLQRoutingKey,
					MaxRetries:         constants.MaxRetries,
				},
			},
			pullUC, pushUC, previewUC, baseLogger, app.connManager,
		)
		if err != nil {
			appLogger.Error("Failed to create sync command consumer", err, nil)
			return nil, err
		}
		app.commandListener = commandConsumer
	}

	// --- REST ---
	handlers := rest.NewSyncHandlers(pullUC, pushUC, previewUC, listLogsUC, getLogUC)
	app.apiServer = rest.NewServer(appConfig.Rest.Port, handlers, baseLogger, appConfig.Rest.AllowedOrigins)

	ok = true
	return app, nil
}

func (a *App) initLoggers() (port.LoggerPort, error) {
	cfg := a.config
	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(cfg.StdoutLogger.Level),
		UseColor: true,
	})
	activeLoggers := []port.LoggerPort{stdoutLogger}

	if cfg.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      cfg.FluentBit.Host,
			Port:      cfg.FluentBit.Port,
			TagPrefix: cfg.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		a.fluentClient = fluentClient

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(cfg.FluentBit.Level))
		if err != nil {
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": cfg.AppName})
	baseLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": cfg.FluentBit.Enabled,
	})
	return baseLogger, nil
}

func (a *App) initStorage(ctx context.Context) (port.InteriorRepositoryPort, port.SyncLogRepositoryPort, error) {
	if a.config.Storage.Driver == configs.StorageDriverMemory {
		contextkeys.LoggerFromContext(ctx).Warn("Using in-memory storage, data will not survive a restart", nil)
		return memory_adapter.NewInteriorRepository(), memory_adapter.NewSyncLogRepository(), nil
	}

	pool, err := postgres.NewClient(ctx, postgres.Config{
		DatabaseURL: a.config.Storage.DatabaseURL,
		MaxConns:    int32(a.config.Storage.MaxConns),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.dbPool = pool

	if err := postgres_adapter.EnsureSchema(ctx, pool); err != nil {
		return nil, nil, err
	}
	interiorRepo, err := postgres_adapter.NewPostgresInteriorRepository(pool)
	if err != nil {
		return nil, nil, err
	}
	syncLogRepo, err := postgres_adapter.NewPostgresSyncLogRepository(pool)
	if err != nil {
		return nil, nil, err
	}
	return interiorRepo, syncLogRepo, nil
}

func (a *App) initTransport(ctx context.Context) (port.SheetTransportPort, error) {
	if a.config.Sheet.Transport == configs.SheetTransportXLSX {
		return xlsxsheet.NewTransport(a.config.Sheet.XLSXDir)
	}
	return googlesheets.NewTransport(ctx, a.config.Sheet.CredentialsFile)
}

// Run запускает HTTP-сервер и слушателя команд и ждет сигнала на завершение
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	appCtx = contextkeys.ContextWithLogger(appCtx, a.logger)

	var wg sync.WaitGroup
	componentErrors := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.apiServer.Start(); err != nil {
			componentErrors <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if a.commandListener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("Starting sync command listener", nil)
			if err := a.commandListener.Start(appCtx); err != nil {
				componentErrors <- fmt.Errorf("sync command listener: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case runErr = <-componentErrors:
		a.logger.Error("Component failed, shutting down", runErr, nil)
	}

	cancelApp()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := a.apiServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("Error during API server shutdown", err, nil)
	}
	wg.Wait()

	a.closeResources()
	return runErr
}

// closeResources закрывает то, что успели открыть; порядок - от потребителей к соединениям
func (a *App) closeResources() {
	if a.commandListener != nil {
		if err := a.commandListener.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing sync command listener", err, nil)
		}
		a.commandListener = nil
	}
	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
		a.eventProducer = nil
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil && a.logger != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
		a.connManager = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
	if a.logger != nil {
		a.logger.Info("Application shut down gracefully.", nil)
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
		a.fluentClient = nil
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
