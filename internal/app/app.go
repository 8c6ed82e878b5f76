package app

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "usage-alerts/internal/adapters/eventgrid"
    "usage-alerts/internal/adapters/input/http/usageapi"
    "usage-alerts/internal/adapters/input/http/webhook"
    "usage-alerts/internal/adapters/mongodb"
    "usage-alerts/internal/adapters/senders"
    "usage-alerts/internal/domain/events"
    "usage-alerts/internal/domain/notifications"
    "usage-alerts/internal/domain/usage"
    "usage-alerts/pkg/logattr"

    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
    "go.uber.org/zap"
    "go.uber.org/zap/exp/zapslog"
    "go.uber.org/zap/zapcore"
)

const (
    MongoDBName             = "alerts"
    MongoDBCollectionName   = "notification_history"
    httpServerWriteTimeout  = 30 * time.Second
    httpServerReadTimeout   = 30 * time.Second
)

type PublisherConfig struct {
    EventGridEndpoint      string
    EventGridKey           string
    UsageAPIHttpServerPort int
}

type App struct {
    mongodbURL            string
    webhookHttpServerPort int
    publisherConfig       Optional[PublisherConfig]
    channelSenders        []notifications.ChannelSender
    mongoClient           *mongo.Client
    logHandler            slog.Handler
    logger                *slog.Logger
    httpServersToStop     []*http.Server
}

func NewApp(opts ...Option) (*App, error) {
    app := &App{}
    err := setDefaultOpts(app)
    if err != nil {
        return nil, fmt.Errorf("failed setting default options: %w", err)
    }
    for _, opt := range opts {
        opt(app)
    }
    return app, nil
}

func (app *App) Run(ctx context.Context) error {
    app.logger = slog.
        New(app.logHandler).
        With(logattr.ServiceName("usage-alerts"))

    app.logger.Info("usage-alerts started")

    repository, err := createNotificationsRepository(app)
    if err != nil {
        return fmt.Errorf("error creating notifications repository: %w", err)
    }

    var httpServersToStop []*http.Server

    webhookHttpServer := app.startWebhookHTTPServer(repository)
    httpServersToStop = append(httpServersToStop, webhookHttpServer)

    if app.publisherConfig.Set {
        usageAPIHttpServer := app.startUsageAPIHTTPServer()
        httpServersToStop = append(httpServersToStop, usageAPIHttpServer)
    }
    app.httpServersToStop = httpServersToStop

    return nil
}

func (app *App) Stop(ctx context.Context) {
    err := app.mongoClient.Disconnect(context.TODO())
    if err != nil {
        app.logger.Error("error disconnecting from mongo", logattr.Error(err.Error()))
    }
    for _, httpServer := range app.httpServersToStop {
        err := httpServer.Shutdown(ctx)
        if err != nil {
            app.logger.Error("error stopping http server", logattr.Error(err.Error()))
        }
    }
    app.logger.Info("usage-alerts stopped")
}

func setDefaultOpts(app *App) error {
    zapLogger, err := newZapLogger()
    if err != nil {
        return err
    }
    app.logHandler = zapslog.NewHandler(zapLogger.Core())
    return nil
}

func newZapLogger() (*zap.Logger, error) {
    encoderConfig := zap.NewProductionEncoderConfig()
    encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
    zapConfig := zap.Config{
        Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
        Development:       false,
        DisableStacktrace: true,
        Sampling: &zap.SamplingConfig{
            Initial:    100,
            Thereafter: 100,
        },
        Encoding:         "json",
        EncoderConfig:    encoderConfig,
        OutputPaths:      []string{"stderr"},
        ErrorOutputPaths: []string{"stderr"},
    }
    return zapConfig.Build()
}

func createNotificationsRepository(app *App) (*mongodb.NotificationsRepository, error) {
    serverAPI := options.ServerAPI(options.ServerAPIVersion1)
    opts := options.Client().ApplyURI(app.mongodbURL).SetServerAPIOptions(serverAPI)

    client, err := mongo.Connect(opts)
    if err != nil {
        return nil, fmt.Errorf("error connecting to mongodb: %w", err)
    }
    app.mongoClient = client

    return mongodb.NewNotificationsRepository(client, MongoDBName, MongoDBCollectionName), nil
}

func (app *App) startWebhookHTTPServer(repository notifications.Repository) *http.Server {
    channelSenders := app.channelSenders
    if channelSenders == nil {
        channelSenders = []notifications.ChannelSender{
            senders.NewSmsSender(app.logger.With(logattr.Component("senders.SmsSender"))),
            senders.NewPushSender(app.logger.With(logattr.Component("senders.PushSender"))),
        }
    }

    eventsHandler := notifications.NewEventsHandler(
        repository,
        channelSenders,
        app.logger.With(logattr.Component("notifications.EventsHandler")),
    )
    deserializer := events.NewDeserializer(app.logger.With(logattr.Component("events.Deserializer")))
    webhookHandler := webhook.NewHandler(
        deserializer,
        eventsHandler,
        repository,
        app.logger.With(logattr.Component("http.WebhookHandler")),
    )

    mux := http.NewServeMux()
    mux.HandleFunc("POST /api/events/usage", webhookHandler.HandleUsageEvents)
    mux.HandleFunc("GET /api/events/health", webhookHandler.HandleHealthCheck)
    mux.HandleFunc("GET /api/events/notifications", webhookHandler.ListNotifications)

    return app.startHTTPServer(app.webhookHttpServerPort, mux)
}

func (app *App) startUsageAPIHTTPServer() *http.Server {
    eventGridClient := eventgrid.NewClient(
        app.publisherConfig.Value.EventGridEndpoint,
        app.publisherConfig.Value.EventGridKey,
    )
    usageService := usage.NewService(
        eventGridClient,
        app.logger.With(logattr.Component("usage.Service")),
    )
    usageAPIHandler := usageapi.NewHandler(
        usageService,
        app.logger.With(logattr.Component("http.UsageAPIHandler")),
    )

    mux := http.NewServeMux()
    mux.HandleFunc("POST /api/usage/events", usageAPIHandler.PublishEvent)

    return app.startHTTPServer(app.publisherConfig.Value.UsageAPIHttpServerPort, mux)
}

func (app *App) startHTTPServer(port int, handler http.Handler) *http.Server {
    httpServer := &http.Server{
        Addr:         fmt.Sprintf("0.0.0.0:%d", port),
        Handler:      handler,
        ReadTimeout:  httpServerReadTimeout,
        WriteTimeout: httpServerWriteTimeout,
    }

    go func() {
        defer app.logger.Info("http server stopped")
        if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            app.logger.Error("http server error", logattr.Error(err.Error()))
        }
    }()

    app.logger.Info("http server started")

    return httpServer
}
