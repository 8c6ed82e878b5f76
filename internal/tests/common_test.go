package tests

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "time"

    "usage-alerts/internal/app"
    "usage-alerts/internal/domain/events"

    "github.com/cucumber/godog"
    slogwatcher "github.com/walletera/logs-watcher/slog"
    "go.mongodb.org/mongo-driver/v2/bson"
    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
    "go.uber.org/zap"
    "go.uber.org/zap/exp/zapslog"
    "go.uber.org/zap/zapcore"
)

const (
    appKey                    = "app"
    appCtxCancelFuncKey       = "appCtxCancelFuncKey"
    logsWatcherKey            = "logsWatcher"
    rawCallbackKey            = "rawCallback"
    lastResponseKey           = "lastResponse"
    logsWatcherWaitForTimeout = 5 * time.Second
    webhookHttpServerPort     = 8484
    usageAPIHttpServerPort    = 8485
    mongodbURL                = "mongodb://localhost:27017/?retryWrites=true&w=majority"
)

type httpResponse struct {
    statusCode int
    body       []byte
}

var mongodbClient *mongo.Client

func beforeScenarioHook(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
    handler, err := newZapHandler()
    if err != nil {
        return ctx, err
    }
    logsWatcher := slogwatcher.NewWatcher(handler)
    ctx = context.WithValue(ctx, logsWatcherKey, logsWatcher)

    client, err := getMongodbClient()
    if err != nil {
        return ctx, err
    }

    // cleanup database before each scenario
    err = client.Database(app.MongoDBName).Collection(app.MongoDBCollectionName).Drop(ctx)
    if err != nil {
        return nil, err
    }

    return ctx, nil
}

func afterScenarioHook(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
    logsWatcher := logsWatcherFromCtx(ctx)

    appFromCtx(ctx).Stop(ctx)
    foundLogEntry := logsWatcher.WaitFor("usage-alerts stopped", logsWatcherWaitForTimeout)
    if !foundLogEntry {
        return ctx, fmt.Errorf("app termination failed (didn't find expected log entry)")
    }

    err = logsWatcher.Stop()
    if err != nil {
        return ctx, fmt.Errorf("failed stopping the logsWatcher: %w", err)
    }

    return ctx, nil
}

func aRunningUsageAlertsService(ctx context.Context) (context.Context, error) {
    logHandler := logsWatcherFromCtx(ctx).DecoratedHandler()

    appCtx, appCtxCancelFunc := context.WithCancel(ctx)

    usageAlertsApp, err := app.NewApp(
        app.WithMongoDBURL(mongodbURL),
        app.WithWebhookHttpServerPort(webhookHttpServerPort),
        app.WithPublisherConfig(app.PublisherConfig{
            EventGridEndpoint:      webhookURL(),
            EventGridKey:           "test-topic-key",
            UsageAPIHttpServerPort: usageAPIHttpServerPort,
        }),
        app.WithLogHandler(logHandler),
    )
    if err != nil {
        appCtxCancelFunc()
        return ctx, fmt.Errorf("failed initializing usageAlertsApp: %w", err)
    }

    err = usageAlertsApp.Run(appCtx)
    if err != nil {
        appCtxCancelFunc()
        return ctx, fmt.Errorf("failed running usageAlertsApp: %w", err)
    }

    ctx = context.WithValue(ctx, appKey, usageAlertsApp)
    ctx = context.WithValue(ctx, appCtxCancelFuncKey, appCtxCancelFunc)

    foundLogEntry := logsWatcherFromCtx(ctx).WaitFor("usage-alerts started", logsWatcherWaitForTimeout)
    if !foundLogEntry {
        return ctx, fmt.Errorf("usageAlertsApp startup failed (didn't find expected log entry)")
    }

    return ctx, nil
}

func aRawCallback(ctx context.Context, callback *godog.DocString) (context.Context, error) {
    if callback == nil || len(callback.Content) == 0 {
        return ctx, fmt.Errorf("the callback body is empty or was not defined")
    }
    return context.WithValue(ctx, rawCallbackKey, []byte(callback.Content)), nil
}

func theEventIsDeliveredToTheWebhook(ctx context.Context) (context.Context, error) {
    return deliverCallback(ctx, "")
}

func theSameEventIsDeliveredAgain(ctx context.Context) (context.Context, error) {
    return deliverCallback(ctx, "")
}

func theCallbackIsDeliveredWithValidationHeader(ctx context.Context) (context.Context, error) {
    return deliverCallback(ctx, events.SubscriptionValidationEventType)
}

func deliverCallback(ctx context.Context, aegEventType string) (context.Context, error) {
    rawCallback, ok := ctx.Value(rawCallbackKey).([]byte)
    if !ok {
        return ctx, fmt.Errorf("callback body not found in context")
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL(), bytes.NewReader(rawCallback))
    if err != nil {
        return ctx, fmt.Errorf("failed creating webhook request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    if aegEventType != "" {
        req.Header.Set("aeg-event-type", aegEventType)
    }

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        return ctx, fmt.Errorf("failed delivering callback to webhook: %w", err)
    }
    defer resp.Body.Close()

    body, err := io.ReadAll(resp.Body)
    if err != nil {
        return ctx, fmt.Errorf("failed reading webhook response: %w", err)
    }

    return context.WithValue(ctx, lastResponseKey, httpResponse{
        statusCode: resp.StatusCode,
        body:       body,
    }), nil
}

func theWebhookAnswersWithStatus(ctx context.Context, expectedStatus int) (context.Context, error) {
    response, ok := ctx.Value(lastResponseKey).(httpResponse)
    if !ok {
        return ctx, fmt.Errorf("webhook response not found in context")
    }
    if response.statusCode != expectedStatus {
        return ctx, fmt.Errorf("expected webhook status %d, but got %d", expectedStatus, response.statusCode)
    }
    return ctx, nil
}

func theResponseBodyEchoesTheValidationCode(ctx context.Context, expectedCode string) (context.Context, error) {
    response, ok := ctx.Value(lastResponseKey).(httpResponse)
    if !ok {
        return ctx, fmt.Errorf("webhook response not found in context")
    }
    var validationResponse map[string]string
    err := json.Unmarshal(response.body, &validationResponse)
    if err != nil {
        return ctx, fmt.Errorf("failed decoding validation response: %w", err)
    }
    if validationResponse["validationResponse"] != expectedCode {
        return ctx, fmt.Errorf("expected validation code %s, but got %s", expectedCode, validationResponse["validationResponse"])
    }
    return ctx, nil
}

func aUsageAlertIsPublished(ctx context.Context, userID string, usage float64, threshold float64) (context.Context, error) {
    url := fmt.Sprintf(
        "http://127.0.0.1:%d/api/usage/events?userId=%s&usage=%.1f&threshold=%.1f",
        usageAPIHttpServerPort, userID, usage, threshold,
    )
    resp, err := http.Post(url, "application/json", nil)
    if err != nil {
        return ctx, fmt.Errorf("failed publishing usage alert: %w", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return ctx, fmt.Errorf("expected publish status 200, but got %d", resp.StatusCode)
    }
    return ctx, nil
}

func theUsageAlertsServiceProducesTheFollowingLog(ctx context.Context, logMsg string) (context.Context, error) {
    logsWatcher := logsWatcherFromCtx(ctx)
    foundLogEntry := logsWatcher.WaitFor(logMsg, logsWatcherWaitForTimeout)
    if !foundLogEntry {
        return ctx, fmt.Errorf("didn't find expected log entry")
    }
    return ctx, nil
}

func exactlyOneNotificationHistoryRecordExistsForTheEvent(ctx context.Context) (context.Context, error) {
    eventID, err := eventIDFromRawCallback(ctx)
    if err != nil {
        return ctx, err
    }
    return countNotifications(ctx, bson.M{"_id": eventID}, 1)
}

func exactlyOneNotificationHistoryRecordExistsForUser(ctx context.Context, userID string) (context.Context, error) {
    return countNotifications(ctx, bson.M{"userId": userID}, 1)
}

func noNotificationHistoryRecordsExist(ctx context.Context) (context.Context, error) {
    return countNotifications(ctx, bson.M{}, 0)
}

func countNotifications(ctx context.Context, filter bson.M, expectedCount int64) (context.Context, error) {
    client, err := getMongodbClient()
    if err != nil {
        return ctx, err
    }
    coll := client.Database(app.MongoDBName).Collection(app.MongoDBCollectionName)
    count, err := coll.CountDocuments(ctx, filter)
    if err != nil {
        return ctx, fmt.Errorf("failed counting notification history records: %w", err)
    }
    if count != expectedCount {
        return ctx, fmt.Errorf("expected %d notification history records, but found %d", expectedCount, count)
    }
    return ctx, nil
}

func eventIDFromRawCallback(ctx context.Context) (string, error) {
    rawCallback, ok := ctx.Value(rawCallbackKey).([]byte)
    if !ok {
        return "", fmt.Errorf("callback body not found in context")
    }
    var envelopes []events.Envelope
    err := json.Unmarshal(rawCallback, &envelopes)
    if err != nil || len(envelopes) == 0 {
        return "", fmt.Errorf("failed decoding callback envelopes: %w", err)
    }
    var usageAlertEvent events.UsageAlertEvent
    err = json.Unmarshal(envelopes[0].Data, &usageAlertEvent)
    if err != nil {
        return "", fmt.Errorf("failed decoding usage alert event: %w", err)
    }
    return usageAlertEvent.EventID, nil
}

func webhookURL() string {
    return fmt.Sprintf("http://127.0.0.1:%d/api/events/usage", webhookHttpServerPort)
}

func logsWatcherFromCtx(ctx context.Context) *slogwatcher.Watcher {
    value := ctx.Value(logsWatcherKey)
    if value == nil {
        panic("logs watcher not found in context")
    }
    watcher, ok := value.(*slogwatcher.Watcher)
    if !ok {
        panic("logs watcher has invalid type")
    }
    return watcher
}

func appFromCtx(ctx context.Context) *app.App {
    value := ctx.Value(appKey)
    if value == nil {
        panic("usageAlertsApp not found in context")
    }
    usageAlertsApp, ok := value.(*app.App)
    if !ok {
        panic("usageAlertsApp has invalid type")
    }
    return usageAlertsApp
}

func newZapHandler() (slog.Handler, error) {
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
    zapLogger, err := zapConfig.Build()
    if err != nil {
        return nil, err
    }
    if zapLogger.Core() == nil {
        return nil, fmt.Errorf("zapLogger.Core() is nil")
    }
    return zapslog.NewHandler(zapLogger.Core()), nil
}

func getMongodbClient() (*mongo.Client, error) {
    if mongodbClient != nil {
        return mongodbClient, nil
    }

    serverAPI := options.ServerAPI(options.ServerAPIVersion1)
    opts := options.Client().ApplyURI(mongodbURL).SetServerAPIOptions(serverAPI)

    client, err := mongo.Connect(opts)
    if err != nil {
        return nil, err
    }
    mongodbClient = client

    return mongodbClient, nil
}
