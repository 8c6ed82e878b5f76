package main

import (
    "context"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "usage-alerts/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
    ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer ctxCancel()

    mongodbURL := mustGetEnv("MONGODB_URL")
    webhookHttpServerPort := mustGetIntEnv("WEBHOOK_HTTP_SERVER_PORT")

    opts := []app.Option{
        app.WithMongoDBURL(mongodbURL),
        app.WithWebhookHttpServerPort(webhookHttpServerPort),
    }

    // the publisher side only starts when an event grid topic is configured
    if eventGridEndpoint, found := os.LookupEnv("EVENTGRID_ENDPOINT"); found {
        opts = append(opts, app.WithPublisherConfig(app.PublisherConfig{
            EventGridEndpoint:      eventGridEndpoint,
            EventGridKey:           mustGetEnv("EVENTGRID_KEY"),
            UsageAPIHttpServerPort: mustGetIntEnv("USAGE_API_HTTP_SERVER_PORT"),
        }))
    }

    app, err := app.NewApp(opts...)
    if err != nil {
        panic(err)
    }

    err = app.Run(ctx)
    if err != nil {
        panic(err)
    }

    <-ctx.Done()

    shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
    defer shutdownCtxCancel()

    app.Stop(shutdownCtx)
}

func mustGetEnv(envName string) string {
    value, found := os.LookupEnv(envName)
    if !found {
        panic("env var not defined: " + envName)
    }
    return value
}

func mustGetIntEnv(envName string) int {
    strEnvValue := mustGetEnv(envName)
    intEnvValue, err := strconv.Atoi(strEnvValue)
    if err != nil {
        panic("env var is not an int: " + envName)
    }
    return intEnvValue
}
