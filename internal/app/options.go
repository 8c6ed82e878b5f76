package app

import (
    "log/slog"

    "usage-alerts/internal/domain/notifications"
)

type Option func(app *App)

func WithMongoDBURL(url string) func(a *App) { return func(a *App) { a.mongodbURL = url } }

func WithWebhookHttpServerPort(port int) func(a *App) {
    return func(a *App) { a.webhookHttpServerPort = port }
}

func WithPublisherConfig(config PublisherConfig) func(a *App) {
    return func(a *App) {
        a.publisherConfig = NewOptional[PublisherConfig](config)
    }
}

func WithChannelSenders(channelSenders ...notifications.ChannelSender) func(a *App) {
    return func(a *App) { a.channelSenders = channelSenders }
}

func WithLogHandler(handler slog.Handler) func(app *App) {
    return func(app *App) { app.logHandler = handler }
}
