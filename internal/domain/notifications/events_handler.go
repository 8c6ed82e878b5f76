package notifications

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "usage-alerts/internal/domain/events"
    "usage-alerts/pkg/logattr"

    "github.com/walletera/werrors"
)

type EventsHandler struct {
    repository Repository
    senders    []ChannelSender
    logger     *slog.Logger
}

var _ events.Handler = (*EventsHandler)(nil)

func NewEventsHandler(repository Repository, senders []ChannelSender, logger *slog.Logger) *EventsHandler {
    return &EventsHandler{
        repository: repository,
        senders:    senders,
        logger:     logger,
    }
}

// HandleUsageAlert records the notification and fans it out to the channel
// senders. The audit record is persisted before any channel is invoked, so a
// crash after the insert never loses the trail. Redelivered events (same
// event id) are acknowledged without side effects.
func (h *EventsHandler) HandleUsageAlert(ctx context.Context, event events.UsageAlertEvent) werrors.WError {
    notification := Notification{
        EventID:          event.EventID,
        UserID:           event.UserID,
        NotificationType: TypeAlert,
        Content:          renderAlertContent(event),
        SentAt:           time.Now(),
        Status:           StatusSent,
    }

    created, werr := h.repository.CreateNotification(ctx, notification)
    if werr != nil {
        h.logger.Error(
            "failed saving notification history",
            logattr.Error(werr.Message()),
            logattr.EventId(event.EventID),
            logattr.UserId(event.UserID),
        )
        return werr
    }

    if !created {
        h.logger.Info(
            "duplicate event delivery ignored",
            logattr.EventId(event.EventID),
            logattr.UserId(event.UserID),
        )
        return nil
    }

    h.logger.Info(
        "notification history saved",
        logattr.EventId(event.EventID),
        logattr.UserId(event.UserID),
    )

    for _, sender := range h.senders {
        err := sender.Send(ctx, event.UserID, notification.Content)
        if err != nil {
            // best effort: the audit record stands even when a channel fails
            h.logger.Error(
                "failed sending notification",
                logattr.Channel(sender.Name()),
                logattr.Error(err.Error()),
                logattr.UserId(event.UserID),
            )
        }
    }

    return nil
}

func renderAlertContent(event events.UsageAlertEvent) string {
    return fmt.Sprintf(
        "[Data usage alert] Current usage %.1fGB exceeds the limit of %.1fGB.",
        event.Usage,
        event.Threshold,
    )
}
