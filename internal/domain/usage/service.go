package usage

import (
    "context"
    "log/slog"

    domainevents "usage-alerts/internal/domain/events"
    "usage-alerts/pkg/logattr"

    "github.com/walletera/eventskit/events"
    "github.com/walletera/werrors"
)

// Service builds usage alert events and hands them to the broker transport.
// It performs no retries; redelivery on failure is the caller's concern.
type Service struct {
    publisher events.Publisher
    logger    *slog.Logger
}

func NewService(publisher events.Publisher, logger *slog.Logger) *Service {
    return &Service{
        publisher: publisher,
        logger:    logger,
    }
}

func (s *Service) PublishUsageAlert(ctx context.Context, userID string, usage float64, threshold float64) werrors.WError {
    if userID == "" {
        return werrors.NewNonRetryableInternalError("userId cannot be empty")
    }
    if usage < 0 || threshold < 0 {
        return werrors.NewNonRetryableInternalError("usage and threshold cannot be negative")
    }

    event := domainevents.NewUsageAlertEvent(userID, usage, threshold)

    err := s.publisher.Publish(ctx, event, events.RoutingInfo{
        RoutingKey: domainevents.UsageEventSubject,
    })
    if err != nil {
        s.logger.Error(
            "failed publishing usage event",
            logattr.Error(err.Error()),
            logattr.UserId(userID),
            logattr.EventId(event.EventID),
        )
        return werrors.NewRetryableInternalError("failed publishing usage event: %s", err.Error())
    }

    s.logger.Info(
        "usage event published",
        logattr.UserId(userID),
        logattr.EventId(event.EventID),
    )
    return nil
}
