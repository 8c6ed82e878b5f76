package senders

import (
    "context"
    "log/slog"

    "usage-alerts/internal/domain/notifications"
    "usage-alerts/pkg/logattr"
)

// SmsSender hands the message to the SMS gateway. Transmission mechanics
// live outside this system; the attempt itself is what gets logged.
type SmsSender struct {
    logger *slog.Logger
}

var _ notifications.ChannelSender = (*SmsSender)(nil)

func NewSmsSender(logger *slog.Logger) *SmsSender {
    return &SmsSender{logger: logger}
}

func (s *SmsSender) Name() string {
    return "sms"
}

func (s *SmsSender) Send(ctx context.Context, userID string, content string) error {
    s.logger.Info(
        "sms sent",
        logattr.UserId(userID),
        slog.String("content", content),
    )
    return nil
}
