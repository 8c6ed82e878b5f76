package senders

import (
    "context"
    "log/slog"

    "usage-alerts/internal/domain/notifications"
    "usage-alerts/pkg/logattr"
)

type PushSender struct {
    logger *slog.Logger
}

var _ notifications.ChannelSender = (*PushSender)(nil)

func NewPushSender(logger *slog.Logger) *PushSender {
    return &PushSender{logger: logger}
}

func (p *PushSender) Name() string {
    return "push"
}

func (p *PushSender) Send(ctx context.Context, userID string, content string) error {
    p.logger.Info(
        "push notification sent",
        logattr.UserId(userID),
        slog.String("content", content),
    )
    return nil
}
