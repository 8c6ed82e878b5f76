package notifications

import "context"

// ChannelSender performs the actual message transmission over one channel
// (SMS, push, etc.). Delivery is best effort: failures are logged by the
// caller and never retried by this system.
type ChannelSender interface {
    Name() string
    Send(ctx context.Context, userID string, content string) error
}
