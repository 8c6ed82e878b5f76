package events

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    "github.com/walletera/eventskit/events"
    "github.com/walletera/werrors"
)

const (
    // UsageAlertEventType is the fixed type tag shared by publisher and receiver.
    UsageAlertEventType = "UsageAlert"

    // UsageEventSubject is the subject under which usage alerts are published.
    UsageEventSubject = "phones/usages"

    // DataVersion is the schema version stamped on every published envelope.
    DataVersion = "1.0"
)

type Handler interface {
    HandleUsageAlert(ctx context.Context, usageAlertEvent UsageAlertEvent) werrors.WError
}

// UsageAlertEvent is emitted when a user's data consumption exceeds the
// configured threshold. Immutable once constructed.
type UsageAlertEvent struct {
    EventID   string  `json:"eventId"`
    EventType string  `json:"type"`
    UserID    string  `json:"userId"`
    Usage     float64 `json:"usage"`
    Threshold float64 `json:"threshold"`
    Timestamp string  `json:"timestamp"`
}

var _ events.Event[Handler] = UsageAlertEvent{}

func NewUsageAlertEvent(userID string, usage float64, threshold float64) UsageAlertEvent {
    return UsageAlertEvent{
        EventID:   uuid.NewString(),
        EventType: UsageAlertEventType,
        UserID:    userID,
        Usage:     usage,
        Threshold: threshold,
        Timestamp: time.Now().Format(time.RFC3339),
    }
}

func (e UsageAlertEvent) ID() string {
    return e.EventID
}

func (e UsageAlertEvent) Type() string {
    return e.EventType
}

func (e UsageAlertEvent) AggregateVersion() uint64 {
    return 0
}

func (e UsageAlertEvent) CorrelationID() string {
    return e.EventID
}

func (e UsageAlertEvent) DataContentType() string {
    return "application/json"
}

func (e UsageAlertEvent) CreatedAt() time.Time {
    createdAt, err := time.Parse(time.RFC3339, e.Timestamp)
    if err != nil {
        return time.Time{}
    }
    return createdAt
}

func (e UsageAlertEvent) Serialize() ([]byte, error) {
    return json.Marshal(e)
}

func (e UsageAlertEvent) Accept(ctx context.Context, handler Handler) werrors.WError {
    return handler.HandleUsageAlert(ctx, e)
}
