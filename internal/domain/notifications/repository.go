package notifications

import (
    "context"
    "time"

    "github.com/walletera/werrors"
)

const (
    TypeAlert = "ALERT"

    StatusSent   = "SENT"
    StatusFailed = "FAILED"
)

// Notification is the audit record persisted for every processed usage alert.
// Records are never mutated after creation.
type Notification struct {
    EventID          string
    UserID           string
    NotificationType string
    Content          string
    SentAt           time.Time
    Status           string
}

type SearchParams struct {
    UserID string
    Limit  int64
    Offset int64
}

type Iterator interface {
    Next() (bool, Notification, error)
}

type QueryResult struct {
    Iterator Iterator
    Total    uint64
}

type Repository interface {
    // CreateNotification persists the notification keyed by its event id.
    // It reports false when a record for the same event id already exists,
    // which is how redeliveries are detected. The insert-if-absent must be
    // atomic so concurrent deliveries of the same event cannot both win.
    CreateNotification(ctx context.Context, notification Notification) (bool, werrors.WError)
    SearchNotifications(ctx context.Context, params SearchParams) (QueryResult, werrors.WError)
}
