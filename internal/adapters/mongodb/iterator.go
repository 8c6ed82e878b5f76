package mongodb

import (
    "context"

    "usage-alerts/internal/domain/notifications"

    "go.mongodb.org/mongo-driver/v2/mongo"
)

type Iterator struct {
    cursor *mongo.Cursor
}

func (i *Iterator) Next() (bool, notifications.Notification, error) {
    if !i.cursor.Next(context.Background()) {
        if err := i.cursor.Err(); err != nil {
            return false, notifications.Notification{}, err
        }
        return false, notifications.Notification{}, nil
    }

    var notificationBSON NotificationBSON
    if err := i.cursor.Decode(&notificationBSON); err != nil {
        return false, notifications.Notification{}, err
    }

    notification := notifications.Notification{
        EventID:          notificationBSON.ID,
        UserID:           notificationBSON.UserID,
        NotificationType: notificationBSON.NotificationType,
        Content:          notificationBSON.Content,
        SentAt:           notificationBSON.SentAt,
        Status:           notificationBSON.Status,
    }
    return true, notification, nil
}
