package mongodb

import (
    "context"
    "time"

    "usage-alerts/internal/domain/notifications"

    "github.com/walletera/werrors"
    "go.mongodb.org/mongo-driver/v2/bson"
    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotificationBSON uses the event id as the document id: the insert races on
// the primary key, so exactly one of two concurrent deliveries of the same
// event can create the record.
type NotificationBSON struct {
    ID               string    `bson:"_id"`
    UserID           string    `bson:"userId"`
    NotificationType string    `bson:"notificationType"`
    Content          string    `bson:"content"`
    SentAt           time.Time `bson:"sentAt"`
    Status           string    `bson:"status"`
}

type NotificationsRepository struct {
    client         *mongo.Client
    dbName         string
    collectionName string
}

var _ notifications.Repository = (*NotificationsRepository)(nil)

func NewNotificationsRepository(client *mongo.Client, dbName string, collectionName string) *NotificationsRepository {
    return &NotificationsRepository{client: client, dbName: dbName, collectionName: collectionName}
}

func (r *NotificationsRepository) CreateNotification(ctx context.Context, notification notifications.Notification) (bool, werrors.WError) {
    notificationBSON := NotificationBSON{
        ID:               notification.EventID,
        UserID:           notification.UserID,
        NotificationType: notification.NotificationType,
        Content:          notification.Content,
        SentAt:           notification.SentAt,
        Status:           notification.Status,
    }
    coll := r.client.Database(r.dbName).Collection(r.collectionName)
    _, err := coll.InsertOne(ctx, notificationBSON)
    if err != nil {
        if mongo.IsDuplicateKeyError(err) {
            return false, nil
        }
        return false, werrors.NewRetryableInternalError("failed to save notification history: %s", err.Error())
    }
    return true, nil
}

func (r *NotificationsRepository) SearchNotifications(ctx context.Context, params notifications.SearchParams) (notifications.QueryResult, werrors.WError) {
    filter := bson.M{}
    if params.UserID != "" {
        filter["userId"] = params.UserID
    }

    coll := r.client.Database(r.dbName).Collection(r.collectionName)

    total, err := coll.CountDocuments(ctx, filter)
    if err != nil {
        return notifications.QueryResult{}, werrors.NewRetryableInternalError("failed to count notifications: %s", err.Error())
    }

    sort := bson.D{{Key: "sentAt", Value: -1}, {Key: "_id", Value: -1}}
    findOpts := options.Find().SetSort(sort)

    if params.Limit > 0 {
        findOpts.SetLimit(params.Limit)
    }
    if params.Offset > 0 {
        findOpts.SetSkip(params.Offset)
    }

    cursor, err := coll.Find(ctx, filter, findOpts)
    if err != nil {
        return notifications.QueryResult{}, werrors.NewRetryableInternalError("failed to find notifications: %s", err.Error())
    }

    iterator := &Iterator{cursor: cursor}
    return notifications.QueryResult{
        Iterator: iterator,
        Total:    uint64(total),
    }, nil
}
