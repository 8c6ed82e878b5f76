package webhook

import (
    "encoding/json"
    "io"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "usage-alerts/internal/domain/events"
    "usage-alerts/internal/domain/notifications"
    "usage-alerts/pkg/logattr"
)

// EventTypeHeader carries the broker's callback kind. Its value selects the
// handshake branch; data deliveries arrive without it or with another value.
const EventTypeHeader = "aeg-event-type"

// Handler terminates broker HTTP callbacks. It holds no cross-request state,
// so concurrent deliveries (including retries of the same event) are safe.
type Handler struct {
    deserializer  *events.Deserializer
    eventsHandler events.Handler
    repository    notifications.Repository
    logger        *slog.Logger
}

func NewHandler(
    deserializer *events.Deserializer,
    eventsHandler events.Handler,
    repository notifications.Repository,
    logger *slog.Logger,
) *Handler {
    return &Handler{
        deserializer:  deserializer,
        eventsHandler: eventsHandler,
        repository:    repository,
        logger:        logger,
    }
}

// HandleUsageEvents demultiplexes handshake and data callbacks. A non-2xx
// answer is the signal for the broker to redeliver, so every failure path
// ends in a 500.
func (h *Handler) HandleUsageEvents(w http.ResponseWriter, r *http.Request) {
    body, err := io.ReadAll(r.Body)
    if err != nil {
        h.logger.Error("failed reading event callback body", logattr.Error(err.Error()))
        w.WriteHeader(http.StatusInternalServerError)
        return
    }

    callback, werr := h.deserializer.DeserializeCallback(r.Header.Get(EventTypeHeader), body)
    if werr != nil {
        h.logger.Error("failed decoding event callback", logattr.Error(werr.Message()))
        w.WriteHeader(http.StatusInternalServerError)
        return
    }

    switch cb := callback.(type) {
    case events.HandshakeRequest:
        // the broker expects the code echoed inline, within this request
        h.logger.Info("answering subscription validation request")
        writeJSON(w, http.StatusOK, map[string]string{"validationResponse": cb.ValidationCode})
    case events.DataEvent:
        if cb.Event == nil {
            w.WriteHeader(http.StatusOK)
            return
        }
        processingErr := cb.Event.Accept(r.Context(), h.eventsHandler)
        if processingErr != nil {
            h.logger.Error(
                "failed processing usage event",
                logattr.Error(processingErr.Message()),
                logattr.EventId(cb.Event.ID()),
            )
            w.WriteHeader(http.StatusInternalServerError)
            return
        }
        w.WriteHeader(http.StatusOK)
    default:
        h.logger.Error("unknown callback kind")
        w.WriteHeader(http.StatusInternalServerError)
    }
}

// HandleHealthCheck answers without touching any dependency.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte("OK"))
}

type notificationJSON struct {
    EventId          string    `json:"eventId"`
    UserId           string    `json:"userId"`
    NotificationType string    `json:"notificationType"`
    Content          string    `json:"content"`
    SentAt           time.Time `json:"sentAt"`
    Status           string    `json:"status"`
}

type listNotificationsResponseJSON struct {
    Items []notificationJSON `json:"items"`
    Total uint64             `json:"total"`
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
    params := notifications.SearchParams{
        UserID: r.URL.Query().Get("userId"),
    }
    if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
        limit, err := strconv.ParseInt(rawLimit, 10, 64)
        if err != nil || limit < 0 {
            http.Error(w, "invalid limit parameter", http.StatusBadRequest)
            return
        }
        params.Limit = limit
    }
    if rawOffset := r.URL.Query().Get("offset"); rawOffset != "" {
        offset, err := strconv.ParseInt(rawOffset, 10, 64)
        if err != nil || offset < 0 {
            http.Error(w, "invalid offset parameter", http.StatusBadRequest)
            return
        }
        params.Offset = offset
    }

    result, werr := h.repository.SearchNotifications(r.Context(), params)
    if werr != nil {
        h.logger.Error("failed listing notifications", logattr.Error(werr.Message()))
        w.WriteHeader(http.StatusInternalServerError)
        return
    }

    items := make([]notificationJSON, 0)
    for {
        ok, notification, err := result.Iterator.Next()
        if err != nil {
            h.logger.Error("failed listing notifications", logattr.Error(err.Error()))
            w.WriteHeader(http.StatusInternalServerError)
            return
        }
        if !ok {
            break
        }
        items = append(items, notificationJSON{
            EventId:          notification.EventID,
            UserId:           notification.UserID,
            NotificationType: notification.NotificationType,
            Content:          notification.Content,
            SentAt:           notification.SentAt,
            Status:           notification.Status,
        })
    }

    writeJSON(w, http.StatusOK, listNotificationsResponseJSON{
        Items: items,
        Total: result.Total,
    })
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(body)
}
