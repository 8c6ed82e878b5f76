package usageapi

import (
    "log/slog"
    "net/http"
    "strconv"

    "usage-alerts/internal/domain/usage"
    "usage-alerts/pkg/logattr"
)

// Handler exposes the producer-facing endpoint that turns a detected usage
// excess into a published event.
type Handler struct {
    service *usage.Service
    logger  *slog.Logger
}

func NewHandler(service *usage.Service, logger *slog.Logger) *Handler {
    return &Handler{
        service: service,
        logger:  logger,
    }
}

func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
    query := r.URL.Query()

    userID := query.Get("userId")
    if userID == "" {
        http.Error(w, "missing userId parameter", http.StatusBadRequest)
        return
    }

    usageValue, err := strconv.ParseFloat(query.Get("usage"), 64)
    if err != nil || usageValue < 0 {
        http.Error(w, "invalid usage parameter", http.StatusBadRequest)
        return
    }

    threshold, err := strconv.ParseFloat(query.Get("threshold"), 64)
    if err != nil || threshold < 0 {
        http.Error(w, "invalid threshold parameter", http.StatusBadRequest)
        return
    }

    werr := h.service.PublishUsageAlert(r.Context(), userID, usageValue, threshold)
    if werr != nil {
        h.logger.Error(
            "failed publishing usage event",
            logattr.Error(werr.Message()),
            logattr.UserId(userID),
        )
        w.WriteHeader(http.StatusInternalServerError)
        return
    }

    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte("usage event published"))
}
