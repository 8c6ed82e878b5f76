package logattr

import "log/slog"

func ServiceName(serviceName string) slog.Attr {
    return slog.String("service_name", serviceName)
}

func Component(component string) slog.Attr {
    return slog.String("component", component)
}

func EventId(eventId string) slog.Attr {
    return slog.String("event_id", eventId)
}

func EventType(eventType string) slog.Attr {
    return slog.String("event_type", eventType)
}

func UserId(userId string) slog.Attr {
    return slog.String("user_id", userId)
}

func Channel(channel string) slog.Attr {
    return slog.String("channel", channel)
}

func Error(err string) slog.Attr {
    return slog.String("error", err)
}
