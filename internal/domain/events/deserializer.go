package events

import (
    "encoding/json"
    "fmt"
    "log/slog"

    "usage-alerts/pkg/logattr"

    "github.com/walletera/eventskit/events"
    "github.com/walletera/werrors"
)

// SubscriptionValidationEventType is the aeg-event-type header value that
// identifies a callback as a subscription validation request.
const SubscriptionValidationEventType = "SubscriptionValidation"

// Callback is the decoded form of an inbound broker callback: either a
// subscription handshake request or a data event delivery.
type Callback interface {
    isCallback()
}

type HandshakeRequest struct {
    ValidationCode string
}

func (HandshakeRequest) isCallback() {}

// DataEvent wraps a delivered domain event. Event is nil when the envelope
// carries an event type this service does not process.
type DataEvent struct {
    Event events.Event[Handler]
}

func (DataEvent) isCallback() {}

type Deserializer struct {
    logger *slog.Logger
}

var _ events.Deserializer[Handler] = (*Deserializer)(nil)

func NewDeserializer(logger *slog.Logger) *Deserializer {
    return &Deserializer{logger: logger}
}

// DeserializeCallback decodes an inbound callback exactly once at the HTTP
// boundary and returns the matching Callback variant.
func (d *Deserializer) DeserializeCallback(aegEventType string, payload []byte) (Callback, werrors.WError) {
    if aegEventType == SubscriptionValidationEventType {
        return d.deserializeValidationEvent(payload)
    }
    event, err := d.Deserialize(payload)
    if err != nil {
        return nil, werrors.NewUnprocessableMessageError(err.Error())
    }
    return DataEvent{Event: event}, nil
}

// Deserialize decodes a delivered envelope batch into a usage alert event.
// A nil event with a nil error means the delivery carries an event type this
// service does not handle and must be acknowledged without processing.
func (d *Deserializer) Deserialize(rawPayload []byte) (events.Event[Handler], error) {
    envelope, werr := decodeFirstEnvelope(rawPayload)
    if werr != nil {
        return nil, werr
    }

    if envelope.EventType != "" && envelope.EventType != UsageAlertEventType {
        d.logger.Warn(
            "skipping event with unhandled type",
            logattr.EventType(envelope.EventType),
            logattr.EventId(envelope.ID),
        )
        return nil, nil
    }

    var usageAlertEvent UsageAlertEvent
    err := json.Unmarshal(envelope.Data, &usageAlertEvent)
    if err != nil {
        return nil, fmt.Errorf("failed deserializing usage alert event data: %w", err)
    }

    err = validateUsageAlertEvent(usageAlertEvent)
    if err != nil {
        return nil, err
    }

    return usageAlertEvent, nil
}

func (d *Deserializer) deserializeValidationEvent(payload []byte) (Callback, werrors.WError) {
    envelope, werr := decodeFirstEnvelope(payload)
    if werr != nil {
        return nil, werr
    }

    var validationData ValidationData
    err := json.Unmarshal(envelope.Data, &validationData)
    if err != nil {
        return nil, werrors.NewUnprocessableMessageError("failed deserializing validation data: " + err.Error())
    }

    if validationData.ValidationCode == "" {
        return nil, werrors.NewUnprocessableMessageError("validation event has no validationCode")
    }

    return HandshakeRequest{ValidationCode: validationData.ValidationCode}, nil
}

// decodeFirstEnvelope unwraps the delivery batch. The broker may batch
// multiple envelopes per callback; only the first one is processed.
func decodeFirstEnvelope(payload []byte) (Envelope, werrors.WError) {
    var envelopes []Envelope
    err := json.Unmarshal(payload, &envelopes)
    if err != nil {
        return Envelope{}, werrors.NewUnprocessableMessageError("event payload is not an envelope array: " + err.Error())
    }
    if len(envelopes) == 0 {
        return Envelope{}, werrors.NewUnprocessableMessageError("event payload contains no envelopes")
    }
    envelope := envelopes[0]
    if len(envelope.Data) == 0 {
        return Envelope{}, werrors.NewUnprocessableMessageError("envelope has no data field")
    }
    return envelope, nil
}

func validateUsageAlertEvent(event UsageAlertEvent) error {
    if event.EventID == "" {
        return fmt.Errorf("usage alert event has no eventId")
    }
    if event.UserID == "" {
        return fmt.Errorf("usage alert event has no userId")
    }
    if event.Usage < 0 || event.Threshold < 0 {
        return fmt.Errorf("usage alert event has negative usage or threshold")
    }
    return nil
}
