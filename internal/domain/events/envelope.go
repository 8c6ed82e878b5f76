package events

import "encoding/json"

// Envelope is the broker's outer wrapper around a domain payload. Deliveries
// arrive as a JSON array of envelopes.
type Envelope struct {
    ID              string          `json:"id"`
    Topic           string          `json:"topic,omitempty"`
    Subject         string          `json:"subject"`
    EventType       string          `json:"eventType"`
    Data            json.RawMessage `json:"data"`
    EventTime       string          `json:"eventTime"`
    MetadataVersion string          `json:"metadataVersion,omitempty"`
    DataVersion     string          `json:"dataVersion"`
}

// ValidationData is the payload of the broker's subscription validation
// callback. It only exists during the handshake.
type ValidationData struct {
    ValidationCode string `json:"validationCode"`
    ValidationUrl  string `json:"validationUrl"`
}
