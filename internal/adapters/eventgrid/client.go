package eventgrid

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    domainevents "usage-alerts/internal/domain/events"

    "github.com/walletera/eventskit/events"
)

const sasKeyHeader = "aeg-sas-key"

const defaultRequestTimeout = 10 * time.Second

// Client publishes events to an Event Grid style topic endpoint. It wraps
// the event data in the broker envelope and delivers it fire-and-forget:
// transport failures are returned to the caller, never retried here.
type Client struct {
    endpoint   string
    key        string
    httpClient *http.Client
}

var _ events.Publisher = (*Client)(nil)

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
    return func(c *Client) {
        c.httpClient = httpClient
    }
}

func NewClient(endpoint string, key string, opts ...Option) *Client {
    client := &Client{
        endpoint:   endpoint,
        key:        key,
        httpClient: &http.Client{Timeout: defaultRequestTimeout},
    }
    for _, opt := range opts {
        opt(client)
    }
    return client
}

func (c *Client) Publish(ctx context.Context, data events.EventData, info events.RoutingInfo) error {
    payload, err := data.Serialize()
    if err != nil {
        return fmt.Errorf("failed serializing event data: %w", err)
    }

    envelope := domainevents.Envelope{
        ID:          data.ID(),
        Subject:     info.RoutingKey,
        EventType:   data.Type(),
        Data:        payload,
        EventTime:   data.CreatedAt().Format(time.RFC3339),
        DataVersion: domainevents.DataVersion,
    }

    body, err := json.Marshal([]domainevents.Envelope{envelope})
    if err != nil {
        return fmt.Errorf("failed serializing envelope: %w", err)
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
    if err != nil {
        return fmt.Errorf("failed creating event grid request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set(sasKeyHeader, c.key)

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return fmt.Errorf("failed delivering event to event grid: %w", err)
    }
    defer resp.Body.Close()
    _, _ = io.Copy(io.Discard, resp.Body)

    if resp.StatusCode >= http.StatusMultipleChoices {
        return fmt.Errorf("event grid returned status %d", resp.StatusCode)
    }
    return nil
}
