package domain

import "encoding/json"

// Known analytics event types. Anything else is persisted to disk but not
// mirrored into the aggregator.
const (
	EventTypeRequest = "request"
	EventTypeError   = "error"
	EventTypeBatch   = "batch"
)

// DefaultLogType is assigned to log entries that arrive without a type.
const DefaultLogType = "info"

// LogEntry is one row of a per-client, per-day log file
type LogEntry struct {
	Timestamp int64           `json:"timestamp"`
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Proxy     json.RawMessage `json:"proxy,omitempty"`
	IP        string          `json:"ip,omitempty"`
}

// ProxyUsageEntry records one proxied request inside a stats record
type ProxyUsageEntry struct {
	Proxy     json.RawMessage `json:"proxy"`
	Timestamp int64           `json:"timestamp"`
	Domain    string          `json:"domain,omitempty"`
	Type      string          `json:"type,omitempty"`
}

// StatsRecord is the cumulative per-client stats file
type StatsRecord struct {
	TotalRequests int64             `json:"totalRequests"`
	Domains       []string          `json:"domains"`
	ProxyUsage    []ProxyUsageEntry `json:"proxyUsage"`
	Traffic       int64             `json:"traffic"` // reserved, never incremented
}

// UserRecord is the per-client user file. Updates replace the whole record;
// in particular Domains is overwritten, not merged.
type UserRecord struct {
	LastActive  int64           `json:"lastActive"`
	ProxyConfig json.RawMessage `json:"proxyConfig,omitempty"`
	Domains     []string        `json:"domains,omitempty"`
	IP          string          `json:"ip,omitempty"`
	UserAgent   string          `json:"userAgent,omitempty"`
}

// AnalyticsEvent is persisted one file per event under the client's
// analytics folder
type AnalyticsEvent struct {
	SessionID string          `json:"sessionId,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
}

// LogRequest is the POST /api/logs payload
type LogRequest struct {
	ExtensionID string          `json:"extensionId"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	Type        string          `json:"type,omitempty"`
	Message     string          `json:"message,omitempty"`
	Proxy       json.RawMessage `json:"proxy,omitempty"`
}

// StatsRequest is the POST /api/stats payload
type StatsRequest struct {
	ExtensionID string          `json:"extensionId"`
	Type        string          `json:"type,omitempty"`
	URL         string          `json:"url,omitempty"`
	Domain      string          `json:"domain,omitempty"`
	Proxy       json.RawMessage `json:"proxy,omitempty"`
	Domains     []string        `json:"domains,omitempty"`
	ProxyConfig json.RawMessage `json:"proxyConfig,omitempty"`
}

// AnalyticsRequest is the POST /api/analytics payload
type AnalyticsRequest struct {
	ExtensionID string          `json:"extensionId"`
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}
