package service

import (
	"context"
	"encoding/json"

	"telemetry-be/internal/domain"
)

// TelemetryService ingests client reports. raw is the undecoded request
// body, mirrored verbatim into the aggregator so the dashboard sees exactly
// what the client sent.
type TelemetryService interface {
	// IngestLog appends a log entry to the client's day file and returns
	// the resolved timestamp (epoch ms)
	IngestLog(ctx context.Context, req *domain.LogRequest, raw json.RawMessage, ip string) (int64, error)

	// IngestStats folds a usage report into the client's stats record and,
	// when a proxy config is attached, overwrites the user record
	IngestStats(ctx context.Context, req *domain.StatsRequest, raw json.RawMessage, ip, userAgent string) error

	// IngestAnalytics persists one event file and routes the payload into
	// the aggregator by declared type, returning the event timestamp
	IngestAnalytics(ctx context.Context, req *domain.AnalyticsRequest, ip, userAgent string) (int64, error)
}

// ReportService produces read-side views over the aggregator and the file
// store
type ReportService interface {
	Dashboard(ctx context.Context) (*domain.DashboardReport, error)
	UserDetail(ctx context.Context, extensionID string) (*domain.UserReport, error)

	// Export snapshots the in-memory users and requests to a file and
	// returns the snapshot plus the file path
	Export(ctx context.Context) (*domain.ExportSnapshot, string, error)
}

// Services groups the application services for the container
type Services struct {
	Telemetry TelemetryService
	Reports   ReportService
}
