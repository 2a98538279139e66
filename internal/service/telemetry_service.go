package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"telemetry-be/internal/aggregator"
	"telemetry-be/internal/domain"
	"telemetry-be/internal/store"
	apperrors "telemetry-be/pkg/errors"
	"telemetry-be/pkg/logger"
)

// telemetryService ingests logs, stats and analytics events
type telemetryService struct {
	store  *store.FileStore
	agg    *aggregator.Aggregator
	logger *logger.Logger
}

// NewTelemetryService creates a new telemetry ingestion service
func NewTelemetryService(fileStore *store.FileStore, agg *aggregator.Aggregator, logger *logger.Logger) TelemetryService {
	return &telemetryService{
		store:  fileStore,
		agg:    agg,
		logger: logger,
	}
}

// IngestLog appends a log entry to today's day file and mirrors the raw
// payload into the in-memory events sequence
func (s *telemetryService) IngestLog(ctx context.Context, req *domain.LogRequest, raw json.RawMessage, ip string) (int64, error) {
	now := time.Now().UTC()

	entry := domain.LogEntry{
		Timestamp: req.Timestamp,
		Type:      req.Type,
		Message:   req.Message,
		Proxy:     req.Proxy,
		IP:        ip,
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = now.UnixMilli()
	}
	if entry.Type == "" {
		entry.Type = domain.DefaultLogType
	}

	day := now.Format(store.DayFormat)
	if err := s.store.AppendLogEntry(req.ExtensionID, day, entry); err != nil {
		s.logger.WithError(err).WithField("extension_id", req.ExtensionID).Error("Failed to append log entry")
		return 0, mapStoreError(err)
	}

	s.agg.AppendEvent(req.ExtensionID, raw)

	s.logger.WithFields(map[string]interface{}{
		"extension_id": req.ExtensionID,
		"type":         entry.Type,
		"day":          day,
	}).Debug("Log entry recorded")

	return entry.Timestamp, nil
}

// IngestStats increments the client's cumulative counters and, when the
// report carries a proxy config, overwrites the user record. The user
// record's domains list is replaced wholesale, never merged.
func (s *telemetryService) IngestStats(ctx context.Context, req *domain.StatsRequest, raw json.RawMessage, ip, userAgent string) error {
	now := time.Now().UTC().UnixMilli()

	_, err := s.store.UpdateStats(req.ExtensionID, func(record *domain.StatsRecord) {
		record.TotalRequests++

		if req.Domain != "" && !containsString(record.Domains, req.Domain) {
			record.Domains = append(record.Domains, req.Domain)
		}

		if len(req.Proxy) > 0 {
			record.ProxyUsage = append(record.ProxyUsage, domain.ProxyUsageEntry{
				Proxy:     req.Proxy,
				Timestamp: now,
				Domain:    req.Domain,
				Type:      req.Type,
			})
		}
	})
	if err != nil {
		s.logger.WithError(err).WithField("extension_id", req.ExtensionID).Error("Failed to update stats record")
		return mapStoreError(err)
	}

	if len(req.ProxyConfig) > 0 {
		user := domain.UserRecord{
			LastActive:  now,
			ProxyConfig: req.ProxyConfig,
			Domains:     req.Domains,
			IP:          ip,
			UserAgent:   userAgent,
		}
		if err := s.store.SaveUser(req.ExtensionID, &user); err != nil {
			s.logger.WithError(err).WithField("extension_id", req.ExtensionID).Error("Failed to save user record")
			return mapStoreError(err)
		}
		s.agg.SetUser(req.ExtensionID, user)
	}

	s.agg.AppendRequest(req.ExtensionID, raw)

	s.logger.WithFields(map[string]interface{}{
		"extension_id": req.ExtensionID,
		"domain":       req.Domain,
	}).Debug("Stats recorded")

	return nil
}

// IngestAnalytics always writes one event file, then routes the payload
// into the aggregator: "request" and "error" append data directly, "batch"
// fans out data.requests and data.errors, anything else stays file-only.
func (s *telemetryService) IngestAnalytics(ctx context.Context, req *domain.AnalyticsRequest, ip, userAgent string) (int64, error) {
	event := &domain.AnalyticsEvent{
		SessionID: req.SessionID,
		Timestamp: time.Now().UTC().UnixMilli(),
		Type:      req.Type,
		Data:      req.Data,
		IP:        ip,
		UserAgent: userAgent,
	}

	path, err := s.store.WriteAnalyticsEvent(req.ExtensionID, event)
	if err != nil {
		s.logger.WithError(err).WithField("extension_id", req.ExtensionID).Error("Failed to write analytics event")
		return 0, mapStoreError(err)
	}

	switch req.Type {
	case domain.EventTypeRequest:
		s.agg.AppendRequest(req.ExtensionID, req.Data)
	case domain.EventTypeError:
		s.agg.AppendError(req.ExtensionID, req.Data)
	case domain.EventTypeBatch:
		var batch map[string]json.RawMessage
		if err := json.Unmarshal(req.Data, &batch); err != nil {
			s.logger.WithError(err).WithField("extension_id", req.ExtensionID).Debug("Batch payload not an object, skipping fan-out")
			break
		}
		// requests and errors fan out independently; a wrong-typed
		// field only skips itself
		if requests, ok := rawArray(batch["requests"]); ok {
			s.agg.AppendRequests(req.ExtensionID, requests)
		}
		if errs, ok := rawArray(batch["errors"]); ok {
			s.agg.AppendErrors(req.ExtensionID, errs)
		}
	default:
		// persisted to file only, intentional fallthrough
	}

	s.logger.WithFields(map[string]interface{}{
		"extension_id": req.ExtensionID,
		"type":         req.Type,
		"file":         path,
	}).Debug("Analytics event recorded")

	return event.Timestamp, nil
}

// rawArray decodes raw as a JSON array, reporting whether it was one
func rawArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// containsString reports whether list already holds value (linear scan;
// domain lists stay small)
func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// mapStoreError translates store failures into user-facing error types
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidClientID):
		return apperrors.NewValidationError("extensionId must contain only letters, digits, '.', '-' or '_'")
	case errors.Is(err, store.ErrUserNotFound):
		return apperrors.NewNotFoundError("User not found")
	default:
		return apperrors.FromError(err)
	}
}
