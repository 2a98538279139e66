package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"telemetry-be/internal/aggregator"
	"telemetry-be/internal/domain"
	"telemetry-be/internal/store"
	"telemetry-be/pkg/logger"
)

const (
	topRankingSize    = 10
	recentEventsLimit = 50
	userLogDaysLimit  = 10
	userLogsLimit     = 100
	activeUserWindow  = 24 * time.Hour
)

// reportService derives dashboard, per-user and export views
type reportService struct {
	store  *store.FileStore
	agg    *aggregator.Aggregator
	logger *logger.Logger
}

// NewReportService creates a new reporting service
func NewReportService(fileStore *store.FileStore, agg *aggregator.Aggregator, logger *logger.Logger) ReportService {
	return &reportService{
		store:  fileStore,
		agg:    agg,
		logger: logger,
	}
}

// Dashboard rolls up the current in-memory state plus one users directory
// listing. Every stored sequence is scanned in full on each call.
func (s *reportService) Dashboard(ctx context.Context) (*domain.DashboardReport, error) {
	totalUsers, err := s.store.CountUsers()
	if err != nil {
		s.logger.WithError(err).Error("Failed to count persisted users")
		return nil, mapStoreError(err)
	}

	users := s.agg.Users()
	requests := s.agg.Requests()
	events := s.agg.Events()

	now := time.Now().UTC().UnixMilli()
	activeSince := now - activeUserWindow.Milliseconds()

	activeUsers := 0
	proxyTally := make(map[string]int)
	for _, user := range users {
		if user.LastActive >= activeSince {
			activeUsers++
		}
		if host := proxyHost(user.ProxyConfig); host != "" {
			proxyTally[host]++
		}
	}

	totalRequests := 0
	domainTally := make(map[string]int)
	for _, seq := range requests {
		totalRequests += len(seq)
		for _, raw := range seq {
			if d := payloadDomain(raw); d != "" {
				domainTally[d]++
			}
		}
	}

	report := &domain.DashboardReport{
		Summary: domain.DashboardSummary{
			TotalUsers:    totalUsers,
			TotalRequests: totalRequests,
			ActiveUsers:   activeUsers,
			TotalErrors:   s.agg.TotalErrors(),
			UptimeSeconds: s.agg.Uptime().Seconds(),
		},
		ProxyUsage:   topProxies(proxyTally),
		TopDomains:   topDomains(domainTally),
		RecentEvents: recentEvents(events),
	}

	return report, nil
}

// UserDetail merges the persisted user record, the most recent day files
// and the client's in-memory request/error sequences
func (s *reportService) UserDetail(ctx context.Context, extensionID string) (*domain.UserReport, error) {
	user, err := s.store.LoadUser(extensionID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	days, err := s.store.ListLogDays(extensionID)
	if err != nil {
		s.logger.WithError(err).WithField("extension_id", extensionID).Error("Failed to list log days")
		return nil, mapStoreError(err)
	}
	if len(days) > userLogDaysLimit {
		days = days[:userLogDaysLimit]
	}

	var logs []domain.LogEntry
	for _, day := range days {
		entries, err := s.store.ReadLogDay(extensionID, day)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"extension_id": extensionID,
				"day":          day,
			}).Error("Failed to read log day")
			return nil, mapStoreError(err)
		}
		logs = append(logs, entries...)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp > logs[j].Timestamp
	})
	if len(logs) > userLogsLimit {
		logs = logs[:userLogsLimit]
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}

	report := &domain.UserReport{
		User:     user,
		Logs:     logs,
		Requests: s.agg.RequestsFor(extensionID),
		Errors:   s.agg.ErrorsFor(extensionID),
	}
	if report.Requests == nil {
		report.Requests = []json.RawMessage{}
	}
	if report.Errors == nil {
		report.Errors = []json.RawMessage{}
	}

	return report, nil
}

// Export snapshots the in-memory users and requests (errors and events are
// excluded) and writes the snapshot to the data root
func (s *reportService) Export(ctx context.Context) (*domain.ExportSnapshot, string, error) {
	users := s.agg.Users()

	snapshot := &domain.ExportSnapshot{
		GeneratedAt: time.Now().UTC().UnixMilli(),
		TotalUsers:  len(users),
		Users:       users,
		Requests:    s.agg.Requests(),
	}

	path, err := s.store.WriteExport(snapshot)
	if err != nil {
		s.logger.WithError(err).Error("Failed to write export snapshot")
		return nil, "", mapStoreError(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"file":        path,
		"total_users": snapshot.TotalUsers,
	}).Info("Export snapshot written")

	return snapshot, path, nil
}

// proxyHost pulls the host field out of an opaque proxy config
func proxyHost(config json.RawMessage) string {
	if len(config) == 0 {
		return ""
	}
	var probe struct {
		Host string `json:"host"`
	}
	if err := json.Unmarshal(config, &probe); err != nil {
		return ""
	}
	return probe.Host
}

// payloadDomain pulls the domain field out of a raw request payload
func payloadDomain(raw json.RawMessage) string {
	var probe struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Domain
}

// payloadTimestamp pulls the timestamp field out of a raw event payload;
// payloads without one sort last in the recent feed
func payloadTimestamp(raw json.RawMessage) int64 {
	var probe struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	return probe.Timestamp
}

// topProxies ranks proxy hosts by count, ties broken by host name for a
// deterministic order
func topProxies(tally map[string]int) []domain.ProxyCount {
	ranked := make([]domain.ProxyCount, 0, len(tally))
	for host, count := range tally {
		ranked = append(ranked, domain.ProxyCount{Proxy: host, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Proxy < ranked[j].Proxy
	})
	if len(ranked) > topRankingSize {
		ranked = ranked[:topRankingSize]
	}
	return ranked
}

// topDomains ranks domains by count with the same tie-break policy
func topDomains(tally map[string]int) []domain.DomainCount {
	ranked := make([]domain.DomainCount, 0, len(tally))
	for d, count := range tally {
		ranked = append(ranked, domain.DomainCount{Domain: d, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Domain < ranked[j].Domain
	})
	if len(ranked) > topRankingSize {
		ranked = ranked[:topRankingSize]
	}
	return ranked
}

// recentEvents flattens every client's event sequence, newest first
func recentEvents(events map[string][]json.RawMessage) []json.RawMessage {
	type stamped struct {
		raw json.RawMessage
		ts  int64
	}

	var all []stamped
	for _, seq := range events {
		for _, raw := range seq {
			all = append(all, stamped{raw: raw, ts: payloadTimestamp(raw)})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ts > all[j].ts
	})
	if len(all) > recentEventsLimit {
		all = all[:recentEventsLimit]
	}

	out := make([]json.RawMessage, len(all))
	for i, ev := range all {
		out[i] = ev.raw
	}
	return out
}
