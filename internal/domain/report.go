package domain

import "encoding/json"

// DashboardSummary holds the rolled-up counters on the dashboard
type DashboardSummary struct {
	TotalUsers    int     `json:"totalUsers"`
	TotalRequests int     `json:"totalRequests"`
	ActiveUsers   int     `json:"activeUsers"`
	TotalErrors   int     `json:"totalErrors"`
	UptimeSeconds float64 `json:"uptime"`
}

// ProxyCount is one row of the top-proxies ranking
type ProxyCount struct {
	Proxy string `json:"proxy"`
	Count int    `json:"count"`
}

// DomainCount is one row of the top-domains ranking
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// DashboardReport is the GET /api/dashboard response body
type DashboardReport struct {
	Summary      DashboardSummary  `json:"summary"`
	ProxyUsage   []ProxyCount      `json:"proxyUsage"`
	TopDomains   []DomainCount     `json:"topDomains"`
	RecentEvents []json.RawMessage `json:"recentEvents"`
}

// UserReport is the GET /api/user/{extensionId} response body
type UserReport struct {
	User     *UserRecord       `json:"user"`
	Logs     []LogEntry        `json:"logs"`
	Requests []json.RawMessage `json:"requests"`
	Errors   []json.RawMessage `json:"errors"`
}

// ExportSnapshot is the file format written by GET /api/export. Errors and
// events are intentionally left out of the snapshot.
type ExportSnapshot struct {
	GeneratedAt int64                        `json:"generatedAt"`
	TotalUsers  int                          `json:"totalUsers"`
	Users       map[string]UserRecord        `json:"users"`
	Requests    map[string][]json.RawMessage `json:"requests"`
}
