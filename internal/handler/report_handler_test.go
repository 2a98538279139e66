package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-be/internal/domain"
	apperrors "telemetry-be/pkg/errors"
)

func TestDashboardScenarioTopDomains(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		rec := app.post(t, "/api/stats", `{"extensionId":"ext1","domain":"example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.get(t, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.DashboardReport
	decodeBody(t, rec, &report)

	assert.Equal(t, 3, report.Summary.TotalRequests)
	assert.Contains(t, report.TopDomains, domain.DomainCount{Domain: "example.com", Count: 3})
}

func TestDashboardScenarioBatchAnalytics(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before domain.DashboardReport
	decodeBody(t, rec, &before)

	body := `{"extensionId":"ext1","type":"batch","data":{"requests":[{"a":1},{"b":2}],"errors":[{"e":1}]}}`
	require.Equal(t, http.StatusOK, app.post(t, "/api/analytics", body).Code)

	rec = app.get(t, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after domain.DashboardReport
	decodeBody(t, rec, &after)

	assert.Equal(t, before.Summary.TotalRequests+2, after.Summary.TotalRequests)
	assert.Equal(t, before.Summary.TotalErrors+1, after.Summary.TotalErrors)
}

func TestDashboardTotalRequestsSplitAcrossClients(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, app.post(t, "/api/stats", `{"extensionId":"ext1","domain":"a.com"}`).Code)
	}
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, app.post(t, "/api/stats", `{"extensionId":"ext2","domain":"b.com"}`).Code)
	}

	rec := app.get(t, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.DashboardReport
	decodeBody(t, rec, &report)
	assert.Equal(t, 5, report.Summary.TotalRequests)
}

func TestUserDetailNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/api/user/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.Envelope
	decodeBody(t, rec, &resp)
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestUserDetailAfterIngestion(t *testing.T) {
	app := newTestApp(t)

	body := `{"extensionId":"ext1","domain":"example.com","proxyConfig":{"host":"proxy1"}}`
	require.Equal(t, http.StatusOK, app.post(t, "/api/stats", body).Code)

	for i := 0; i < 2; i++ {
		logBody := fmt.Sprintf(`{"extensionId":"ext1","timestamp":%d,"message":"m%d"}`, 1000+i, i)
		require.Equal(t, http.StatusOK, app.post(t, "/api/logs", logBody).Code)
	}

	rec := app.get(t, "/api/user/ext1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.UserReport
	decodeBody(t, rec, &report)

	require.NotNil(t, report.User)
	assert.Greater(t, report.User.LastActive, int64(0))
	require.Len(t, report.Logs, 2)
	// newest first
	assert.Equal(t, int64(1001), report.Logs[0].Timestamp)
	assert.Len(t, report.Requests, 1)
	assert.Empty(t, report.Errors)
}
