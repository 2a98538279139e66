package handler

import (
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-be/internal/domain"
)

func exportFiles(t *testing.T, dataDir string) []string {
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "export_") {
			files = append(files, e.Name())
		}
	}
	return files
}

func TestExportRejectsBadToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"missing header", nil},
		{"wrong token", map[string]string{"Authorization": "Bearer wrong"}},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}},
		{"empty token", map[string]string{"Authorization": "Bearer "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)

			rec := app.get(t, "/api/export", tt.headers)
			assert.Equal(t, http.StatusForbidden, rec.Code)

			// a rejected export writes nothing
			assert.Empty(t, exportFiles(t, app.dataDir))
		})
	}
}

func TestExportStreamsSnapshot(t *testing.T) {
	app := newTestApp(t)

	body := `{"extensionId":"ext1","domain":"example.com","proxyConfig":{"host":"proxy1"}}`
	require.Equal(t, http.StatusOK, app.post(t, "/api/stats", body).Code)

	rec := app.get(t, "/api/export", map[string]string{
		"Authorization": "Bearer " + testExportToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	disposition := rec.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "export_")

	var snapshot domain.ExportSnapshot
	decodeBody(t, rec, &snapshot)
	assert.Equal(t, 1, snapshot.TotalUsers)
	assert.Contains(t, snapshot.Users, "ext1")
	assert.Len(t, snapshot.Requests["ext1"], 1)

	// and the snapshot landed on disk
	files := exportFiles(t, app.dataDir)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".json"))
}
