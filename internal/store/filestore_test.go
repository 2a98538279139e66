package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-be/internal/domain"
	"telemetry-be/pkg/logger"
)

func newTestStore(t *testing.T) *FileStore {
	s, err := NewFileStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewFileStoreBootstrapsTree(t *testing.T) {
	root := t.TempDir()
	_, err := NewFileStore(root, logger.NewNop())
	require.NoError(t, err)

	for _, dir := range []string{"logs", "users", "stats"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestValidateClientID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "ext1", false},
		{"uuid style", "a1b2c3d4-e5f6", false},
		{"dots and underscores", "my.client_01", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"traversal", "../../etc/passwd", true},
		{"space", "a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClientID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClientID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppendLogEntryAndReadBack(t *testing.T) {
	s := newTestStore(t)

	first := domain.LogEntry{Timestamp: 100, Type: "info", Message: "started"}
	second := domain.LogEntry{Timestamp: 200, Type: "error", Message: "boom"}

	require.NoError(t, s.AppendLogEntry("ext1", "2024-06-01", first))
	require.NoError(t, s.AppendLogEntry("ext1", "2024-06-01", second))

	entries, err := s.ReadLogDay("ext1", "2024-06-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "started", entries[0].Message)
	assert.Equal(t, "boom", entries[1].Message)

	// files are pretty-printed
	data, err := os.ReadFile(filepath.Join(s.Root(), "logs", "ext1", "2024-06-01.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestAppendLogEntryRejectsInvalidID(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendLogEntry("../evil", "2024-06-01", domain.LogEntry{})
	assert.ErrorIs(t, err, ErrInvalidClientID)

	// nothing written
	entries, err := os.ReadDir(filepath.Join(s.Root(), "logs"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadLogDayMissingFile(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.ReadLogDay("ext1", "2024-06-01")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestListLogDaysSortedDescending(t *testing.T) {
	s := newTestStore(t)

	for _, day := range []string{"2024-06-01", "2024-06-03", "2024-06-02"} {
		require.NoError(t, s.AppendLogEntry("ext1", day, domain.LogEntry{Timestamp: 1}))
	}

	days, err := s.ListLogDays("ext1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-03", "2024-06-02", "2024-06-01"}, days)
}

func TestListLogDaysSkipsAnalyticsDir(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendLogEntry("ext1", "2024-06-01", domain.LogEntry{Timestamp: 1}))
	_, err := s.WriteAnalyticsEvent("ext1", &domain.AnalyticsEvent{Type: "request", Timestamp: 42})
	require.NoError(t, err)

	days, err := s.ListLogDays("ext1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01"}, days)
}

func TestUpdateStatsInitializesRecord(t *testing.T) {
	s := newTestStore(t)

	record, err := s.UpdateStats("ext1", func(r *domain.StatsRecord) {
		r.TotalRequests++
		r.Domains = append(r.Domains, "example.com")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.TotalRequests)
	assert.Equal(t, []string{"example.com"}, record.Domains)

	// persisted under stats/<id>/stats.json
	data, err := os.ReadFile(filepath.Join(s.Root(), "stats", "ext1", "stats.json"))
	require.NoError(t, err)

	var onDisk domain.StatsRecord
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, int64(1), onDisk.TotalRequests)
}

func TestUpdateStatsConcurrentIncrements(t *testing.T) {
	s := newTestStore(t)

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.UpdateStats("ext1", func(r *domain.StatsRecord) {
				r.TotalRequests++
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := s.UpdateStats("ext1", func(r *domain.StatsRecord) {})
	require.NoError(t, err)
	assert.Equal(t, int64(workers), record.TotalRequests)
}

func TestUpdateStatsMalformedFile(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.Root(), "stats", "ext1", "stats.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.UpdateStats("ext1", func(r *domain.StatsRecord) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed JSON")
}

func TestSaveAndLoadUser(t *testing.T) {
	s := newTestStore(t)

	user := &domain.UserRecord{
		LastActive:  1700000000000,
		ProxyConfig: json.RawMessage(`{"host":"proxy1.example.com"}`),
		Domains:     []string{"a.com"},
		IP:          "1.2.3.4",
		UserAgent:   "test-agent",
	}
	require.NoError(t, s.SaveUser("ext1", user))

	loaded, err := s.LoadUser("ext1")
	require.NoError(t, err)
	assert.Equal(t, user.LastActive, loaded.LastActive)
	assert.Equal(t, user.Domains, loaded.Domains)
	assert.JSONEq(t, string(user.ProxyConfig), string(loaded.ProxyConfig))
}

func TestLoadUserNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadUser("ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCountUsers(t *testing.T) {
	s := newTestStore(t)

	count, err := s.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.SaveUser("ext1", &domain.UserRecord{LastActive: 1}))
	require.NoError(t, s.SaveUser("ext2", &domain.UserRecord{LastActive: 2}))

	count, err = s.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWriteAnalyticsEvent(t *testing.T) {
	s := newTestStore(t)

	path, err := s.WriteAnalyticsEvent("ext1", &domain.AnalyticsEvent{
		Type:      "request",
		Timestamp: 1700000000000,
		Data:      json.RawMessage(`{"domain":"example.com"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "logs", "ext1", "analytics", "request_1700000000000.json"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAnalyticsEventSanitizesType(t *testing.T) {
	s := newTestStore(t)

	path, err := s.WriteAnalyticsEvent("ext1", &domain.AnalyticsEvent{
		Type:      "../weird type!",
		Timestamp: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "weirdtype_5.json", filepath.Base(path))

	path, err = s.WriteAnalyticsEvent("ext1", &domain.AnalyticsEvent{
		Type:      "///",
		Timestamp: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "event_6.json", filepath.Base(path))
}

func TestWriteExport(t *testing.T) {
	s := newTestStore(t)

	snapshot := &domain.ExportSnapshot{
		GeneratedAt: 1700000000000,
		TotalUsers:  1,
		Users:       map[string]domain.UserRecord{"ext1": {LastActive: 1}},
		Requests:    map[string][]json.RawMessage{"ext1": {json.RawMessage(`{"a":1}`)}},
	}

	path, err := s.WriteExport(snapshot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "export_1700000000000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded domain.ExportSnapshot
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, 1, loaded.TotalUsers)
	assert.Contains(t, loaded.Users, "ext1")
}
