package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"telemetry-be/internal/domain"
	"telemetry-be/pkg/logger"
)

const (
	logsDirName      = "logs"
	usersDirName     = "users"
	statsDirName     = "stats"
	analyticsDirName = "analytics"

	statsFileName = "stats.json"
	jsonExt       = ".json"

	// DayFormat is the log file partition key; lexical order equals
	// chronological order, which the per-user lookup relies on.
	DayFormat = "2006-01-02"

	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrUserNotFound is returned when a client has no persisted user record
var ErrUserNotFound = errors.New("user record not found")

// ErrInvalidClientID is returned for extension ids that cannot be used as
// filesystem path components
var ErrInvalidClientID = errors.New("invalid extension id")

// FileStore persists telemetry as per-client pretty-printed JSON files under
// one data root:
//
//	logs/<id>/<YYYY-MM-DD>.json   log entries for one day, rewritten whole
//	logs/<id>/analytics/...       one file per analytics event
//	users/<id>.json               latest user record
//	stats/<id>/stats.json         cumulative stats record
//	export_<epochMs>.json         export snapshots
//
// Read-modify-write cycles on the same client are serialized by a per-client
// mutex; files themselves are still rewritten in place without fsync.
type FileStore struct {
	root string
	log  *logger.Logger

	mu          sync.Mutex
	clientLocks map[string]*sync.Mutex
}

// NewFileStore bootstraps the data directory tree and returns a store
func NewFileStore(root string, log *logger.Logger) (*FileStore, error) {
	for _, dir := range []string{
		root,
		filepath.Join(root, logsDirName),
		filepath.Join(root, usersDirName),
		filepath.Join(root, statsDirName),
	} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	log.WithField("data_dir", root).Info("File store initialized")

	return &FileStore{
		root:        root,
		log:         log,
		clientLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the data root directory
func (s *FileStore) Root() string {
	return s.root
}

// ValidateClientID rejects identifiers that are empty or unsafe as a path
// component. Callers must run every externally supplied id through this
// before it reaches the filesystem.
func ValidateClientID(id string) error {
	if id == "" || id == "." || id == ".." {
		return ErrInvalidClientID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return ErrInvalidClientID
		}
	}
	return nil
}

// lockClient returns the mutex serializing file access for one client,
// creating it on first use
func (s *FileStore) lockClient(clientID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.clientLocks[clientID]
	if !ok {
		lock = &sync.Mutex{}
		s.clientLocks[clientID] = lock
	}
	return lock
}

// AppendLogEntry appends one entry to the client's day file, rewriting the
// whole file
func (s *FileStore) AppendLogEntry(clientID, day string, entry domain.LogEntry) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}

	lock := s.lockClient(clientID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.root, logsDirName, clientID, day+jsonExt)

	var entries []domain.LogEntry
	if err := s.readJSON(path, &entries); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	entries = append(entries, entry)

	if err := s.writeJSON(path, entries); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

// ReadLogDay loads all entries of one day file. A missing file yields an
// empty slice.
func (s *FileStore) ReadLogDay(clientID, day string) ([]domain.LogEntry, error) {
	if err := ValidateClientID(clientID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, logsDirName, clientID, day+jsonExt)

	var entries []domain.LogEntry
	if err := s.readJSON(path, &entries); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}

// ListLogDays returns the client's day file names (without extension),
// most recent first
func (s *FileStore) ListLogDays(clientID string) ([]string, error) {
	if err := ValidateClientID(clientID); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, logsDirName, clientID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	days := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		days = append(days, strings.TrimSuffix(e.Name(), jsonExt))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// UpdateStats loads (or initializes) the client's stats record, applies the
// update and persists the result, all under the client lock
func (s *FileStore) UpdateStats(clientID string, update func(*domain.StatsRecord)) (*domain.StatsRecord, error) {
	if err := ValidateClientID(clientID); err != nil {
		return nil, err
	}

	lock := s.lockClient(clientID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.root, statsDirName, clientID, statsFileName)

	record := &domain.StatsRecord{Domains: []string{}, ProxyUsage: []domain.ProxyUsageEntry{}}
	if err := s.readJSON(path, record); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}

	update(record)

	if err := s.writeJSON(path, record); err != nil {
		return nil, fmt.Errorf("failed to write stats file: %w", err)
	}
	return record, nil
}

// SaveUser overwrites the client's user record file
func (s *FileStore) SaveUser(clientID string, user *domain.UserRecord) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}

	lock := s.lockClient(clientID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.root, usersDirName, clientID+jsonExt)
	if err := s.writeJSON(path, user); err != nil {
		return fmt.Errorf("failed to write user file: %w", err)
	}
	return nil
}

// LoadUser reads the client's user record, returning ErrUserNotFound when
// none exists
func (s *FileStore) LoadUser(clientID string) (*domain.UserRecord, error) {
	if err := ValidateClientID(clientID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.root, usersDirName, clientID+jsonExt)

	var user domain.UserRecord
	if err := s.readJSON(path, &user); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}
	return &user, nil
}

// CountUsers counts persisted user record files
func (s *FileStore) CountUsers() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, usersDirName))
	if err != nil {
		return 0, fmt.Errorf("failed to list users directory: %w", err)
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), jsonExt) {
			count++
		}
	}
	return count, nil
}

// WriteAnalyticsEvent persists one event as its own file under the client's
// analytics folder and returns the file path. Files are never rewritten or
// consolidated.
func (s *FileStore) WriteAnalyticsEvent(clientID string, event *domain.AnalyticsEvent) (string, error) {
	if err := ValidateClientID(clientID); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%d%s", sanitizeFileToken(event.Type), event.Timestamp, jsonExt)
	path := filepath.Join(s.root, logsDirName, clientID, analyticsDirName, name)

	if err := s.writeJSON(path, event); err != nil {
		return "", fmt.Errorf("failed to write analytics event: %w", err)
	}
	return path, nil
}

// WriteExport writes an export snapshot to the data root and returns the
// file path
func (s *FileStore) WriteExport(snapshot *domain.ExportSnapshot) (string, error) {
	name := fmt.Sprintf("export_%d%s", snapshot.GeneratedAt, jsonExt)
	path := filepath.Join(s.root, name)

	if err := s.writeJSON(path, snapshot); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// sanitizeFileToken maps a free-form event type onto the safe filename
// charset
func sanitizeFileToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "event"
	}
	return b.String()
}

// readJSON unmarshals one file into v. Missing files surface the raw
// os.IsNotExist error for callers to branch on.
func (s *FileStore) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed JSON in %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON pretty-prints v into path, creating parent directories as needed
func (s *FileStore) writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, filePerm)
}
