package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"

	"github.com/maralabs/gomara/pkg/scoring"
)

// Blob keys. The layout mirrors the web client's localStorage keys: four
// independent JSON-encoded values, each written atomically as a whole.
const (
	keyUser          = "user"
	keyLogs          = "logs"
	keySessions      = "chatSessions"
	keyActiveSession = "activeSessionId"
)

// schema holds the single key-value table. Each value is one JSON blob;
// a write replaces the whole value, so there is no partial-write state.
const schema = `
CREATE TABLE IF NOT EXISTS blobs (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// SQLiteStore is the SQLite-backed data store.
// Thread-safe for concurrent WASM callbacks.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore(log zerolog.Logger) (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:", log)
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Blob primitives
// =============================================================================

func (s *SQLiteStore) readBlob(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		// Treated like an absent blob: reads never fail toward the caller.
		s.log.Warn().Err(err).Str("key", key).Msg("blob read failed")
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) writeBlob(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO blobs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) deleteBlob(key string) error {
	if _, err := s.db.Exec(`DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: failed to delete %q: %w", key, err)
	}
	return nil
}

// =============================================================================
// Profile
// =============================================================================

// GetProfile returns the stored profile, or nil if none has been saved.
// A corrupt profile blob degrades to nil; like the collection reads, this
// never fails toward the caller.
func (s *SQLiteStore) GetProfile() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.readBlob(keyUser)
	if !ok {
		return nil
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn().Err(err).Msg("profile blob unparseable, treating as absent")
		return nil
	}
	return &p
}

// SaveProfile overwrites the stored profile.
func (s *SQLiteStore) SaveProfile(p *UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProfileLocked(p)
}

func (s *SQLiteStore) saveProfileLocked(p *UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: failed to encode profile: %w", err)
	}
	return s.writeBlob(keyUser, string(raw))
}

// CompleteOnboarding creates the singleton profile. Points start at zero,
// level at the bottom of the ladder.
func (s *SQLiteStore) CompleteOnboarding(name, partnerName, duration string) (*UserProfile, error) {
	p := &UserProfile{
		Name:                 name,
		PartnerName:          partnerName,
		RelationshipDuration: duration,
		IsOnboarded:          true,
		ClarityPoints:        0,
		Level:                1,
	}
	if err := s.SaveProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// Daily logs
// =============================================================================

// ListLogs returns all logs sorted descending by timestamp. Missing or
// corrupt data degrades to an empty slice; the LoadState tells which.
func (s *SQLiteStore) ListLogs() ([]DailyLog, LoadState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLogsLocked()
}

func (s *SQLiteStore) loadLogsLocked() ([]DailyLog, LoadState) {
	raw, ok := s.readBlob(keyLogs)
	if !ok {
		return []DailyLog{}, LoadEmpty
	}
	var logs []DailyLog
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		s.log.Warn().Err(err).Msg("logs blob unparseable, recovered as empty")
		return []DailyLog{}, LoadRecovered
	}
	sortLogs(logs)
	return logs, LoadOK
}

func sortLogs(logs []DailyLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp > logs[j].Timestamp
	})
}

// UpsertLog saves a log, replacing any existing log for the same date, and
// returns the full updated sequence sorted descending by timestamp.
func (s *SQLiteStore) UpsertLog(log DailyLog) ([]DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLogLocked(log)
}

func (s *SQLiteStore) upsertLogLocked(log DailyLog) ([]DailyLog, error) {
	logs, _ := s.loadLogsLocked()

	filtered := logs[:0:0]
	for _, l := range logs {
		if l.Date != log.Date {
			filtered = append(filtered, l)
		}
	}
	updated := append([]DailyLog{log}, filtered...)
	sortLogs(updated)

	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode logs: %w", err)
	}
	if err := s.writeBlob(keyLogs, string(raw)); err != nil {
		return nil, err
	}
	return updated, nil
}

// NewLogEntry is the user-facing input of one tracker submission.
type NewLogEntry struct {
	Date    string
	Rating  int
	Source  LogSource
	Energy  EnergyLevel
	RedFlag bool
	Vision  bool
	Note    string
}

// SaveLogEntry computes the clarity score for an entry, stamps identity and
// timestamps, upserts it by date and awards the profile its logging points.
// Returns the saved log and the full updated sequence.
func (s *SQLiteStore) SaveLogEntry(e NewLogEntry) (DailyLog, []DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := DailyLog{
		ID:        uuid.NewString(),
		Date:      e.Date,
		Timestamp: time.Now().UnixMilli(),
		Rating:    e.Rating,
		Source:    e.Source,
		Energy:    e.Energy,
		RedFlag:   e.RedFlag,
		Vision:    e.Vision,
		Note:      e.Note,
		CalculatedScore: scoring.ComputeDailyScore(
			e.Rating, int(e.Energy), e.Vision, e.RedFlag, e.Source == SourceExternal),
	}

	updated, err := s.upsertLogLocked(log)
	if err != nil {
		return DailyLog{}, nil, err
	}

	if err := s.awardPointsLocked(scoring.PointsPerLog); err != nil {
		return DailyLog{}, nil, err
	}
	return log, updated, nil
}

func (s *SQLiteStore) awardPointsLocked(points int) error {
	raw, ok := s.readBlob(keyUser)
	if !ok {
		return nil
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn().Err(err).Msg("profile blob unparseable, skipping point award")
		return nil
	}
	p.ClarityPoints += points
	p.Level, _ = scoring.LevelForPoints(p.ClarityPoints)
	return s.saveProfileLocked(&p)
}

// =============================================================================
// Chat sessions
// =============================================================================

// ListSessions returns all sessions sorted descending by last update.
func (s *SQLiteStore) ListSessions() ([]ChatSession, LoadState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadSessionsLocked()
}

func (s *SQLiteStore) loadSessionsLocked() ([]ChatSession, LoadState) {
	raw, ok := s.readBlob(keySessions)
	if !ok {
		return []ChatSession{}, LoadEmpty
	}
	var sessions []ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.log.Warn().Err(err).Msg("sessions blob unparseable, recovered as empty")
		return []ChatSession{}, LoadRecovered
	}
	sortSessions(sessions)
	return sessions, LoadOK
}

func sortSessions(sessions []ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated > sessions[j].LastUpdated
	})
}

// UpsertSession saves a session keyed by id and returns the updated
// sequence sorted descending by last update.
func (s *SQLiteStore) UpsertSession(sess ChatSession) ([]ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, _ := s.loadSessionsLocked()

	filtered := sessions[:0:0]
	for _, c := range sessions {
		if c.ID != sess.ID {
			filtered = append(filtered, c)
		}
	}
	updated := append([]ChatSession{sess}, filtered...)
	sortSessions(updated)

	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode sessions: %w", err)
	}
	if err := s.writeBlob(keySessions, string(raw)); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSession removes a session by id. Deleting the active session also
// clears the active pointer.
func (s *SQLiteStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, _ := s.loadSessionsLocked()
	filtered := sessions[:0:0]
	for _, c := range sessions {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}

	raw, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("store: failed to encode sessions: %w", err)
	}
	if err := s.writeBlob(keySessions, string(raw)); err != nil {
		return err
	}

	if active, ok := s.readBlob(keyActiveSession); ok && active == id {
		return s.deleteBlob(keyActiveSession)
	}
	return nil
}

// GetActiveSessionID returns the active session pointer, if set.
func (s *SQLiteStore) GetActiveSessionID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.readBlob(keyActiveSession)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SetActiveSessionID records which session the user is conversing in.
func (s *SQLiteStore) SetActiveSessionID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBlob(keyActiveSession, id)
}

// ClearActiveSessionID removes the active session pointer.
func (s *SQLiteStore) ClearActiveSessionID() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteBlob(keyActiveSession)
}

// =============================================================================
// Toxic analysis
// =============================================================================

// RecordToxicAnalysis attaches the analysis to the profile and awards the
// analysis points. Silently a no-op when no profile exists yet: an analysis
// must never create a profile as a side effect.
func (s *SQLiteStore) RecordToxicAnalysis(a ToxicAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.readBlob(keyUser)
	if !ok {
		s.log.Warn().Msg("toxic analysis received before onboarding, ignored")
		return nil
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn().Err(err).Msg("profile blob unparseable, analysis ignored")
		return nil
	}

	p.ToxicAnalysis = &a
	p.ClarityPoints += scoring.PointsPerAnalysis
	p.Level, _ = scoring.LevelForPoints(p.ClarityPoints)
	return s.saveProfileLocked(&p)
}
