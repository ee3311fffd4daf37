package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maralabs/gomara/pkg/scoring"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeLog(date string, ts int64, score int) DailyLog {
	return DailyLog{
		ID:              "log-" + date,
		Date:            date,
		Timestamp:       ts,
		Rating:          7,
		Source:          SourceInternal,
		Energy:          EnergyNeutral,
		CalculatedScore: score,
	}
}

func TestListLogs_EmptyStore(t *testing.T) {
	s := newTestStore(t)

	logs, state := s.ListLogs()
	assert.Empty(t, logs)
	assert.Equal(t, LoadEmpty, state)
}

func TestListLogs_CorruptBlobRecovers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.writeBlob(keyLogs, "{definitely not json"))

	logs, state := s.ListLogs()
	assert.Empty(t, logs)
	assert.Equal(t, LoadRecovered, state)
}

func TestUpsertLog_ReplacesSameDate(t *testing.T) {
	s := newTestStore(t)

	first := makeLog("2026-08-30", 100, 40)
	second := makeLog("2026-08-30", 200, 85)
	second.ID = "different-id"
	second.Note = "re-logged"

	_, err := s.UpsertLog(first)
	require.NoError(t, err)
	updated, err := s.UpsertLog(second)
	require.NoError(t, err)

	require.Len(t, updated, 1)
	assert.Equal(t, "different-id", updated[0].ID)
	assert.Equal(t, 85, updated[0].CalculatedScore)
	assert.Equal(t, "re-logged", updated[0].Note)
}

func TestUpsertLog_IdempotentOnKey(t *testing.T) {
	s := newTestStore(t)
	log := makeLog("2026-08-30", 100, 40)

	once, err := s.UpsertLog(log)
	require.NoError(t, err)
	twice, err := s.UpsertLog(log)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestListLogs_SortedDescByTimestamp(t *testing.T) {
	s := newTestStore(t)

	// Insert out of order
	for _, l := range []DailyLog{
		makeLog("2026-08-28", 300, 50),
		makeLog("2026-08-26", 100, 50),
		makeLog("2026-08-30", 500, 50),
		makeLog("2026-08-27", 200, 50),
	} {
		_, err := s.UpsertLog(l)
		require.NoError(t, err)
	}

	logs, state := s.ListLogs()
	require.Equal(t, LoadOK, state)
	require.Len(t, logs, 4)
	for i := 1; i < len(logs); i++ {
		assert.GreaterOrEqual(t, logs[i-1].Timestamp, logs[i].Timestamp)
	}
}

func TestSaveLogEntry_ScoresAndAwardsPoints(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CompleteOnboarding("Ana", "Sam", "1-3 years")
	require.NoError(t, err)

	saved, logs, err := s.SaveLogEntry(NewLogEntry{
		Date:   "2026-08-30",
		Rating: 8,
		Source: SourceInternal,
		Energy: EnergyCharged,
		Vision: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 92, saved.CalculatedScore)
	assert.NotEmpty(t, saved.ID)
	assert.NotZero(t, saved.Timestamp)
	require.Len(t, logs, 1)

	p := s.GetProfile()
require.NotNil(t, p)
	assert.Equal(t, scoring.PointsPerLog, p.ClarityPoints)
}

func TestSaveLogEntry_NoProfileStillSaves(t *testing.T) {
	s := newTestStore(t)

	_, logs, err := s.SaveLogEntry(NewLogEntry{
		Date:   "2026-08-30",
		Rating: 5,
		Source: SourceInternal,
	})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	p := s.GetProfile()
assert.Nil(t, p, "saving a log must not conjure a profile")
}

func TestProfile_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	p := s.GetProfile()
assert.Nil(t, p)

	created, err := s.CompleteOnboarding("Ana", "Sam", "4-10 years")
	require.NoError(t, err)
	assert.True(t, created.IsOnboarded)
	assert.Equal(t, 1, created.Level)

	got := s.GetProfile()
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "Sam", got.PartnerName)
}

func TestGetProfile_CorruptBlobDegradesToAbsent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.writeBlob(keyUser, "{not a profile"))

	assert.Nil(t, s.GetProfile())
}

func TestRecordToxicAnalysis_NoProfileIsNoOp(t *testing.T) {
	s := newTestStore(t)

	err := s.RecordToxicAnalysis(ToxicAnalysis{
		GaslightingScore: 70,
		ControlScore:     50,
		VolatilityScore:  60,
		SummaryText:      "patterns found",
		UrgencyLevel:     UrgencyHigh,
		Timestamp:        time.Now().UnixMilli(),
	})
	require.NoError(t, err)

	p := s.GetProfile()
assert.Nil(t, p, "analysis must not create a profile")
}

func TestRecordToxicAnalysis_AttachesAndAwardsPoints(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CompleteOnboarding("Ana", "Sam", "")
	require.NoError(t, err)

	analysis := ToxicAnalysis{
		GaslightingScore: 70,
		ControlScore:     50,
		VolatilityScore:  60,
		SummaryText:      "patterns found",
		UrgencyLevel:     UrgencyHigh,
		Timestamp:        time.Now().UnixMilli(),
	}
	require.NoError(t, s.RecordToxicAnalysis(analysis))

	p := s.GetProfile()
require.NotNil(t, p)
	require.NotNil(t, p.ToxicAnalysis)
	assert.Equal(t, analysis, *p.ToxicAnalysis)
	assert.Equal(t, scoring.PointsPerAnalysis, p.ClarityPoints)
	assert.Equal(t, 3, p.Level, "200 points reaches Pathfinder")
}

func TestSessions_UpsertSortAndDelete(t *testing.T) {
	s := newTestStore(t)

	older := ChatSession{ID: "a", Title: "first", LastUpdated: 100}
	newer := ChatSession{ID: "b", Title: "second", LastUpdated: 200}

	_, err := s.UpsertSession(older)
	require.NoError(t, err)
	sessions, err := s.UpsertSession(newer)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, "b", sessions[0].ID)

	// Upsert by id replaces, not duplicates
	older.Title = "renamed"
	older.LastUpdated = 300
	sessions, err = s.UpsertSession(older)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "renamed", sessions[0].Title)

	require.NoError(t, s.DeleteSession("b"))
	sessions, state := s.ListSessions()
	assert.Equal(t, LoadOK, state)
	require.Len(t, sessions, 1)
	assert.Equal(t, "a", sessions[0].ID)
}

func TestSessions_CorruptBlobRecovers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.writeBlob(keySessions, "[{broken"))

	sessions, state := s.ListSessions()
	assert.Empty(t, sessions)
	assert.Equal(t, LoadRecovered, state)
}

func TestActiveSessionID(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.GetActiveSessionID()
	assert.False(t, ok)

	require.NoError(t, s.SetActiveSessionID("sess-1"))
	id, ok := s.GetActiveSessionID()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", id)

	require.NoError(t, s.ClearActiveSessionID())
	_, ok = s.GetActiveSessionID()
	assert.False(t, ok)
}

func TestDeleteSession_ClearsActivePointer(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpsertSession(ChatSession{ID: "a", LastUpdated: 100})
	require.NoError(t, err)
	require.NoError(t, s.SetActiveSessionID("a"))

	require.NoError(t, s.DeleteSession("a"))
	_, ok := s.GetActiveSessionID()
	assert.False(t, ok)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dsn := dir + "/mara.db"

	s, err := NewSQLiteStoreWithDSN(dsn, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.UpsertLog(makeLog("2026-08-30", 100, 60))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStoreWithDSN(dsn, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	logs, state := s2.ListLogs()
	assert.Equal(t, LoadOK, state)
	require.Len(t, logs, 1)
	assert.Equal(t, "2026-08-30", logs[0].Date)
}
