// Package store provides SQLite-backed persistence for the Mara core.
// It is the unified data layer replacing localStorage in the web client:
// the same four keyed JSON blobs, held in a single SQLite table.
package store

// EnergyLevel is how charged or drained a logged day felt.
type EnergyLevel int

const (
	EnergyDrained EnergyLevel = -1
	EnergyNeutral EnergyLevel = 0
	EnergyCharged EnergyLevel = 1
)

// LogSource attributes a day's mood to the relationship or to outside life.
type LogSource string

const (
	SourceInternal LogSource = "INTERNAL"
	SourceExternal LogSource = "EXTERNAL"
)

// DailyLog is one journaled day. Date is the natural key: saving a second
// log for the same date replaces the first.
type DailyLog struct {
	ID              string      `json:"id"`
	Date            string      `json:"date"` // "2006-01-02"
	Timestamp       int64       `json:"timestamp"`
	Rating          int         `json:"rating"` // 1-10
	Source          LogSource   `json:"source"`
	Energy          EnergyLevel `json:"energy"`
	RedFlag         bool        `json:"redFlag"`
	Vision          bool        `json:"vision"`
	Note            string      `json:"note"`
	CalculatedScore int         `json:"calculatedScore"` // stamped at save time
}

// UrgencyLevel is the concern level of a toxic analysis.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// ValidUrgency reports whether s is one of the four urgency levels.
func ValidUrgency(s string) bool {
	switch UrgencyLevel(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ToxicAnalysis is the five-pillar report produced by the model via the
// saveToxicAnalysis tool. Only the latest analysis is retained.
type ToxicAnalysis struct {
	GaslightingScore int          `json:"gaslighting_score"`
	ControlScore     int          `json:"control_score"`
	VolatilityScore  int          `json:"volatility_score"`
	SummaryText      string       `json:"summary_text"`
	UrgencyLevel     UrgencyLevel `json:"urgency_level"`
	Timestamp        int64        `json:"timestamp"`
}

// UserProfile is the single local user. Exactly one instance exists once
// onboarding completes.
type UserProfile struct {
	Name                 string         `json:"name"`
	PartnerName          string         `json:"partnerName"`
	RelationshipDuration string         `json:"relationshipDuration"`
	IsOnboarded          bool           `json:"isOnboarded"`
	IsPremium            bool           `json:"isPremium"`
	ClarityPoints        int            `json:"clarityPoints"`
	Level                int            `json:"level"`
	ToxicAnalysis        *ToxicAnalysis `json:"toxicAnalysis,omitempty"`
}

// Role of a chat message author.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is immutable once created; ordering is append order.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatSession is one conversation with Mara. Title derives from the first
// user message. Sessions sort descending by LastUpdated.
type ChatSession struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Messages    []ChatMessage `json:"messages"`
	LastUpdated int64         `json:"lastUpdated"`
}

// LoadState reports how a collection read resolved. Corrupt persisted data
// is never surfaced as an error; callers that care (tests, logging) can
// distinguish a genuinely empty store from a recovered one.
type LoadState int

const (
	LoadOK LoadState = iota
	LoadEmpty
	LoadRecovered
)

func (s LoadState) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Storer defines the interface for data persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	GetProfile() *UserProfile
	SaveProfile(p *UserProfile) error
	ListLogs() ([]DailyLog, LoadState)
	UpsertLog(log DailyLog) ([]DailyLog, error)
	ListSessions() ([]ChatSession, LoadState)
	UpsertSession(s ChatSession) ([]ChatSession, error)
	DeleteSession(id string) error
	GetActiveSessionID() (string, bool)
	SetActiveSessionID(id string) error
	ClearActiveSessionID() error
	RecordToxicAnalysis(a ToxicAnalysis) error
	Close() error
}
