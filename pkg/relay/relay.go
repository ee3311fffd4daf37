// Package relay owns the conversational context between the user and the
// Mara persona. It seeds the model with the persona instruction plus a
// digest of recent logs, forwards user messages, and lands the
// saveToxicAnalysis tool calls back into the store.
//
// Failures here never reach the UI as errors: any transport or processing
// problem degrades to a fixed in-persona fallback reply.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maralabs/gomara/internal/store"
	"github.com/maralabs/gomara/pkg/genai"
	"github.com/maralabs/gomara/pkg/pattern"
)

// Fallback is the reply users see when the model cannot be reached.
const Fallback = "I'm feeling a bit foggy right now. Let's try again in a moment."

// listening fills in when the model answers with no text at all.
const listening = "I'm listening..."

// toolAck is pushed back into the context after a successful save so the
// model knows the report landed.
const toolAck = "TOOL_RESPONSE: Toxic Analysis has been saved successfully to the user's dashboard."

// SaveToxicAnalysisName is the declared callable action.
const SaveToxicAnalysisName = "saveToxicAnalysis"

var (
	// ErrNotStarted means Send was called before StartSession.
	ErrNotStarted = errors.New("relay: session not started")
	// ErrSendInFlight means a Send overlapped an unfinished one. Rapid
	// duplicate submissions are rejected, not queued.
	ErrSendInFlight = errors.New("relay: send already in flight")
)

// saveToxicAnalysisTool mirrors the function declaration the web client
// registered with the model.
var saveToxicAnalysisTool = genai.Tool{
	FunctionDeclarations: []genai.FunctionDeclaration{{
		Name:        SaveToxicAnalysisName,
		Description: "Saves the result of a deep toxicity analysis.",
		Parameters: &genai.Schema{
			Type: "object",
			Properties: map[string]*genai.Schema{
				"gaslighting_score": {Type: "number", Description: "0 to 100"},
				"control_score":     {Type: "number", Description: "0 to 100"},
				"volatility_score":  {Type: "number", Description: "0 to 100"},
				"summary_text":      {Type: "string", Description: "Maras gentle summary of the patterns found"},
				"urgency_level":     {Type: "string", Enum: []string{"low", "medium", "high", "critical"}, Description: "The level of concern"},
			},
			Required: []string{"gaslighting_score", "control_score", "volatility_score", "summary_text", "urgency_level"},
		},
	}},
}

// AnalysisRecorder is the slice of the store the relay writes through.
type AnalysisRecorder interface {
	RecordToxicAnalysis(a store.ToxicAnalysis) error
}

// Relay drives one conversational context at a time.
type Relay struct {
	client   *genai.Client
	recorder AnalysisRecorder
	scanner  *pattern.Scanner
	log      zerolog.Logger

	// onAnalysisSaved tells the UI layer the profile changed underneath it.
	onAnalysisSaved func()

	mu       sync.Mutex
	inFlight bool
	active   bool
	system   string
	history  []genai.Content
}

// New creates a relay. onAnalysisSaved may be nil.
func New(client *genai.Client, recorder AnalysisRecorder, scanner *pattern.Scanner, log zerolog.Logger, onAnalysisSaved func()) *Relay {
	return &Relay{
		client:          client,
		recorder:        recorder,
		scanner:         scanner,
		log:             log,
		onAnalysisSaved: onAnalysisSaved,
	}
}

// StartSession initializes the conversational context: persona instruction,
// a digest of the five most recent logs, and the prior message sequence.
// Must be called whenever the active session changes and after a Reset.
func (r *Relay) StartSession(logs []store.DailyLog, prior []store.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.system = personaInstruction + "\n\nUser Context Logs:\n" + r.digest(logs)

	r.history = make([]genai.Content, 0, len(prior))
	for _, m := range prior {
		r.history = append(r.history, genai.TextContent(string(m.Role), m.Text))
	}
	r.active = true
}

// Reset discards the in-memory context. Persisted session history is
// untouched; the next StartSession re-seeds from it.
func (r *Relay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.system = ""
	r.history = nil
}

// Send forwards one user message and returns the model's reply text. Any
// transport or processing failure yields the fallback string with a nil
// error. ErrNotStarted and ErrSendInFlight are the only hard errors, and
// both are caller bugs rather than runtime conditions.
func (r *Relay) Send(ctx context.Context, text string) (string, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return "", ErrNotStarted
	}
	if r.inFlight {
		r.mu.Unlock()
		return "", ErrSendInFlight
	}
	r.inFlight = true
	r.history = append(r.history, genai.TextContent("user", text))
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	reply, err := r.call(ctx)
	if err != nil {
		// Drop the un-answered user turn so the context stays an alternating
		// sequence; a retry must not send two consecutive user turns.
		r.trimLastTurn()
		r.log.Warn().Err(err).Msg("model call failed, returning fallback")
		return Fallback, nil
	}

	for _, call := range reply.FunctionCalls {
		if call.Name != SaveToxicAnalysisName {
			continue
		}
		if r.handleAnalysis(call) {
			// Inform the model the save succeeded, in the same context.
			if _, err := r.callWith(ctx, genai.TextContent("user", toolAck)); err != nil {
				r.log.Warn().Err(err).Msg("tool acknowledgement failed")
			}
		}
	}

	if reply.Text == "" {
		return listening, nil
	}
	return reply.Text, nil
}

// call sends the current history and appends the model turn on success.
func (r *Relay) call(ctx context.Context) (*genai.Reply, error) {
	r.mu.Lock()
	req := genai.Request{
		Contents:          append([]genai.Content(nil), r.history...),
		SystemInstruction: &genai.Content{Parts: []genai.Part{{Text: r.system}}},
		Tools:             []genai.Tool{saveToxicAnalysisTool},
	}
	r.mu.Unlock()

	reply, err := r.client.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.history = append(r.history, reply.Content)
	r.mu.Unlock()
	return reply, nil
}

func (r *Relay) callWith(ctx context.Context, turn genai.Content) (*genai.Reply, error) {
	r.mu.Lock()
	r.history = append(r.history, turn)
	r.mu.Unlock()
	reply, err := r.call(ctx)
	if err != nil {
		r.trimLastTurn()
	}
	return reply, err
}

func (r *Relay) trimLastTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.history); n > 0 {
		r.history = r.history[:n-1]
	}
}

// analysisArgs is the declared tool argument shape. Scores arrive as JSON
// numbers; truncation toward int matches the stored representation.
type analysisArgs struct {
	GaslightingScore float64 `json:"gaslighting_score"`
	ControlScore     float64 `json:"control_score"`
	VolatilityScore  float64 `json:"volatility_score"`
	SummaryText      string  `json:"summary_text"`
	UrgencyLevel     string  `json:"urgency_level"`
}

// handleAnalysis validates and records one saveToxicAnalysis call.
// Malformed arguments are logged and dropped; the conversation goes on.
func (r *Relay) handleAnalysis(call genai.FunctionCall) bool {
	var args analysisArgs
	if err := json.Unmarshal(call.Args, &args); err != nil {
		r.log.Warn().Err(err).Msg("unparseable saveToxicAnalysis arguments")
		return false
	}
	if !store.ValidUrgency(args.UrgencyLevel) {
		r.log.Warn().Str("urgency", args.UrgencyLevel).Msg("invalid urgency level, analysis dropped")
		return false
	}

	analysis := store.ToxicAnalysis{
		GaslightingScore: int(args.GaslightingScore),
		ControlScore:     int(args.ControlScore),
		VolatilityScore:  int(args.VolatilityScore),
		SummaryText:      args.SummaryText,
		UrgencyLevel:     store.UrgencyLevel(args.UrgencyLevel),
		Timestamp:        time.Now().UnixMilli(),
	}
	if err := r.recorder.RecordToxicAnalysis(analysis); err != nil {
		r.log.Warn().Err(err).Msg("failed to record toxic analysis")
		return false
	}
	if r.onAnalysisSaved != nil {
		r.onAnalysisSaved()
	}
	return true
}

// digest renders the five most recent logs plus the themes the pattern
// scanner sees in their notes.
func (r *Relay) digest(logs []store.DailyLog) string {
	recent := logs
	if len(recent) > 5 {
		recent = recent[:5]
	}

	var sb strings.Builder
	notes := make([]string, 0, len(recent))
	for _, l := range recent {
		fmt.Fprintf(&sb, "Date: %s, Mood: %d/10, Energy: %d, RedFlag: %t, Note: %s\n",
			l.Date, l.Rating, l.Energy, l.RedFlag, l.Note)
		if l.Note != "" {
			notes = append(notes, l.Note)
		}
	}

	if streak := pattern.ConsecutiveRedFlags(logs); streak > 0 {
		fmt.Fprintf(&sb, "Current red-flag streak: %d day(s)\n", streak)
	}
	if r.scanner != nil {
		if kw := r.scanner.Keywords(notes, 5); len(kw) > 0 {
			fmt.Fprintf(&sb, "Recurring note themes: %s\n", strings.Join(kw, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
