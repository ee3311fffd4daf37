//go:build js && wasm

// Command wasm exposes the Mara core to the browser shell. The JS side
// owns rendering only; every mutation and every metric comes through the
// exported functions below.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"github.com/maralabs/gomara/internal/config"
	"github.com/maralabs/gomara/internal/logger"
	"github.com/maralabs/gomara/internal/store"
	"github.com/maralabs/gomara/pkg/chat"
	"github.com/maralabs/gomara/pkg/genai"
	"github.com/maralabs/gomara/pkg/metrics"
	"github.com/maralabs/gomara/pkg/pattern"
	"github.com/maralabs/gomara/pkg/relay"
)

const Version = "1.0.0"

// Global state, initialized by maraInit.
var (
	recordStore *store.SQLiteStore
	chatSvc     *chat.Service
	sessRelay   *relay.Relay
)

func main() {
	fmt.Println("[Mara] WASM Ready v" + Version)

	js.Global().Set("Mara", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(maraInit),
		// Profile
		"completeOnboarding": js.FuncOf(completeOnboarding),
		"getProfile":         js.FuncOf(getProfile),
		// Daily logs
		"saveLog":  js.FuncOf(saveLog),
		"listLogs": js.FuncOf(listLogs),
		// Metrics
		"metrics":      js.FuncOf(computeMetrics),
		"calendar":     js.FuncOf(calendarWindow),
		"buckets":      js.FuncOf(bucketCounts),
		"energySeries": js.FuncOf(energySeries),
		// Chat
		"newChat":     js.FuncOf(newChat),
		"openChat":    js.FuncOf(openChat),
		"listChats":   js.FuncOf(listChats),
		"deleteChat":  js.FuncOf(deleteChat),
		"sendMessage": js.FuncOf(sendMessage),
		"resetChat":   js.FuncOf(resetChat),
	}))

	// Keep the runtime alive for JS callbacks
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// maraInit wires the store, relay and chat service.
// Args: configJSON (string, optional) - {apiKey, model, storePath}
// Returns: JSON result
func maraInit(this js.Value, args []js.Value) interface{} {
	cfg := config.Default()
	if len(args) > 0 && !args[0].IsUndefined() && !args[0].IsNull() {
		var override struct {
			APIKey    string `json:"apiKey"`
			Model     string `json:"model"`
			StorePath string `json:"storePath"`
		}
		if err := json.Unmarshal([]byte(args[0].String()), &override); err != nil {
			return errorResult(fmt.Sprintf("init: invalid config: %v", err))
		}
		if override.APIKey != "" {
			cfg.GenAIAPIKey = override.APIKey
		}
		if override.Model != "" {
			cfg.GenAIModel = override.Model
		}
		if override.StorePath != "" {
			cfg.StorePath = override.StorePath
		}
	}

	log := logger.New("mara-wasm", cfg.LogLevel)

	var err error
	recordStore, err = store.NewSQLiteStoreWithDSN(cfg.StorePath, log)
	if err != nil {
		return errorResult(fmt.Sprintf("init: store: %v", err))
	}

	scanner, err := pattern.NewScanner()
	if err != nil {
		return errorResult(fmt.Sprintf("init: scanner: %v", err))
	}

	client := genai.NewClient(genai.Config{
		APIKey:  cfg.GenAIAPIKey,
		Model:   cfg.GenAIModel,
		BaseURL: cfg.GenAIBaseURL,
		Timeout: cfg.GenAITimeout,
	})

	sessRelay = relay.New(client, recordStore, scanner, log, notifyProfileChanged)
	chatSvc = chat.NewService(recordStore, sessRelay, log)

	result, _ := json.Marshal(map[string]interface{}{
		"success": true,
		"model":   cfg.GenAIModel,
	})
	return string(result)
}

// notifyProfileChanged tells the JS shell to re-read the profile after a
// toxic analysis landed mid-conversation.
func notifyProfileChanged() {
	cb := js.Global().Get("maraOnProfileChanged")
	if cb.Type() == js.TypeFunction {
		cb.Invoke()
	}
}

// =============================================================================
// Profile
// =============================================================================

// completeOnboarding creates the profile.
// Args: name, partnerName, relationshipDuration (strings)
func completeOnboarding(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("completeOnboarding: not initialized")
	}
	if len(args) < 3 {
		return errorResult("completeOnboarding: name, partnerName, duration required")
	}

	p, err := recordStore.CompleteOnboarding(args[0].String(), args[1].String(), args[2].String())
	if err != nil {
		return errorResult(fmt.Sprintf("completeOnboarding: %v", err))
	}
	return marshalResult(p)
}

func getProfile(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("getProfile: not initialized")
	}
	p := recordStore.GetProfile()
	if p == nil {
		return "null"
	}
	return marshalResult(p)
}

// =============================================================================
// Daily logs
// =============================================================================

// saveLog computes the score and upserts one tracker submission.
// Args: entryJSON (string) - {date, rating, source, energy, redFlag, vision, note}
// Returns: JSON {log, logs}
func saveLog(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("saveLog: not initialized")
	}
	if len(args) < 1 {
		return errorResult("saveLog: entry JSON required")
	}

	var entry store.NewLogEntry
	if err := json.Unmarshal([]byte(args[0].String()), &entry); err != nil {
		return errorResult(fmt.Sprintf("saveLog: invalid entry: %v", err))
	}

	saved, logs, err := recordStore.SaveLogEntry(entry)
	if err != nil {
		return errorResult(fmt.Sprintf("saveLog: %v", err))
	}
	return marshalResult(map[string]interface{}{"log": saved, "logs": logs})
}

func listLogs(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("listLogs: not initialized")
	}
	logs, _ := recordStore.ListLogs()
	return marshalResult(logs)
}

// =============================================================================
// Metrics
// =============================================================================

func computeMetrics(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("metrics: not initialized")
	}
	logs, _ := recordStore.ListLogs()
	return marshalResult(metrics.Compute(logs))
}

// calendarWindow returns the 30-day grid, oldest to newest.
func calendarWindow(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("calendar: not initialized")
	}
	logs, _ := recordStore.ListLogs()
	return marshalResult(metrics.CalendarWindow(logs, time.Now(), 30))
}

func bucketCounts(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("buckets: not initialized")
	}
	logs, _ := recordStore.ListLogs()
	return marshalResult(metrics.Buckets(logs))
}

// energySeries returns the last 7 energy values for the weekly chart.
func energySeries(this js.Value, args []js.Value) interface{} {
	if recordStore == nil {
		return errorResult("energySeries: not initialized")
	}
	logs, _ := recordStore.ListLogs()
	return marshalResult(metrics.EnergySeries(logs, 7))
}

// =============================================================================
// Chat
// =============================================================================

func newChat(this js.Value, args []js.Value) interface{} {
	if chatSvc == nil {
		return errorResult("newChat: not initialized")
	}
	sess, err := chatSvc.StartNew()
	if err != nil {
		return errorResult(fmt.Sprintf("newChat: %v", err))
	}
	return marshalResult(sess)
}

// openChat re-seeds the model context from a persisted session.
// Args: sessionID (string)
func openChat(this js.Value, args []js.Value) interface{} {
	if chatSvc == nil {
		return errorResult("openChat: not initialized")
	}
	if len(args) < 1 {
		return errorResult("openChat: session id required")
	}
	sess, err := chatSvc.Open(args[0].String())
	if err != nil {
		return errorResult(fmt.Sprintf("openChat: %v", err))
	}
	return marshalResult(sess)
}

func listChats(this js.Value, args []js.Value) interface{} {
	if chatSvc == nil {
		return errorResult("listChats: not initialized")
	}
	return marshalResult(chatSvc.List())
}

func deleteChat(this js.Value, args []js.Value) interface{} {
	if chatSvc == nil {
		return errorResult("deleteChat: not initialized")
	}
	if len(args) < 1 {
		return errorResult("deleteChat: session id required")
	}
	if err := chatSvc.Delete(args[0].String()); err != nil {
		return errorResult(fmt.Sprintf("deleteChat: %v", err))
	}
	return successResult("deleted")
}

// sendMessage relays one user message.
// Args: sessionID (string), text (string)
// Returns: Promise<JSON> with the model's ChatMessage
func sendMessage(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("sendMessage: session id and text required")
	}
	sessionID := args[0].String()
	text := args[1].String()

	promise, resolve, reject := makePromise()

	go func() {
		if chatSvc == nil {
			reject.Invoke(js.Global().Get("Error").New("sendMessage: not initialized"))
			return
		}
		msg, err := chatSvc.SendMessage(context.Background(), sessionID, text)
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(fmt.Sprintf("sendMessage: %v", err)))
			return
		}
		jsonBytes, _ := json.Marshal(msg)
		resolve.Invoke(string(jsonBytes))
	}()

	return promise
}

// resetChat drops the in-memory model context only.
func resetChat(this js.Value, args []js.Value) interface{} {
	if sessRelay == nil {
		return errorResult("resetChat: not initialized")
	}
	sessRelay.Reset()
	return successResult("reset")
}

// =============================================================================
// Helpers
// =============================================================================

// makePromise creates a JS Promise and returns it along with resolve/reject functions.
func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}

func marshalResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("marshal: %v", err))
	}
	return string(jsonBytes)
}

func errorResult(msg string) interface{} {
	result := map[string]interface{}{"error": msg}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func successResult(msg string) interface{} {
	result := map[string]interface{}{"success": msg}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
