// Package chat manages Mara conversation sessions: creation, titles,
// message bookkeeping and the handoff to the relay. The session id is an
// explicit parameter on every operation; the only ambient state is the
// persisted active-session pointer the UI restores from.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maralabs/gomara/internal/store"
	"github.com/maralabs/gomara/pkg/relay"
)

// titleRunes caps the derived session title length.
const titleRunes = 30

// Service coordinates sessions between the store and the relay.
type Service struct {
	store store.Storer
	relay *relay.Relay
	log   zerolog.Logger
}

// NewService creates a chat service.
func NewService(s store.Storer, r *relay.Relay, log zerolog.Logger) *Service {
	return &Service{store: s, relay: r, log: log}
}

// =============================================================================
// Session lifecycle
// =============================================================================

// StartNew creates an empty session, marks it active and seeds a fresh
// conversational context from the current logs.
func (s *Service) StartNew() (*store.ChatSession, error) {
	sess := store.ChatSession{
		ID:          uuid.NewString(),
		Title:       "New conversation",
		Messages:    []store.ChatMessage{},
		LastUpdated: time.Now().UnixMilli(),
	}
	if _, err := s.store.UpsertSession(sess); err != nil {
		return nil, fmt.Errorf("chat: failed to create session: %w", err)
	}
	if err := s.store.SetActiveSessionID(sess.ID); err != nil {
		return nil, err
	}

	logs, _ := s.store.ListLogs()
	s.relay.Reset()
	s.relay.StartSession(logs, nil)
	return &sess, nil
}

// Open makes an existing session active and re-seeds the conversational
// context from its persisted history.
func (s *Service) Open(id string) (*store.ChatSession, error) {
	sess, ok := s.find(id)
	if !ok {
		return nil, fmt.Errorf("chat: session not found: %s", id)
	}
	if err := s.store.SetActiveSessionID(id); err != nil {
		return nil, err
	}

	logs, _ := s.store.ListLogs()
	s.relay.Reset()
	s.relay.StartSession(logs, sess.Messages)
	return &sess, nil
}

// List returns all sessions, most recently updated first.
func (s *Service) List() []store.ChatSession {
	sessions, _ := s.store.ListSessions()
	return sessions
}

// Delete removes a session. Deleting the active session leaves no session
// active; the relay context is dropped as well.
func (s *Service) Delete(id string) error {
	if active, ok := s.store.GetActiveSessionID(); ok && active == id {
		s.relay.Reset()
	}
	return s.store.DeleteSession(id)
}

// ActiveID returns the persisted active-session pointer.
func (s *Service) ActiveID() (string, bool) {
	return s.store.GetActiveSessionID()
}

func (s *Service) find(id string) (store.ChatSession, bool) {
	sessions, _ := s.store.ListSessions()
	for _, c := range sessions {
		if c.ID == id {
			return c, true
		}
	}
	return store.ChatSession{}, false
}

// =============================================================================
// Messaging
// =============================================================================

// SendMessage appends the user message to the session, relays it to the
// model and appends the reply. The user always gets a textual reply; relay
// failures surface as the in-persona fallback, not as errors. Only store
// write failures are returned.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (store.ChatMessage, error) {
	sess, ok := s.find(sessionID)
	if !ok {
		return store.ChatMessage{}, fmt.Errorf("chat: session not found: %s", sessionID)
	}

	now := time.Now().UnixMilli()
	userMsg := store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Text:      text,
		Timestamp: now,
	}

	first := !hasUserMessage(sess.Messages)
	sess.Messages = append(sess.Messages, userMsg)
	if first {
		sess.Title = DeriveTitle(text)
	}
	sess.LastUpdated = now
	if _, err := s.store.UpsertSession(sess); err != nil {
		return store.ChatMessage{}, err
	}

	replyText, err := s.relay.Send(ctx, text)
	if err != nil {
		// Lifecycle errors only; the user still gets a reply.
		s.log.Warn().Err(err).Str("session", sessionID).Msg("relay rejected send")
		replyText = relay.Fallback
	}

	modelMsg := store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleModel,
		Text:      replyText,
		Timestamp: time.Now().UnixMilli(),
	}
	sess.Messages = append(sess.Messages, modelMsg)
	sess.LastUpdated = modelMsg.Timestamp
	if _, err := s.store.UpsertSession(sess); err != nil {
		return store.ChatMessage{}, err
	}
	return modelMsg, nil
}

func hasUserMessage(msgs []store.ChatMessage) bool {
	for _, m := range msgs {
		if m.Role == store.RoleUser {
			return true
		}
	}
	return false
}

// DeriveTitle builds a session title from the first user message:
// 30 runes, with an ellipsis when truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleRunes {
		return text
	}
	return string(runes[:titleRunes]) + "…"
}
