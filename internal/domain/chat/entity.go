// Package chat contains the conversational session domain model
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TurnAuthor identifies who produced a turn
type TurnAuthor string

// Turn authors
const (
	AuthorUser      TurnAuthor = "user"
	AuthorAssistant TurnAuthor = "assistant"
)

// TurnKind distinguishes regular messages from analysis-step narration
type TurnKind string

// Turn kinds
const (
	KindMessage      TurnKind = "message"
	KindAnalysisStep TurnKind = "analysis_step"
)

// Turn is a single transcript entry. Immutable once appended; ordering is
// insertion order, never timestamp order (the client clock is not
// authoritative).
type Turn struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Author    TurnAuthor `json:"author"`
	Kind      TurnKind   `json:"kind"`
	Step      string     `json:"step,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ContextPreference is the sticky "use ambient context" decision. Undecided
// until the user's first choice in a session; re-asked only when the user
// explicitly changes it or a new session starts.
type ContextPreference struct {
	decided    bool
	useAmbient bool
}

// Decided reports whether the user has made the context choice
func (p ContextPreference) Decided() bool {
	return p.decided
}

// UseAmbient reports whether ambient context should influence filtering.
// Only meaningful when Decided is true.
func (p ContextPreference) UseAmbient() bool {
	return p.decided && p.useAmbient
}

// DecidedPreference returns a settled preference value
func DecidedPreference(useAmbient bool) ContextPreference {
	return ContextPreference{decided: true, useAmbient: useAmbient}
}

// PendingPreferencePrompt holds the cooking-method/allergy options offered by
// the backend between phase-1 completion and phase-2 submission
type PendingPreferencePrompt struct {
	Message              string
	CookingMethodOptions []string
	AllergyOptions       []string
}

// SaveRequest is an immutable snapshot handed to the persistence
// collaborator. It is never mutated after creation.
type SaveRequest struct {
	ChatID    string `json:"chatId,omitempty"`
	Title     string `json:"title"`
	Turns     []Turn `json:"messages"`
	SessionID string `json:"sessionId,omitempty"`
}

const maxTitleLength = 60

// Session is the live conversation owned exclusively by the orchestrator.
// chatID identifies the persisted record (assigned by the storage
// collaborator on first save); sessionID identifies the backend's own
// conversational state (assigned after phase 1 completes). The two are
// independent.
type Session struct {
	localID    uuid.UUID
	chatID     string
	sessionID  string
	title      string
	turns      []Turn
	nextTurnID int64
	preference ContextPreference
}

// NewSession creates a fresh session with no persisted identity
func NewSession() *Session {
	return &Session{
		localID:    uuid.New(),
		nextTurnID: 1,
	}
}

// LocalID returns the client-side identity of this session, used to discard
// late in-flight responses after a session switch
func (s *Session) LocalID() uuid.UUID {
	return s.localID
}

// ChatID returns the persisted record identifier, empty until first save
func (s *Session) ChatID() string {
	return s.chatID
}

// SetChatID records the server-assigned chat identifier after a first save
func (s *Session) SetChatID(id string) {
	if s.chatID == "" {
		s.chatID = id
	}
}

// SessionID returns the backend conversational state identifier
func (s *Session) SessionID() string {
	return s.sessionID
}

// SetSessionID records the backend session id. It is set at most once per
// session lifetime; later calls are ignored.
func (s *Session) SetSessionID(id string) {
	if s.sessionID == "" {
		s.sessionID = id
	}
}

// Preference returns the sticky context preference
func (s *Session) Preference() ContextPreference {
	return s.preference
}

// SetPreference settles the context preference for the session
func (s *Session) SetPreference(useAmbient bool) {
	s.preference = DecidedPreference(useAmbient)
}

// Title returns the session title, derived from the first user message
func (s *Session) Title() string {
	if s.title != "" {
		return s.title
	}
	return "New conversation"
}

// Append adds a turn to the transcript and returns it. The first user
// message also names the session.
func (s *Session) Append(text string, author TurnAuthor, kind TurnKind, step string) Turn {
	turn := Turn{
		ID:        s.nextTurnID,
		Text:      text,
		Author:    author,
		Kind:      kind,
		Step:      step,
		Timestamp: time.Now().UTC(),
	}
	s.nextTurnID++
	s.turns = append(s.turns, turn)

	if s.title == "" && author == AuthorUser && kind == KindMessage {
		s.title = deriveTitle(text)
	}

	return turn
}

// Turns returns a copy of the transcript in insertion order
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the transcript
func (s *Session) Len() int {
	return len(s.turns)
}

// Snapshot builds an immutable SaveRequest from the current transcript
func (s *Session) Snapshot() SaveRequest {
	return SaveRequest{
		ChatID:    s.chatID,
		Title:     s.Title(),
		Turns:     s.Turns(),
		SessionID: s.sessionID,
	}
}

// Restore rebuilds a session from a previously saved record. The backend
// session id survives the round trip so follow-up questions keep their
// conversational state.
func Restore(chatID, title string, turns []Turn, sessionID string) *Session {
	s := NewSession()
	s.chatID = chatID
	s.title = title
	s.sessionID = sessionID
	s.turns = make([]Turn, len(turns))
	copy(s.turns, turns)
	for _, t := range turns {
		if t.ID >= s.nextTurnID {
			s.nextTurnID = t.ID + 1
		}
	}
	return s
}

func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if title == "" {
		return ""
	}
	// Truncate on rune boundaries; titles are frequently Vietnamese.
	runes := []rune(title)
	if len(runes) > maxTitleLength {
		title = strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
	}
	return title
}
