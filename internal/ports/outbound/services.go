// Package outbound defines interfaces for external service communication
// following the ports and adapters pattern
package outbound

import (
	"context"
	"time"

	"github.com/huynhbao103/dietchat/internal/domain/chat"
)

// StatusAnalysisComplete is the backend sentinel marking the end of the
// analysis phase
const StatusAnalysisComplete = "analysis_complete"

// AnalysisStep is one step of backend analysis narration
type AnalysisStep struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// PreferencePrompt carries the options the backend offers before phase 2
type PreferencePrompt struct {
	Message string   `json:"message,omitempty"`
	Options []string `json:"options"`
}

// Reply is the canonical normalized backend response. The orchestrator only
// ever sees this shape; all payload sniffing happens in the normalizer.
type Reply struct {
	Status              string
	Message             string
	AnalysisSteps       []AnalysisStep
	SessionID           string
	CookingMethodPrompt *PreferencePrompt
	AllergyPrompt       *PreferencePrompt
}

// NeedsPreferences reports whether the reply opens the preference gate
func (r *Reply) NeedsPreferences() bool {
	return r.CookingMethodPrompt != nil && len(r.CookingMethodPrompt.Options) > 0
}

// PhaseOneRequest is the analysis-phase request. Weather and TimeOfDay are
// optional ambient context; SessionID and IgnoreContextFilter are included
// on every call after the backend has issued a session id.
type PhaseOneRequest struct {
	Question            string `json:"question"`
	Weather             string `json:"weather,omitempty"`
	TimeOfDay           string `json:"time_of_day,omitempty"`
	SessionID           string `json:"session_id,omitempty"`
	IgnoreContextFilter *bool  `json:"ignore_context_filter,omitempty"`
}

// PhaseTwoRequest is the preference-confirmation request keyed by the
// backend session id
type PhaseTwoRequest struct {
	SessionID      string   `json:"session_id"`
	CookingMethods []string `json:"cooking_methods"`
	Allergies      []string `json:"allergies"`
}

// RecommendationService is the two-phase AI backend contract
type RecommendationService interface {
	// ProcessQuestion runs the analysis phase
	ProcessQuestion(ctx context.Context, req PhaseOneRequest) (*Reply, error)

	// ProcessCooking runs the preference-confirmation phase
	ProcessCooking(ctx context.Context, req PhaseTwoRequest) (*Reply, error)
}

// SavedChat is a persisted conversation summary returned by the chat store
type SavedChat struct {
	ID        string      `json:"_id"`
	Title     string      `json:"title"`
	Turns     []chat.Turn `json:"messages"`
	SessionID string      `json:"sessionId,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ChatStore is the external chat persistence collaborator. Save creates a
// record when the snapshot carries no chat id and updates otherwise; the
// returned id is stable across updates.
type ChatStore interface {
	Save(ctx context.Context, req chat.SaveRequest) (chatID string, err error)
	List(ctx context.Context) ([]SavedChat, error)
	Delete(ctx context.Context, chatID string) error
}

// AmbientContext carries resolved ambient signals. Empty strings mean the
// signal is absent.
type AmbientContext struct {
	Weather   string
	TimeOfDay string
}

// EnvironmentSource resolves ambient signals. Current blocks until the
// weather signal has either resolved or definitively failed; it never
// returns while a lookup is still in flight.
type EnvironmentSource interface {
	Current(ctx context.Context) (AmbientContext, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
