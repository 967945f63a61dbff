// Package chat implements the conversational recommendation session
// orchestrator and its collaborators
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	domain "github.com/huynhbao103/dietchat/internal/domain/chat"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"github.com/huynhbao103/dietchat/pkg/errors"
	"go.uber.org/zap"
)

// State is the orchestrator's explicit state machine value
type State string

// Orchestrator states. Idle is both initial and the only state accepting a
// new user message.
const (
	StateIdle                    State = "idle"
	StateAwaitingContextDecision State = "awaiting_context_decision"
	StatePhaseOneInFlight        State = "phase_one_in_flight"
	StateAwaitingPreferences     State = "awaiting_preferences"
	StatePhaseTwoInFlight        State = "phase_two_in_flight"
)

// Fixed user-visible texts
const (
	greetingText = "Xin chào! Bạn muốn ăn gì hôm nay? Hãy cho tôi biết nhu cầu của bạn nhé."
	apologyText  = "Xin lỗi, hệ thống đang gặp sự cố kết nối. Bạn vui lòng thử lại sau nhé."
	noDishesText = "Không tìm thấy món ăn phù hợp với lựa chọn của bạn."
)

// Orchestrator drives the multi-turn exchange with the recommendation
// backend. It exclusively owns the live Session; collaborators only ever see
// immutable snapshots. State transitions happen on method boundaries; the
// network calls inside Submit/Decide/ConfirmPreferences are the only
// suspension points.
type Orchestrator struct {
	recommend outbound.RecommendationService
	env       outbound.EnvironmentSource
	scheduler *Scheduler
	collector *Collector
	logger    *zap.Logger

	mu               sync.Mutex
	state            State
	session          *domain.Session
	pendingQuestion  string
	awaitingContinue bool
	gateAsked        bool
}

// NewOrchestrator creates an orchestrator with a fresh session
func NewOrchestrator(
	recommend outbound.RecommendationService,
	env outbound.EnvironmentSource,
	scheduler *Scheduler,
	logger *zap.Logger,
) *Orchestrator {
	o := &Orchestrator{
		recommend: recommend,
		env:       env,
		scheduler: scheduler,
		collector: NewCollector(),
		logger:    logger.Named("session-orchestrator"),
		state:     StateIdle,
	}
	o.session = o.newSession()

	scheduler.OnSaved(o.applyChatID)

	return o
}

// newSession builds a session opened with the fixed greeting turn
func (o *Orchestrator) newSession() *domain.Session {
	s := domain.NewSession()
	s.Append(greetingText, domain.AuthorAssistant, domain.KindMessage, "")
	return s
}

// Submit sends a user message. Rejected unless the orchestrator is Idle.
// When the sticky context preference is still undecided and this is the
// session's first message, the message is held and the context decision
// gate opens instead of calling the backend.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}

	o.mu.Lock()
	switch o.state {
	case StateIdle:
	case StateAwaitingContextDecision:
		o.mu.Unlock()
		return domain.ErrAwaitingDecision
	default:
		o.mu.Unlock()
		return domain.ErrSessionBusy
	}

	o.session.Append(text, domain.AuthorUser, domain.KindMessage, "")

	if !o.session.Preference().Decided() && !o.gateAsked {
		o.gateAsked = true
		o.pendingQuestion = text
		o.state = StateAwaitingContextDecision
		o.mu.Unlock()

		o.logger.Info("Context decision gate opened")
		return nil
	}

	localID := o.session.LocalID()
	o.state = StatePhaseOneInFlight
	o.mu.Unlock()

	o.runPhaseOne(ctx, localID, text)
	return nil
}

// Decide settles the context decision gate, persists the sticky choice and
// resumes the held message
func (o *Orchestrator) Decide(ctx context.Context, useAmbient bool) error {
	o.mu.Lock()
	if o.state != StateAwaitingContextDecision {
		o.mu.Unlock()
		return domain.ErrNoDecisionPending
	}

	o.session.SetPreference(useAmbient)
	question := o.pendingQuestion
	o.pendingQuestion = ""
	localID := o.session.LocalID()
	o.state = StatePhaseOneInFlight
	o.mu.Unlock()

	o.logger.Info("Context preference decided", zap.Bool("use_ambient", useAmbient))

	o.runPhaseOne(ctx, localID, question)
	return nil
}

// SetPreference changes the sticky context preference on explicit user
// request. Only allowed while idle.
func (o *Orchestrator) SetPreference(useAmbient bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return domain.ErrSessionBusy
	}
	o.session.SetPreference(useAmbient)
	return nil
}

// runPhaseOne resolves ambient context, calls the analysis phase and applies
// the normalized reply. A reply arriving after the session changed is
// dropped.
func (o *Orchestrator) runPhaseOne(ctx context.Context, localID uuid.UUID, question string) {
	req := outbound.PhaseOneRequest{Question: question}

	o.mu.Lock()
	pref := o.session.Preference()
	sessionID := o.session.SessionID()
	o.mu.Unlock()

	if pref.UseAmbient() {
		// Block until the weather signal settles; never submit with a
		// lookup still in flight.
		ambient, err := o.env.Current(ctx)
		if err != nil {
			o.settleWithError(localID, errors.NewTransportError("environment probe", err))
			return
		}
		req.Weather = ambient.Weather
		req.TimeOfDay = ambient.TimeOfDay
	}

	if sessionID != "" {
		// The backend is stateless about context weighting: every call
		// after the session id exists restates the sticky choice.
		req.SessionID = sessionID
		ignore := !pref.UseAmbient()
		req.IgnoreContextFilter = &ignore
	}

	reply, err := o.recommend.ProcessQuestion(ctx, req)
	if err != nil {
		o.settleWithError(localID, err)
		return
	}

	o.applyPhaseOne(localID, reply)
}

// applyPhaseOne appends analysis narration and either opens the preference
// gate or finishes the exchange
func (o *Orchestrator) applyPhaseOne(localID uuid.UUID, reply *outbound.Reply) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.LocalID() != localID {
		o.logger.Debug("Dropping late analysis reply for discarded session")
		return
	}

	// Analysis steps append as one contiguous block in server order, ahead
	// of the continue affordance and any final message.
	for _, step := range reply.AnalysisSteps {
		o.session.Append(step.Message, domain.AuthorAssistant, domain.KindAnalysisStep, step.Step)
	}

	// A preference prompt is only actionable with a session id to key
	// phase 2 by. Without one the reply is malformed; settle the exchange
	// with whatever text it carried instead of arming a dead-end prompt.
	if reply.NeedsPreferences() && (reply.SessionID != "" || o.session.SessionID() != "") {
		hadSessionID := o.session.SessionID() != ""
		o.session.SetSessionID(reply.SessionID)

		prompt := domain.PendingPreferencePrompt{
			Message:              reply.CookingMethodPrompt.Message,
			CookingMethodOptions: append([]string(nil), reply.CookingMethodPrompt.Options...),
		}
		if reply.AllergyPrompt != nil {
			prompt.AllergyOptions = append([]string(nil), reply.AllergyPrompt.Options...)
		}
		o.collector.Open(prompt)
		o.awaitingContinue = true
		o.state = StateAwaitingPreferences

		// First session id assignment is a durability checkpoint.
		if !hadSessionID && o.session.SessionID() != "" {
			o.scheduler.SaveNow(localID, o.session.Snapshot())
		}

		o.logger.Info("Preference gate armed",
			zap.String("session_id", o.session.SessionID()),
			zap.Int("method_options", len(prompt.CookingMethodOptions)))
		return
	}

	if reply.NeedsPreferences() {
		o.logger.Warn("Preference prompt arrived without a session id, settling exchange")
	}

	message := reply.Message
	if message == "" {
		message = noDishesText
	}
	o.session.Append(message, domain.AuthorAssistant, domain.KindMessage, "")
	o.state = StateIdle
	o.scheduler.ScheduleSave(localID, o.session.Snapshot())
}

// ContinueToPreferences is the deliberate second click after phase 1: it
// consumes the continue affordance and reveals the prompt for the modal
func (o *Orchestrator) ContinueToPreferences() (*domain.PendingPreferencePrompt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingPreferences || !o.awaitingContinue {
		return nil, domain.ErrNoPendingPrompt
	}
	o.awaitingContinue = false

	return o.collector.Prompt(), nil
}

// ConfirmPreferences settles the preference prompt with the user's explicit
// selection and runs the confirmation phase
func (o *Orchestrator) ConfirmPreferences(ctx context.Context, methods, allergies []string) error {
	return o.resolvePreferences(ctx, func() (Selection, error) {
		return o.collector.Resolve(methods, allergies)
	})
}

// CancelPreferences settles the prompt with defaults: the full offered
// method set and no allergies
func (o *Orchestrator) CancelPreferences(ctx context.Context) error {
	return o.resolvePreferences(ctx, o.collector.Cancel)
}

func (o *Orchestrator) resolvePreferences(ctx context.Context, settle func() (Selection, error)) error {
	o.mu.Lock()
	if o.state != StateAwaitingPreferences || o.awaitingContinue {
		o.mu.Unlock()
		return domain.ErrNoPendingPrompt
	}

	selection, err := settle()
	if err != nil {
		o.mu.Unlock()
		return err
	}

	localID := o.session.LocalID()
	sessionID := o.session.SessionID()
	o.state = StatePhaseTwoInFlight
	o.mu.Unlock()

	o.runPhaseTwo(ctx, localID, sessionID, selection)
	return nil
}

// runPhaseTwo sends the confirmed preferences keyed by the stored session id
func (o *Orchestrator) runPhaseTwo(ctx context.Context, localID uuid.UUID, sessionID string, selection Selection) {
	reply, err := o.recommend.ProcessCooking(ctx, outbound.PhaseTwoRequest{
		SessionID:      sessionID,
		CookingMethods: selection.Methods,
		Allergies:      selection.Allergies,
	})
	if err != nil {
		o.settleWithError(localID, err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.LocalID() != localID {
		o.logger.Debug("Dropping late confirmation reply for discarded session")
		return
	}

	message := reply.Message
	if message == "" {
		message = noDishesText
	}
	o.session.Append(message, domain.AuthorAssistant, domain.KindMessage, "")
	o.collector.Close()
	o.state = StateIdle
	o.scheduler.ScheduleSave(localID, o.session.Snapshot())
}

// settleWithError appends a single user-visible error turn, discards any
// pending prompt and returns the machine to Idle. No automatic retry: the
// user must resend.
func (o *Orchestrator) settleWithError(localID uuid.UUID, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.LocalID() != localID {
		return
	}

	text := apologyText
	if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.CodeBackend && appErr.Message != "" {
		text = appErr.Message
	}

	o.logger.Error("Exchange failed", zap.Error(err))

	o.session.Append(text, domain.AuthorAssistant, domain.KindMessage, "")
	o.collector.Close()
	o.awaitingContinue = false
	o.pendingQuestion = ""
	o.state = StateIdle
	o.scheduler.ScheduleSave(localID, o.session.Snapshot())
}

// applyChatID is the scheduler's write-back: the server-assigned chat id
// lands on the live session only if it is still the same session and still
// unassigned
func (o *Orchestrator) applyChatID(localID uuid.UUID, chatID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.LocalID() != localID {
		return
	}
	o.session.SetChatID(chatID)
}

// StartNewSession discards the live session and pending prompt and opens a
// fresh one. In-flight replies for the old session are dropped when they
// arrive.
func (o *Orchestrator) StartNewSession() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resetLocked(o.newSession())
	o.logger.Info("New session started")
}

// LoadSession replaces the live session with a previously saved one
func (o *Orchestrator) LoadSession(saved outbound.SavedChat) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resetLocked(domain.Restore(saved.ID, saved.Title, saved.Turns, saved.SessionID))
	o.logger.Info("Saved session loaded",
		zap.String("chat_id", saved.ID),
		zap.Int("turns", len(saved.Turns)))
}

func (o *Orchestrator) resetLocked(next *domain.Session) {
	o.session = next
	o.state = StateIdle
	o.pendingQuestion = ""
	o.awaitingContinue = false
	o.gateAsked = false
	o.collector.Close()
}

// Read surface for the UI layer

// State returns the current state machine value
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Turns returns the transcript in insertion order
func (o *Orchestrator) Turns() []domain.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Turns()
}

// AwaitingContinue reports whether the continue affordance is showing
func (o *Orchestrator) AwaitingContinue() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.awaitingContinue
}

// Preference returns the sticky context preference
func (o *Orchestrator) Preference() domain.ContextPreference {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Preference()
}

// PendingPrompt returns the open preference prompt, nil when none
func (o *Orchestrator) PendingPrompt() *domain.PendingPreferencePrompt {
	return o.collector.Prompt()
}

// Title returns the session title
func (o *Orchestrator) Title() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Title()
}

// ChatID returns the persisted chat id, empty before the first save
func (o *Orchestrator) ChatID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.ChatID()
}

// SessionID returns the backend session id, empty before phase 1 completes
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.SessionID()
}
