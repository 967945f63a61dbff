package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	domain "github.com/huynhbao103/dietchat/internal/domain/chat"
	"github.com/huynhbao103/dietchat/internal/infrastructure/monitoring"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"go.uber.org/zap"
)

// saveTimeout bounds one outbound save attempt
const saveTimeout = 15 * time.Second

// pendingSave pairs a snapshot with the session identity it belongs to
type pendingSave struct {
	localID  uuid.UUID
	snapshot domain.SaveRequest
}

// Scheduler owns the debounced transcript writer. Invariants it enforces:
// at most one save in flight; saves requested while another is in flight
// coalesce into a single follow-up built from the latest snapshot; once a
// create assigns a chat id, pending follow-ups for that session are sent as
// updates keyed by it; a session is never persisted before it has more than
// one turn; save failures are logged and never retried automatically.
type Scheduler struct {
	store    outbound.ChatStore
	interval time.Duration
	cooldown time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu          sync.Mutex
	timer       *time.Timer
	debounced   *pendingSave
	queued      *pendingSave
	inFlight    bool
	lastSuccess time.Time
	onSaved     func(localID uuid.UUID, chatID string)
	stopped     bool
	idle        *sync.Cond
}

// NewScheduler creates a persistence scheduler
func NewScheduler(store outbound.ChatStore, interval, cooldown time.Duration, logger *zap.Logger, metrics *monitoring.Metrics) *Scheduler {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}

	s := &Scheduler{
		store:    store,
		interval: interval,
		cooldown: cooldown,
		logger:   logger.Named("persistence-scheduler"),
		metrics:  metrics,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// OnSaved registers the chat id write-back callback. The callback receives
// the session identity the snapshot was taken from, so a late result for a
// discarded session can be ignored by the caller.
func (s *Scheduler) OnSaved(fn func(localID uuid.UUID, chatID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSaved = fn
}

// ScheduleSave requests a debounced save. Rapid calls coalesce: the timer
// resets and only the latest snapshot survives.
func (s *Scheduler) ScheduleSave(localID uuid.UUID, snapshot domain.SaveRequest) {
	if len(snapshot.Turns) <= 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.debounced != nil && s.metrics != nil {
		s.metrics.RecordSaveCoalesced()
	}
	s.debounced = &pendingSave{localID: localID, snapshot: snapshot}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, s.fireDebounce)
}

// SaveNow bypasses the debounce, used at the durability checkpoint right
// after the backend assigns a session id. A forced save is suppressed when a
// successful save completed inside the cooldown window, to bound write
// amplification during bursty multi-step exchanges.
func (s *Scheduler) SaveNow(localID uuid.UUID, snapshot domain.SaveRequest) {
	if len(snapshot.Turns) <= 1 {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if s.cooldown > 0 && !s.lastSuccess.IsZero() && time.Since(s.lastSuccess) < s.cooldown {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordSaveSuppressed()
		}
		s.logger.Debug("Forced save suppressed by cooldown")
		return
	}

	// An immediate save supersedes whatever the debounce was holding.
	if s.timer != nil {
		s.timer.Stop()
	}
	s.debounced = nil

	s.submitLocked(&pendingSave{localID: localID, snapshot: snapshot})
	s.mu.Unlock()
}

// Stop cancels the pending timer and drops the debounced snapshot
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.debounced = nil
	s.queued = nil
}

// Wait blocks until no save is in flight and nothing is queued. Debounced
// snapshots that have not fired yet are not waited for.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.inFlight || s.queued != nil {
		s.idle.Wait()
	}
}

// fireDebounce runs on timer expiry
func (s *Scheduler) fireDebounce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.debounced == nil {
		return
	}
	save := s.debounced
	s.debounced = nil
	s.submitLocked(save)
}

// submitLocked starts a save, or queues it if one is already in flight.
// Queued saves are last-writer-wins: only the newest snapshot survives.
func (s *Scheduler) submitLocked(save *pendingSave) {
	if s.inFlight {
		if s.queued != nil && s.metrics != nil {
			s.metrics.RecordSaveCoalesced()
		}
		s.queued = save
		return
	}

	s.inFlight = true
	go s.run(save)
}

// run performs the save and then drains at most one queued follow-up
func (s *Scheduler) run(save *pendingSave) {
	for save != nil {
		s.attempt(save)

		s.mu.Lock()
		save = s.queued
		s.queued = nil
		if save == nil {
			s.inFlight = false
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	}
}

// attempt performs one outbound save. Failures are silent to the user: the
// next mutation re-triggers the debounce naturally.
func (s *Scheduler) attempt(save *pendingSave) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	chatID, err := s.store.Save(ctx, save.snapshot)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSave("error")
		}
		s.logger.Warn("Transcript save failed",
			zap.String("chat_id", save.snapshot.ChatID),
			zap.Int("turns", len(save.snapshot.Turns)),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSave("ok")
	}

	s.mu.Lock()
	s.lastSuccess = time.Now()
	// A snapshot captured before the id write-back landed still carries an
	// empty chat id. Patch pending follow-ups for the same session so the
	// store sees one create and then updates, never a second create.
	if save.snapshot.ChatID == "" {
		if s.queued != nil && s.queued.localID == save.localID && s.queued.snapshot.ChatID == "" {
			s.queued.snapshot.ChatID = chatID
		}
		if s.debounced != nil && s.debounced.localID == save.localID && s.debounced.snapshot.ChatID == "" {
			s.debounced.snapshot.ChatID = chatID
		}
	}
	onSaved := s.onSaved
	s.mu.Unlock()

	if onSaved != nil && save.snapshot.ChatID == "" {
		onSaved(save.localID, chatID)
	}
}
