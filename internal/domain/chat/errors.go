package chat

import "errors"

// Domain errors
var (
	// ErrSessionBusy is returned when input arrives while a phase request is
	// still in flight. The caller must wait for the session to become idle.
	ErrSessionBusy = errors.New("session busy: request already in flight")

	// ErrAwaitingDecision is returned when a message is submitted while the
	// context decision gate is open.
	ErrAwaitingDecision = errors.New("awaiting context decision")

	// ErrNoDecisionPending is returned when a context decision arrives with
	// no held message.
	ErrNoDecisionPending = errors.New("no context decision pending")

	// ErrNoPendingPrompt is returned when preferences are confirmed or
	// cancelled without an open preference prompt.
	ErrNoPendingPrompt = errors.New("no preference prompt pending")

	// ErrPromptResolved is returned when a preference prompt is resolved a
	// second time.
	ErrPromptResolved = errors.New("preference prompt already resolved")

	// ErrEmptyMessage is returned for a blank user submission.
	ErrEmptyMessage = errors.New("message text is empty")
)
