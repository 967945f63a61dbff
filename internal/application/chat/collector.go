package chat

import (
	"sync"

	domain "github.com/huynhbao103/dietchat/internal/domain/chat"
)

// Selection is the outcome of a preference prompt
type Selection struct {
	Methods   []string
	Allergies []string
}

// Collector guards the preference prompt lifecycle: at most one prompt open
// at a time, exactly one resolution per open. A resolution never carries an
// empty method list -- the backend reads an empty list as "no constraint",
// which is not what "defaults" means, so empty selections fall back to the
// full offered set.
type Collector struct {
	mu       sync.Mutex
	prompt   *domain.PendingPreferencePrompt
	resolved bool
}

// NewCollector creates an idle collector
func NewCollector() *Collector {
	return &Collector{}
}

// Open arms the collector with a prompt. Any previously open prompt is
// discarded.
func (c *Collector) Open(prompt domain.PendingPreferencePrompt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompt = &prompt
	c.resolved = false
}

// Prompt returns the open prompt, or nil when none is open
func (c *Collector) Prompt() *domain.PendingPreferencePrompt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompt == nil || c.resolved {
		return nil
	}
	p := *c.prompt
	return &p
}

// Resolve settles the open prompt with the user's explicit selection. An
// empty method selection falls back to the full offered option set.
func (c *Collector) Resolve(methods, allergies []string) (Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prompt == nil {
		return Selection{}, domain.ErrNoPendingPrompt
	}
	if c.resolved {
		return Selection{}, domain.ErrPromptResolved
	}
	c.resolved = true

	if len(methods) == 0 {
		methods = append([]string(nil), c.prompt.CookingMethodOptions...)
	}
	if allergies == nil {
		allergies = []string{}
	}

	return Selection{Methods: methods, Allergies: allergies}, nil
}

// Cancel settles the open prompt with defaults: the full offered method set
// and no allergies
func (c *Collector) Cancel() (Selection, error) {
	return c.Resolve(nil, nil)
}

// Close discards the open prompt without a resolution. Used when an error
// or a session switch invalidates the prompt's session id.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompt = nil
	c.resolved = false
}
