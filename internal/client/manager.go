package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"gptodo/internal/models"
	"gptodo/internal/store"
)

var (
	// ErrPending is returned when a prompt is submitted while another is in flight.
	ErrPending = errors.New("a mutation is already in flight")
	// ErrEmptyPrompt is returned for blank prompts.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNoSuchEntry is returned by RewindTo for an out-of-range index.
	ErrNoSuchEntry = errors.New("no such history entry")
)

// DefaultErrorDisplay is how long the error signal stays up after a failure.
const DefaultErrorDisplay = time.Second

// Mutator requests a replacement state for a prompt.
type Mutator interface {
	Mutate(ctx context.Context, prompt string, state models.AppState, schema json.RawMessage) (models.AppState, error)
}

// StateStore is the key-value store the current state is cached in.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Manager owns the current AppState and the history of accepted mutations.
// At most one mutation request is outstanding at a time.
type Manager struct {
	mutator      Mutator
	store        StateStore
	schema       json.RawMessage
	errorDisplay time.Duration
	log          zerolog.Logger
	inflight     *semaphore.Weighted

	mu          sync.Mutex
	state       models.AppState
	history     []models.HistoryEntry
	input       string
	lastApplied string
	pending     bool
	errVisible  bool
	errGen      uint64
	errTimer    *time.Timer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStateStore persists the current state after every change.
func WithStateStore(s StateStore) ManagerOption {
	return func(m *Manager) { m.store = s }
}

// WithSchema replaces models.StateSchema.
func WithSchema(schema json.RawMessage) ManagerOption {
	return func(m *Manager) { m.schema = schema }
}

// WithErrorDisplay sets how long ErrorVisible stays true after a failure.
func WithErrorDisplay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.errorDisplay = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager with an empty state.
func NewManager(mutator Mutator, opts ...ManagerOption) *Manager {
	m := &Manager{
		mutator:      mutator,
		schema:       models.StateSchema,
		errorDisplay: DefaultErrorDisplay,
		log:          zerolog.Nop(),
		inflight:     semaphore.NewWeighted(1),
		state:        models.NewAppState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads the persisted state, if any. A missing entry is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	data, err := m.store.Get(ctx, store.StateKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load state: %w", err)
	}

	var state models.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode persisted state: %w", err)
	}
	state.Normalize()

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return nil
}

// SubmitPrompt sends prompt together with the current state and schema.
// On success the response replaces the current state and is prepended to
// history. On failure nothing changes except the error signal, and the
// prompt stays in the input. While a request is in flight it returns
// ErrPending without doing anything.
func (m *Manager) SubmitPrompt(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if !m.inflight.TryAcquire(1) {
		return ErrPending
	}

	m.mu.Lock()
	m.pending = true
	m.input = prompt
	snapshot := m.state.Clone()
	m.mu.Unlock()

	next, err := m.mutator.Mutate(ctx, prompt, snapshot, m.schema)

	m.mu.Lock()
	m.pending = false
	if err != nil {
		m.showErrorLocked()
		m.mu.Unlock()
		m.inflight.Release(1)
		m.log.Warn().Err(err).Str("prompt", prompt).Msg("mutation failed")
		return err
	}

	next.Normalize()
	m.state = next.Clone()
	m.history = append([]models.HistoryEntry{{Prompt: prompt, State: next}}, m.history...)
	m.lastApplied = prompt
	m.input = ""
	saved := m.state.Clone()
	m.mu.Unlock()
	m.inflight.Release(1)

	if dangling := saved.DanglingIDs(); len(dangling) > 0 {
		m.log.Warn().Ints64("ids", dangling).Msg("state references missing tasks")
	}
	m.persist(ctx, saved)
	return nil
}

// Rewind makes a copy of target the current state. History is untouched.
func (m *Manager) Rewind(target models.AppState) {
	m.mu.Lock()
	m.state = target.Clone()
	saved := m.state.Clone()
	m.mu.Unlock()

	m.persist(context.Background(), saved)
}

// RewindTo rewinds to the state of history entry i, where 0 is the newest.
func (m *Manager) RewindTo(i int) error {
	m.mu.Lock()
	if i < 0 || i >= len(m.history) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchEntry, i)
	}
	target := m.history[i].State
	m.mu.Unlock()

	m.Rewind(target)
	return nil
}

// Reset empties the current state and history and removes the persisted copy.
// It returns ErrPending while a request is in flight.
func (m *Manager) Reset(ctx context.Context) error {
	if !m.inflight.TryAcquire(1) {
		return ErrPending
	}
	defer m.inflight.Release(1)

	m.mu.Lock()
	m.state = models.NewAppState()
	m.history = nil
	m.lastApplied = ""
	m.input = ""
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, store.StateKey); err != nil {
		return fmt.Errorf("failed to delete persisted state: %w", err)
	}
	return nil
}

// ToggleCompletion flips the completed flag of a task in the current state.
// It returns false for unknown ids.
func (m *Manager) ToggleCompletion(id int64) bool {
	return m.edit(func(s *models.AppState) bool { return s.ToggleCompletion(id) })
}

// ToggleSelection adds or removes id from the selection.
// It returns false for unknown ids.
func (m *Manager) ToggleSelection(id int64) bool {
	return m.edit(func(s *models.AppState) bool { return s.ToggleSelection(id) })
}

func (m *Manager) edit(fn func(*models.AppState) bool) bool {
	m.mu.Lock()
	changed := fn(&m.state)
	saved := m.state.Clone()
	m.mu.Unlock()

	if changed {
		m.persist(context.Background(), saved)
	}
	return changed
}

// State returns a copy of the current state.
func (m *Manager) State() models.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// History returns a copy of the history, newest first.
func (m *Manager) History() []models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.HistoryEntry, len(m.history))
	for i, e := range m.history {
		out[i] = models.HistoryEntry{Prompt: e.Prompt, State: e.State.Clone()}
	}
	return out
}

// Input returns the prompt text kept for resubmission.
func (m *Manager) Input() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input
}

// SetInput replaces the prompt text.
func (m *Manager) SetInput(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = s
}

// LastApplied returns the most recent successfully applied prompt.
func (m *Manager) LastApplied() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastApplied
}

// Pending reports whether a mutation request is in flight.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// ErrorVisible reports whether the transient error signal is up.
func (m *Manager) ErrorVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errVisible
}

// Close stops the error signal timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errTimer != nil {
		m.errTimer.Stop()
		m.errTimer = nil
	}
}

// showErrorLocked raises the error signal. Only the timer started by the most
// recent failure may clear it; an older timer that already fired and is
// waiting on mu sees a stale generation and does nothing.
func (m *Manager) showErrorLocked() {
	m.errVisible = true
	m.errGen++
	gen := m.errGen
	if m.errTimer != nil {
		m.errTimer.Stop()
	}
	m.errTimer = time.AfterFunc(m.errorDisplay, func() { m.clearError(gen) })
}

func (m *Manager) clearError(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.errGen {
		m.errVisible = false
	}
}

func (m *Manager) persist(ctx context.Context, state models.AppState) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode state")
		return
	}
	if err := m.store.Put(context.WithoutCancel(ctx), store.StateKey, data); err != nil {
		m.log.Error().Err(err).Msg("failed to persist state")
	}
}
