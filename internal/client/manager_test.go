package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptodo/internal/models"
	"gptodo/internal/store"
)

// fakeMutator returns queued results in order. When gate is set, each call
// signals on started and blocks until gate is closed.
type fakeMutator struct {
	mu      sync.Mutex
	results []fakeResult
	calls   []models.AppState
	started chan struct{}
	gate    chan struct{}
}

type fakeResult struct {
	state models.AppState
	err   error
}

func (f *fakeMutator) Mutate(_ context.Context, _ string, state models.AppState, _ json.RawMessage) (models.AppState, error) {
	f.mu.Lock()
	f.calls = append(f.calls, state)
	res := f.results[0]
	f.results = f.results[1:]
	f.mu.Unlock()

	if f.gate != nil {
		f.started <- struct{}{}
		<-f.gate
	}
	return res.state, res.err
}

func (f *fakeMutator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func withTask(id int64, text string, completed bool) models.AppState {
	s := models.NewAppState()
	s.Tasks = []models.Task{{ID: id, Text: text, Completed: completed}}
	s.VisibleTaskIDs = []int64{id}
	return s
}

func TestManager_SubmitPrompt_Applied(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}}})
	m.SetInput("add buy milk")

	require.NoError(t, m.SubmitPrompt(context.Background(), m.Input()))

	assert.Empty(t, cmp.Diff(s1, m.State()))
	assert.Equal(t, "add buy milk", m.LastApplied())
	assert.Empty(t, m.Input())
	assert.False(t, m.Pending())

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, "add buy milk", history[0].Prompt)
	assert.Empty(t, cmp.Diff(s1, history[0].State))
}

func TestManager_HistoryNewestFirst(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	s2 := withTask(1, "Buy milk", true)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}, {state: s2}}})
	ctx := context.Background()

	require.NoError(t, m.SubmitPrompt(ctx, "P1"))
	require.NoError(t, m.SubmitPrompt(ctx, "P2"))

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "P2", history[0].Prompt)
	assert.Equal(t, "P1", history[1].Prompt)
	assert.Empty(t, cmp.Diff(s2, m.State()))
}

func TestManager_SubmitSendsCurrentState(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	fake := &fakeMutator{results: []fakeResult{{state: s1}, {state: s1}}}
	m := NewManager(fake)
	ctx := context.Background()

	require.NoError(t, m.SubmitPrompt(ctx, "P1"))
	require.True(t, m.ToggleSelection(1))
	require.NoError(t, m.SubmitPrompt(ctx, "P2"))

	require.Len(t, fake.calls, 2)
	assert.Empty(t, fake.calls[0].Tasks)
	assert.Equal(t, []int64{1}, fake.calls[1].SelectedTaskIDs)
}

func TestManager_SubmitPrompt_Failure(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	fake := &fakeMutator{results: []fakeResult{{state: s1}, {err: ErrParseFailed}}}
	m := NewManager(fake, WithErrorDisplay(50*time.Millisecond))
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.SubmitPrompt(ctx, "P1"))

	err := m.SubmitPrompt(ctx, "garbage please")
	assert.ErrorIs(t, err, ErrParseFailed)

	assert.Empty(t, cmp.Diff(s1, m.State()))
	assert.Len(t, m.History(), 1)
	assert.Equal(t, "garbage please", m.Input())
	assert.Equal(t, "P1", m.LastApplied())
	assert.False(t, m.Pending())

	assert.True(t, m.ErrorVisible())
	assert.Eventually(t, func() bool { return !m.ErrorVisible() }, time.Second, 10*time.Millisecond)
}

func TestManager_SubmitPrompt_Empty(t *testing.T) {
	fake := &fakeMutator{}
	m := NewManager(fake)

	assert.ErrorIs(t, m.SubmitPrompt(context.Background(), "   "), ErrEmptyPrompt)
	assert.Equal(t, 0, fake.callCount())
	assert.False(t, m.ErrorVisible())
}

func TestManager_SingleFlight(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	fake := &fakeMutator{
		results: []fakeResult{{state: s1}},
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	m := NewManager(fake)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- m.SubmitPrompt(ctx, "P1") }()
	<-fake.started

	assert.True(t, m.Pending())
	assert.ErrorIs(t, m.SubmitPrompt(ctx, "P2"), ErrPending)
	assert.Equal(t, 1, fake.callCount())
	assert.Equal(t, "P1", m.Input())

	close(fake.gate)
	require.NoError(t, <-done)

	assert.False(t, m.Pending())
	require.Len(t, m.History(), 1)
	assert.Equal(t, "P1", m.History()[0].Prompt)
}

func TestManager_LocalEditsDuringFlightAreReplaced(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	s2 := withTask(1, "Buy milk", true)
	fake := &fakeMutator{results: []fakeResult{{state: s1}, {state: s2}}}
	m := NewManager(fake)
	ctx := context.Background()
	require.NoError(t, m.SubmitPrompt(ctx, "P1"))

	fake.started = make(chan struct{})
	fake.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- m.SubmitPrompt(ctx, "P2") }()
	<-fake.started

	require.True(t, m.ToggleSelection(1))
	close(fake.gate)
	require.NoError(t, <-done)

	assert.Empty(t, cmp.Diff(s2, m.State()))
}

func TestManager_Rewind(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	s2 := withTask(1, "Buy milk", true)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}, {state: s2}}})
	ctx := context.Background()
	require.NoError(t, m.SubmitPrompt(ctx, "P1"))
	require.NoError(t, m.SubmitPrompt(ctx, "P2"))

	require.NoError(t, m.RewindTo(1))
	assert.Empty(t, cmp.Diff(s1, m.State()))
	assert.Len(t, m.History(), 2)

	require.NoError(t, m.RewindTo(1))
	assert.Empty(t, cmp.Diff(s1, m.State()))

	require.NoError(t, m.RewindTo(0))
	assert.Empty(t, cmp.Diff(s2, m.State()))

	assert.ErrorIs(t, m.RewindTo(2), ErrNoSuchEntry)
	assert.ErrorIs(t, m.RewindTo(-1), ErrNoSuchEntry)
}

func TestManager_RewindDoesNotAliasHistory(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}}})
	require.NoError(t, m.SubmitPrompt(context.Background(), "P1"))

	require.NoError(t, m.RewindTo(0))
	require.True(t, m.ToggleCompletion(1))
	require.True(t, m.ToggleSelection(1))

	entry := m.History()[0].State
	assert.False(t, entry.Tasks[0].Completed)
	assert.Empty(t, entry.SelectedTaskIDs)
}

func TestManager_Toggles(t *testing.T) {
	m := NewManager(&fakeMutator{results: []fakeResult{{state: withTask(1, "Buy milk", false)}}})
	require.NoError(t, m.SubmitPrompt(context.Background(), "P1"))

	assert.True(t, m.ToggleCompletion(1))
	assert.True(t, m.State().Tasks[0].Completed)
	assert.True(t, m.ToggleCompletion(1))
	assert.False(t, m.State().Tasks[0].Completed)

	assert.True(t, m.ToggleSelection(1))
	assert.Equal(t, []int64{1}, m.State().SelectedTaskIDs)
	assert.True(t, m.ToggleSelection(1))
	assert.Empty(t, m.State().SelectedTaskIDs)

	assert.False(t, m.ToggleCompletion(99))
	assert.False(t, m.ToggleSelection(99))
	assert.Len(t, m.History(), 1)
}

func TestManager_PersistAndRestore(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	s1 := withTask(1, "Buy milk", false)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}}}, WithStateStore(s))
	require.NoError(t, m.SubmitPrompt(ctx, "P1"))
	require.True(t, m.ToggleCompletion(1))

	restored := NewManager(&fakeMutator{}, WithStateStore(s))
	require.NoError(t, restored.Restore(ctx))
	assert.Empty(t, cmp.Diff(m.State(), restored.State()))
	assert.Empty(t, restored.History())
}

func TestManager_RestoreEmptyStore(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := NewManager(&fakeMutator{}, WithStateStore(s))
	require.NoError(t, m.Restore(context.Background()))
	assert.Empty(t, cmp.Diff(models.NewAppState(), m.State()))
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return []byte("{not json"), nil }
func (brokenStore) Put(context.Context, string, []byte) error   { return errors.New("disk full") }
func (brokenStore) Delete(context.Context, string) error         { return errors.New("disk full") }

func TestManager_RestoreCorrupt(t *testing.T) {
	m := NewManager(&fakeMutator{}, WithStateStore(brokenStore{}))
	assert.Error(t, m.Restore(context.Background()))
	assert.Empty(t, cmp.Diff(models.NewAppState(), m.State()))
}

func TestManager_PersistFailureKeepsState(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	m := NewManager(&fakeMutator{results: []fakeResult{{state: s1}}}, WithStateStore(brokenStore{}))

	require.NoError(t, m.SubmitPrompt(context.Background(), "P1"))
	assert.Empty(t, cmp.Diff(s1, m.State()))
}

func TestManager_Reset(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	m := NewManager(&fakeMutator{results: []fakeResult{{state: withTask(1, "Buy milk", false)}}}, WithStateStore(s))
	require.NoError(t, m.SubmitPrompt(ctx, "P1"))

	require.NoError(t, m.Reset(ctx))
	assert.Empty(t, cmp.Diff(models.NewAppState(), m.State()))
	assert.Empty(t, m.History())
	assert.Empty(t, m.LastApplied())

	_, err = s.Get(ctx, store.StateKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManager_ResetWhilePending(t *testing.T) {
	s1 := withTask(1, "Buy milk", false)
	fake := &fakeMutator{
		results: []fakeResult{{state: s1}},
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	m := NewManager(fake)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- m.SubmitPrompt(ctx, "P1") }()
	<-fake.started

	assert.ErrorIs(t, m.Reset(ctx), ErrPending)

	close(fake.gate)
	require.NoError(t, <-done)
	assert.Len(t, m.History(), 1)
}

func TestManager_ResetStoreFailure(t *testing.T) {
	m := NewManager(&fakeMutator{}, WithStateStore(brokenStore{}))
	assert.Error(t, m.Reset(context.Background()))
	assert.Empty(t, cmp.Diff(models.NewAppState(), m.State()))
}

func TestManager_StaleErrorTimerKeepsNewerSignal(t *testing.T) {
	fake := &fakeMutator{results: []fakeResult{{err: ErrTransport}, {err: ErrTransport}}}
	m := NewManager(fake, WithErrorDisplay(time.Hour))
	defer m.Close()
	ctx := context.Background()

	require.Error(t, m.SubmitPrompt(ctx, "P1"))
	m.mu.Lock()
	first := m.errGen
	m.mu.Unlock()

	require.Error(t, m.SubmitPrompt(ctx, "P2"))

	// The first failure's timer fires late, after the second failure.
	m.clearError(first)
	assert.True(t, m.ErrorVisible())

	m.mu.Lock()
	current := m.errGen
	m.mu.Unlock()
	m.clearError(current)
	assert.False(t, m.ErrorVisible())
}
