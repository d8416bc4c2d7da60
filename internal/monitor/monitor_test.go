package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// callLog records the order of side effects across fakes
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeResolver struct {
	log     *callLog
	results []resolveResult
	calls   int
	onCall  func()
}

type resolveResult struct {
	addr types.Address
	err  error
}

func (r *fakeResolver) Resolve(ctx context.Context) (types.Address, error) {
	r.log.add("resolve")
	if r.onCall != nil {
		r.onCall()
	}
	res := r.results[len(r.results)-1]
	if r.calls < len(r.results) {
		res = r.results[r.calls]
	}
	r.calls++
	return res.addr, res.err
}

type fakeNotifier struct {
	log    *callLog
	err    error
	events []*types.Event
}

func (n *fakeNotifier) Notify(_ context.Context, evt *types.Event) error {
	n.log.add("notify:" + string(evt.Kind))
	n.events = append(n.events, evt)
	return n.err
}

type fakeStore struct {
	log     *callLog
	loaded  types.MonitoringState
	loadErr error
	saveErr error
	saved   []types.MonitoringState
	changes []types.AddressChange
}

func (s *fakeStore) Load(context.Context) (types.MonitoringState, error) {
	return s.loaded, s.loadErr
}

func (s *fakeStore) Save(ctx context.Context, state types.MonitoringState) error {
	s.log.add("save")
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, state)
	return nil
}

func (s *fakeStore) RecordChange(_ context.Context, change types.AddressChange) error {
	s.log.add("history")
	s.changes = append(s.changes, change)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type harness struct {
	log      *callLog
	resolver *fakeResolver
	notifier *fakeNotifier
	store    *fakeStore
	clock    *fakeClock
	monitor  *Monitor
}

func newHarness(t *testing.T, results ...resolveResult) *harness {
	t.Helper()

	log := &callLog{}
	h := &harness{
		log:      log,
		resolver: &fakeResolver{log: log, results: results},
		notifier: &fakeNotifier{log: log},
		store:    &fakeStore{log: log, loaded: types.NewMonitoringState()},
		clock:    &fakeClock{now: t0},
	}

	m, err := New(&config.MonitorConfig{
		Label:         "test",
		Interval:      time.Minute,
		BaseThreshold: time.Hour,
	}, h.resolver, h.notifier, h.store, zaptest.NewLogger(t), WithClock(h.clock.Now))
	require.NoError(t, err)
	h.monitor = m

	return h
}

func ok(addr types.Address) resolveResult {
	return resolveResult{addr: addr}
}

func TestNewValidatesArguments(t *testing.T) {
	logger := zaptest.NewLogger(t)
	log := &callLog{}
	r := &fakeResolver{log: log}
	n := &fakeNotifier{log: log}
	s := &fakeStore{log: log}

	_, err := New(nil, r, n, s, logger)
	assert.Error(t, err)

	_, err = New(&config.MonitorConfig{Interval: time.Minute}, r, n, s, logger)
	assert.ErrorIs(t, err, types.ErrStartupConfig)

	_, err = New(&config.MonitorConfig{Interval: time.Minute, BaseThreshold: time.Hour}, nil, n, s, logger)
	assert.Error(t, err)

	m, err := New(&config.MonitorConfig{Interval: time.Minute, BaseThreshold: time.Hour}, r, n, s, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultCallTimeout, m.config.ResolveTimeout)
	assert.Equal(t, defaultCallTimeout, m.config.NotifyTimeout)
	assert.Equal(t, defaultSaveTimeout, m.config.SaveTimeout)
}

func TestTickFirstChangePersistsBeforeNotify(t *testing.T) {
	h := newHarness(t, ok(addrA))

	h.monitor.Tick(context.Background())

	assert.Equal(t, []string{"resolve", "save", "history", "notify:changed"}, h.log.all())

	require.Len(t, h.store.saved, 1)
	assert.True(t, h.store.saved[0].LastAddress.Equal(addrA))
	assert.Equal(t, t0, h.store.saved[0].LastChangeAt)

	require.Len(t, h.notifier.events, 1)
	evt := h.notifier.events[0]
	assert.True(t, evt.IsFirst())
	assert.Zero(t, evt.Elapsed)

	require.Len(t, h.store.changes, 1)
	assert.True(t, h.store.changes[0].Current.Equal(addrA))

	stats := h.monitor.Stats()
	assert.EqualValues(t, 1, stats.Checks)
	assert.EqualValues(t, 1, stats.Changes)
}

func TestTickResolutionFailureKeepsState(t *testing.T) {
	h := newHarness(t, ok(addrA), resolveResult{err: types.ErrResolution})
	ctx := context.Background()

	h.monitor.Tick(ctx)
	before := h.monitor.State()

	h.clock.Advance(time.Minute)
	h.monitor.Tick(ctx)

	assert.Equal(t, before, h.monitor.State())
	assert.Len(t, h.store.saved, 1)
	assert.Len(t, h.notifier.events, 1)

	stats := h.monitor.Stats()
	assert.EqualValues(t, 2, stats.Checks)
	assert.EqualValues(t, 1, stats.Failures)
}

func TestTickQuietTicksDoNotWrite(t *testing.T) {
	h := newHarness(t, ok(addrA))
	ctx := context.Background()

	h.monitor.Tick(ctx)
	for i := 0; i < 10; i++ {
		h.clock.Advance(time.Minute)
		h.monitor.Tick(ctx)
	}

	assert.Len(t, h.store.saved, 1)
	assert.Len(t, h.notifier.events, 1)
	assert.Equal(t, 50*time.Minute, h.monitor.State().StagnationBudget)
}

func TestTickStagnationAfterThreshold(t *testing.T) {
	h := newHarness(t, ok(addrA))
	ctx := context.Background()

	h.monitor.Tick(ctx)
	for i := 0; i < 60; i++ {
		h.clock.Advance(time.Minute)
		h.monitor.Tick(ctx)
	}

	require.Len(t, h.notifier.events, 2)
	evt := h.notifier.events[1]
	assert.Equal(t, types.EventStagnant, evt.Kind)
	assert.Equal(t, time.Hour, evt.Elapsed)
	assert.Equal(t, 1, evt.Step)

	require.Len(t, h.store.saved, 2)
	assert.Equal(t, 2, h.store.saved[1].EscalationStep)
	assert.Equal(t, 2*time.Hour, h.store.saved[1].StagnationBudget)

	// stagnation is not a change
	assert.Len(t, h.store.changes, 1)
	assert.EqualValues(t, 1, h.monitor.Stats().StagnationAlerts)
}

func TestTickWriteFailureKeepsInMemoryState(t *testing.T) {
	h := newHarness(t, ok(addrA))
	h.store.saveErr = errors.New("disk full")

	h.monitor.Tick(context.Background())

	assert.True(t, h.monitor.State().LastAddress.Equal(addrA))
	assert.Len(t, h.notifier.events, 1)
	assert.EqualValues(t, 1, h.monitor.Stats().WriteFailures)
}

func TestTickDeliveryFailureStillAdvances(t *testing.T) {
	h := newHarness(t, ok(addrA), ok(addrB))
	h.notifier.err = errors.Join(types.ErrDelivery, errors.New("telegram: 502"))
	ctx := context.Background()

	h.monitor.Tick(ctx)
	h.clock.Advance(time.Minute)
	h.monitor.Tick(ctx)

	state := h.monitor.State()
	assert.True(t, state.LastAddress.Equal(addrB))
	assert.Equal(t, 1, state.EscalationStep)

	require.Len(t, h.notifier.events, 2)
	assert.True(t, h.notifier.events[1].Previous.Equal(addrA))
	assert.Equal(t, time.Minute, h.notifier.events[1].Elapsed)
	assert.EqualValues(t, 2, h.monitor.Stats().DeliveryFailures)
}

func TestTickSaveSurvivesCancellation(t *testing.T) {
	h := newHarness(t, ok(addrA))
	ctx, cancel := context.WithCancel(context.Background())
	h.resolver.onCall = cancel

	h.monitor.Tick(ctx)

	require.Len(t, h.store.saved, 1)
	assert.True(t, h.store.saved[0].LastAddress.Equal(addrA))
}

func TestRunResumesFromStoredState(t *testing.T) {
	h := newHarness(t, ok(addrA))
	h.store.loaded = types.MonitoringState{
		LastAddress:      addrA,
		LastChangeAt:     t0.Add(-30 * time.Minute),
		StagnationBudget: 45 * time.Minute,
		EscalationStep:   2,
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.resolver.onCall = cancel

	require.NoError(t, h.monitor.Run(ctx))

	assert.Empty(t, h.notifier.events)
	state := h.monitor.State()
	assert.Equal(t, 2, state.EscalationStep)
	assert.Equal(t, 44*time.Minute, state.StagnationBudget)
}

func TestRunStartsFreshOnLoadError(t *testing.T) {
	h := newHarness(t, ok(addrA))
	h.store.loaded = types.MonitoringState{LastAddress: addrB, EscalationStep: 4}
	h.store.loadErr = errors.New("malformed state record")

	ctx, cancel := context.WithCancel(context.Background())
	h.resolver.onCall = cancel

	require.NoError(t, h.monitor.Run(ctx))

	require.Len(t, h.notifier.events, 1)
	assert.True(t, h.notifier.events[0].IsFirst())
	assert.Equal(t, 1, h.monitor.State().EscalationStep)
}
