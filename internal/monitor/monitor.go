package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/types"

	"go.uber.org/zap"
)

const (
	defaultCallTimeout = 15 * time.Second
	defaultSaveTimeout = 5 * time.Second
)

// Resolver returns the current public address
type Resolver interface {
	Resolve(ctx context.Context) (types.Address, error)
}

// Notifier delivers an event to the configured channels
type Notifier interface {
	Notify(ctx context.Context, evt *types.Event) error
}

// Store persists the monitoring state
type Store interface {
	Load(ctx context.Context) (types.MonitoringState, error)
	Save(ctx context.Context, state types.MonitoringState) error
}

// HistoryRecorder is implemented by stores that keep a change history
type HistoryRecorder interface {
	RecordChange(ctx context.Context, change types.AddressChange) error
}

// Stats represents monitor run statistics
type Stats struct {
	Checks           int64
	Failures         int64
	Changes          int64
	StagnationAlerts int64
	DeliveryFailures int64
	WriteFailures    int64
	LastCheck        time.Time
	LastSuccess      time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// Monitor runs the polling loop. The monitoring state is owned by the
// goroutine running Run and is never shared.
type Monitor struct {
	config   *config.MonitorConfig
	policy   Policy
	resolver Resolver
	notifier Notifier
	store    Store
	logger   *zap.Logger
	now      func() time.Time

	state types.MonitoringState

	mu    sync.RWMutex
	stats Stats
}

// New creates a new Monitor
func New(cfg *config.MonitorConfig, resolver Resolver, notifier Notifier, store Store, logger *zap.Logger, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("monitor config is required")
	}
	if cfg.Interval <= 0 || cfg.BaseThreshold <= 0 {
		return nil, fmt.Errorf("%w: interval and base threshold must be positive", types.ErrStartupConfig)
	}
	if resolver == nil || notifier == nil || store == nil {
		return nil, fmt.Errorf("resolver, notifier and store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := *cfg
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = defaultCallTimeout
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = defaultCallTimeout
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = defaultSaveTimeout
	}

	m := &Monitor{
		config: &c,
		policy: Policy{
			BaseThreshold: cfg.BaseThreshold,
			TickInterval:  cfg.Interval,
		},
		resolver: resolver,
		notifier: notifier,
		store:    store,
		logger:   logger,
		now:      time.Now,
		state:    types.NewMonitoringState(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Run loads the last state, checks once immediately and then on every tick
// until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.state = m.loadState(ctx)

	m.logger.Info("Starting address monitor",
		zap.String("label", m.config.Label),
		zap.Duration("interval", m.config.Interval),
		zap.Duration("base_threshold", m.config.BaseThreshold),
		zap.Stringer("last_address", m.state.LastAddress),
		zap.Time("last_change_at", m.state.LastChangeAt),
		zap.Int("escalation_step", m.state.EscalationStep))

	m.Tick(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stats := m.Stats()
			m.logger.Info("Address monitor stopped",
				zap.Int64("checks", stats.Checks),
				zap.Int64("failures", stats.Failures),
				zap.Int64("changes", stats.Changes),
				zap.Int64("stagnation_alerts", stats.StagnationAlerts))
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick performs a single check. It must not be called concurrently with Run.
func (m *Monitor) Tick(ctx context.Context) {
	start := m.now()
	defer func() {
		m.logger.Debug("Address check completed",
			zap.Duration("duration", m.now().Sub(start)),
			zap.Stringer("address", m.state.LastAddress),
			zap.Duration("stagnation_budget", m.state.StagnationBudget),
			zap.Int("escalation_step", m.state.EscalationStep))
	}()

	resolveCtx, cancel := context.WithTimeout(ctx, m.config.ResolveTimeout)
	addr, err := m.resolver.Resolve(resolveCtx)
	cancel()

	if err != nil {
		m.updateStats(func(s *Stats) {
			s.Checks++
			s.Failures++
			s.LastCheck = start
		})
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("Failed to resolve public address, waiting for next check", zap.Error(err))
		return
	}

	now := m.now()
	m.updateStats(func(s *Stats) {
		s.Checks++
		s.LastCheck = start
		s.LastSuccess = now
	})

	decision := m.policy.Step(m.state, addr, now)
	m.state = decision.Next

	if decision.Persist {
		m.persist(ctx, decision.Next)
	}

	if decision.Event == nil {
		return
	}

	switch decision.Event.Kind {
	case types.EventChanged:
		m.updateStats(func(s *Stats) { s.Changes++ })
		m.logger.Info("Public address changed",
			zap.Stringer("previous", decision.Event.Previous),
			zap.Stringer("address", decision.Event.Address),
			zap.Duration("after", decision.Event.Elapsed))
		m.recordHistory(ctx, decision.Event)
	case types.EventStagnant:
		m.updateStats(func(s *Stats) { s.StagnationAlerts++ })
		m.logger.Info("Public address unchanged",
			zap.Stringer("address", decision.Event.Address),
			zap.Duration("since", decision.Event.Elapsed),
			zap.Int("escalation_step", decision.Event.Step),
			zap.Duration("next_alert_in", decision.Next.StagnationBudget))
	}

	m.dispatch(ctx, decision.Event)
}

// State returns the current in-memory state. It must be called from the
// goroutine that owns the monitor.
func (m *Monitor) State() types.MonitoringState {
	return m.state
}

// Stats returns a copy of the run statistics
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// loadState loads the persisted state, falling back to the first-run state
func (m *Monitor) loadState(ctx context.Context) types.MonitoringState {
	state, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("Failed to load last state, starting fresh", zap.Error(err))
		return types.NewMonitoringState()
	}
	return state.Normalize()
}

// persist saves the state. Shutdown must not abort a decided transition, so
// the save runs detached from ctx cancellation but bounded by its own timeout.
func (m *Monitor) persist(ctx context.Context, state types.MonitoringState) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.SaveTimeout)
	defer cancel()

	if err := m.store.Save(saveCtx, state); err != nil {
		m.updateStats(func(s *Stats) { s.WriteFailures++ })
		m.logger.Error("Failed to save state, keeping in-memory state",
			zap.Error(errors.Join(types.ErrWrite, err)))
	}
}

// recordHistory appends the change to the store history when supported
func (m *Monitor) recordHistory(ctx context.Context, evt *types.Event) {
	recorder, ok := m.store.(HistoryRecorder)
	if !ok {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.SaveTimeout)
	defer cancel()

	change := types.AddressChange{
		Previous:  evt.Previous,
		Current:   evt.Address,
		After:     evt.Elapsed,
		ChangedAt: evt.At,
	}
	if err := recorder.RecordChange(saveCtx, change); err != nil {
		m.logger.Warn("Failed to record address change history", zap.Error(err))
	}
}

// dispatch sends the event; failures never roll back the state
func (m *Monitor) dispatch(ctx context.Context, evt *types.Event) {
	notifyCtx, cancel := context.WithTimeout(ctx, m.config.NotifyTimeout)
	defer cancel()

	if err := m.notifier.Notify(notifyCtx, evt); err != nil {
		m.updateStats(func(s *Stats) { s.DeliveryFailures++ })
		m.logger.Error("Failed to deliver notification",
			zap.String("kind", string(evt.Kind)),
			zap.Error(err))
	}
}

// updateStats updates statistics safely
func (m *Monitor) updateStats(fn func(*Stats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.stats)
}
