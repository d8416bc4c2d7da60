package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/retry"
	"ipsentry/internal/types"

	"go.uber.org/zap"
)

// Store persists the single monitoring state record.
//
// Load returns the first-run state and a nil error when nothing was saved
// yet. Unreadable data yields the first-run state together with an error.
type Store interface {
	Load(ctx context.Context) (types.MonitoringState, error)
	Save(ctx context.Context, state types.MonitoringState) error
	Close() error
}

// HistoryRecorder is implemented by backends that keep a change history
type HistoryRecorder interface {
	RecordChange(ctx context.Context, change types.AddressChange) error
}

// New creates the store selected by cfg.Driver. Networked backends are
// retried per cfg.ConnectRetry since they may come up after the daemon.
func New(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (Store, error) {
	var open func(ctx context.Context) (Store, error)

	switch cfg.Driver {
	case "", "file":
		s, err := NewFileStore(cfg.Path, cfg.History, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql", "postgres", "pgx":
		open = func(ctx context.Context) (Store, error) { return NewSQLStore(ctx, cfg, logger) }
	case "redis":
		open = func(ctx context.Context) (Store, error) { return NewRedisStore(ctx, &cfg.Redis, logger) }
	case "mongodb":
		open = func(ctx context.Context) (Store, error) { return NewMongoStore(ctx, &cfg.MongoDB, logger) }
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidDriver, cfg.Driver)
	}

	var s Store
	err := retry.Execute(ctx, &cfg.ConnectRetry, logger, "open "+cfg.Driver+" store", func(ctx context.Context) error {
		var err error
		s, err = open(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// record is the persisted form of the monitoring state
type record struct {
	Address                 string `json:"address" bson:"address"`
	LastChangeAt            string `json:"last_change_at" bson:"last_change_at"`
	StagnationBudgetSeconds int64  `json:"stagnation_budget_seconds" bson:"stagnation_budget_seconds"`
	EscalationStep          int    `json:"escalation_step" bson:"escalation_step"`
	UpdatedAt               string `json:"updated_at" bson:"updated_at"`
}

// newRecord converts state for storage
func newRecord(state types.MonitoringState, now time.Time) record {
	r := record{
		Address:                 state.LastAddress.String(),
		StagnationBudgetSeconds: int64(state.StagnationBudget / time.Second),
		EscalationStep:          state.EscalationStep,
		UpdatedAt:               now.UTC().Format(time.RFC3339Nano),
	}
	if !state.LastChangeAt.IsZero() {
		r.LastChangeAt = state.LastChangeAt.Format(time.RFC3339Nano)
	}
	return r
}

// state converts a stored record back, normalized
func (r record) state() (types.MonitoringState, error) {
	var s types.MonitoringState

	if r.Address != "" {
		addr, err := types.ParseAddress(r.Address)
		if err != nil {
			return types.NewMonitoringState(), err
		}
		s.LastAddress = addr
	}

	if r.LastChangeAt != "" {
		at, err := time.Parse(time.RFC3339Nano, r.LastChangeAt)
		if err != nil {
			return types.NewMonitoringState(), fmt.Errorf("invalid last_change_at: %w", err)
		}
		s.LastChangeAt = at
	}

	s.StagnationBudget = time.Duration(r.StagnationBudgetSeconds) * time.Second
	s.EscalationStep = r.EscalationStep

	return s.Normalize(), nil
}

// encodeRecord returns the single-line JSON form
func encodeRecord(state types.MonitoringState, now time.Time) ([]byte, error) {
	data, err := json.Marshal(newRecord(state, now))
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// decodeRecord parses the JSON form
func decodeRecord(data []byte) (types.MonitoringState, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return types.NewMonitoringState(), fmt.Errorf("malformed state record: %w", err)
	}
	return r.state()
}
