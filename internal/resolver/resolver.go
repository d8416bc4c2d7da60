package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/types"

	"go.uber.org/zap"
)

// Resolver discovers the host's current public address
type Resolver interface {
	Resolve(ctx context.Context) (types.Address, error)
}

// Provider is a named Resolver, the name only shows up in logs and errors
type Provider interface {
	Resolver
	Name() string
}

// Chain tries its providers in order and returns the first answer.
// Each provider gets its own deadline: ProviderTimeout, shortened to an even
// share of what is left of the caller's deadline.
type Chain struct {
	providers       []Provider
	providerTimeout time.Duration
	logger          *zap.Logger
}

// NewChain creates a chain over providers
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

// New builds the HTTP provider chain from config
func New(cfg *config.ResolverConfig, logger *zap.Logger) (*Chain, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no address providers configured")
	}

	client := newClient()
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, url := range cfg.Providers {
		providers = append(providers, NewHTTPProvider(url, client, cfg.MaxBodySize, logger))
	}

	c := NewChain(logger, providers...)
	c.providerTimeout = cfg.ProviderTimeout
	return c, nil
}

// Resolve returns the first successful provider answer
func (c *Chain) Resolve(ctx context.Context) (types.Address, error) {
	if len(c.providers) == 0 {
		return types.Address{}, fmt.Errorf("%w: no providers", types.ErrResolution)
	}

	var errs []error
	for i, p := range c.providers {
		pctx, cancel := c.providerContext(ctx, len(c.providers)-i)
		addr, err := p.Resolve(pctx)
		cancel()
		if err == nil {
			return addr, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		c.logger.Debug("Provider failed",
			zap.String("provider", p.Name()),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return types.Address{}, fmt.Errorf("%w: %w", types.ErrResolution, errors.Join(errs...))
}

// providerContext derives the deadline for one attempt, remaining counts the
// providers not yet tried including this one
func (c *Chain) providerContext(ctx context.Context, remaining int) (context.Context, context.CancelFunc) {
	timeout := c.providerTimeout
	if deadline, ok := ctx.Deadline(); ok {
		share := time.Until(deadline) / time.Duration(remaining)
		if timeout <= 0 || share < timeout {
			timeout = share
		}
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
