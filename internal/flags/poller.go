// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/trailmark/internal/logging"
)

// Poller periodically loads definitions from a Source into an Evaluator.
// It implements suture.Service.
type Poller struct {
	source    Source
	evaluator *Evaluator
	interval  time.Duration
}

// NewPoller creates a poller. A non-positive interval loads once and then
// waits for shutdown.
func NewPoller(source Source, evaluator *Evaluator, interval time.Duration) *Poller {
	return &Poller{source: source, evaluator: evaluator, interval: interval}
}

// Refresh loads definitions once.
func (p *Poller) Refresh(ctx context.Context) error {
	defs, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load flag definitions: %w", err)
	}
	p.evaluator.SetDefinitions(defs)
	logging.Debug().Int("flags", len(defs)).Msg("Flag definitions refreshed")
	return nil
}

// Serve refreshes on every tick until ctx is canceled. Load failures are
// logged and the previous definitions stay in effect.
func (p *Poller) Serve(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial flag refresh failed")
	}

	if p.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("Flag refresh failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *Poller) String() string {
	return "flag-poller"
}
