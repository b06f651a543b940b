// Copyright 2026 The Orgbase Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	// Meter from the global provider; the provider itself is configured
	// via standard OTEL_* environment variables.
	return &Meter{
		meter: otel.Meter(serviceName),
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// AuthzMetrics records authorization decision counters emitted by the
// permission guard.
type AuthzMetrics struct {
	decisions metric.Int64Counter
}

// NewAuthzMetrics creates the guard decision counters
func (m *Meter) NewAuthzMetrics() (*AuthzMetrics, error) {
	decisions, err := m.meter.Int64Counter(
		"authz_decisions_total",
		metric.WithDescription("Authorization guard decisions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz decision counter: %w", err)
	}
	return &AuthzMetrics{decisions: decisions}, nil
}

// RecordDecision counts one guard decision. Outcome is one of "granted",
// "denied" or "missing_org".
func (a *AuthzMetrics) RecordDecision(ctx context.Context, outcome string) {
	if a == nil || a.decisions == nil {
		return
	}
	a.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
