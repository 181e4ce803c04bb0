package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

// MeterName is the instrumentation scope of the simulation metrics.
const MeterName = "github.com/smentu/AI-guided-rockets"

// Metrics holds the instruments updated once per fleet tick.
type Metrics struct {
	steps    metric.Int64Counter
	episodes metric.Int64Counter
	reward   metric.Float64Histogram
	fuel     metric.Float64Gauge
	vehicle  attribute.KeyValue
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter, vehicle string) (*Metrics, error) {
	steps, err := meter.Int64Counter("rocketsim.steps",
		metric.WithDescription("Simulated episode steps"),
		metric.WithUnit("{step}"))
	if err != nil {
		return nil, fmt.Errorf("steps counter: %w", err)
	}
	episodes, err := meter.Int64Counter("rocketsim.episodes",
		metric.WithDescription("Finished episodes by terminal reason"),
		metric.WithUnit("{episode}"))
	if err != nil {
		return nil, fmt.Errorf("episodes counter: %w", err)
	}
	reward, err := meter.Float64Histogram("rocketsim.episode.reward",
		metric.WithDescription("Cumulative reward of finished episodes"))
	if err != nil {
		return nil, fmt.Errorf("reward histogram: %w", err)
	}
	fuel, err := meter.Float64Gauge("rocketsim.fuel",
		metric.WithDescription("Mean remaining fuel across the fleet"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("fuel gauge: %w", err)
	}
	return &Metrics{
		steps:    steps,
		episodes: episodes,
		reward:   reward,
		fuel:     fuel,
		vehicle:  attribute.String("vehicle", vehicle),
	}, nil
}

// RecordTick updates the instruments from one fleet tick.
func (m *Metrics) RecordTick(ctx context.Context, episodes []*sim.Episode, results []sim.StepResult) {
	vehicle := metric.WithAttributes(m.vehicle)
	stepped := 0
	for _, res := range results {
		if res.Step == 0 {
			continue
		}
		stepped++
		if res.Terminal != nil {
			m.episodes.Add(ctx, 1, metric.WithAttributes(m.vehicle, attribute.String("reason", string(res.Terminal.Reason))))
			m.reward.Record(ctx, res.Cumulative, vehicle)
		}
	}
	m.steps.Add(ctx, int64(stepped), vehicle)

	if len(episodes) == 0 {
		return
	}
	total := 0.0
	for _, ep := range episodes {
		total += ep.Rocket().Propulsion().Fuel()
	}
	m.fuel.Record(ctx, total/float64(len(episodes)), vehicle)
}
