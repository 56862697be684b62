// Package aggregator runs the periodic summary task. Without a monitoring
// period it is not started and sections publish their summaries inline.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	log "github.com/sirupsen/logrus"
)

func New(period time.Duration, sources []SummarySource, pub publisher.Publisher, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		period:  period,
		sources: sources,
		pub:     pub,
		metrics: m,
	}
}

// Run wakes every period and publishes all summaries until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	if a.period <= 0 {
		return
	}
	log.Debugf("Publishing summaries every %s", a.period)

	ticker := time.NewTicker(a.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debugln("Summary task stopped")
			return
		case <-ticker.C:
			if err := a.AggregateAndPublish(ctx); err != nil {
				log.Warnf("Error publishing summaries: %v", err)
			}
		}
	}
}

// AggregateAndPublish publishes one summary per section, retained.
// Terminated sections and sections without a summary topic are skipped.
// Every section is tried; publish errors are joined.
func (a *Aggregator) AggregateAndPublish(ctx context.Context) error {
	var errs []error
	for _, src := range a.sources {
		name := src.Section().Name
		topic, payload, ok := src.RequestSummary(ctx)
		if !ok {
			log.Tracef("No summary for section %s", name)
			continue
		}
		if err := a.pub.Publish(topic, payload, true); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", name, err))
			continue
		}
		a.metrics.SummaryEmitted(name)
		log.Tracef("Summary of %s: %s", name, payload)
	}
	return errors.Join(errs...)
}
