package aggregator

import (
	"context"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
)

// SummarySource is a section able to hand out its periodic summary.
// The summary is built by the goroutine owning the section figures; the
// maxima are reset in the same step.
type SummarySource interface {
	Section() *types.Section
	RequestSummary(ctx context.Context) (topic string, payload []byte, ok bool)
}

// Aggregator publishes the summary of every section once per monitoring
// period.
type Aggregator struct {
	period  time.Duration
	sources []SummarySource
	pub     publisher.Publisher
	metrics *metrics.Metrics
}
