package publisher

import "github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"

// Instrumented counts publishes and failures in m.
func Instrumented(p Publisher, m *metrics.Metrics) Publisher {
	if m == nil {
		return p
	}
	return Func(func(topic string, payload []byte, retained bool) error {
		err := p.Publish(topic, payload, retained)
		m.ObservePublish(err)
		return err
	})
}
