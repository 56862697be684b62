// Package publisher holds the publish capability shared by every section
// and its implementations.
package publisher

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("not connected to the broker")

// Publisher sends one payload to a topic.
// Implementations must be safe for concurrent use: every section pipeline
// and the summary aggregator share one Publisher.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Func adapts a function to the Publisher interface.
type Func func(topic string, payload []byte, retained bool) error

func (f Func) Publish(topic string, payload []byte, retained bool) error {
	return f(topic, payload, retained)
}

// Tee publishes to every target in order. All targets are tried; the
// errors are joined.
type Tee []Publisher

func (t Tee) Publish(topic string, payload []byte, retained bool) error {
	var errs []error
	for _, p := range t {
		if p == nil {
			continue
		}
		if err := p.Publish(topic, payload, retained); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logging wraps a Publisher so that every failure is logged at warn level
// and every success at trace level.
func Logging(p Publisher, entry *log.Entry) Publisher {
	return Func(func(topic string, payload []byte, retained bool) error {
		if err := p.Publish(topic, payload, retained); err != nil {
			entry.Warnf("publish to %s failed: %v", topic, err)
			return err
		}
		entry.Tracef("%s <- %s", topic, payload)
		return nil
	})
}
