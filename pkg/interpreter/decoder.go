// Package interpreter turns scanned TeleInfo fields into publishes.
// A decoder owns the Values and Max of its section; it is driven by a single
// goroutine and is not safe for concurrent use.
package interpreter

import (
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	log "github.com/sirupsen/logrus"
)

type Decoder interface {
	// Handle interprets one field and reports whether it closed the
	// previous frame.
	Handle(f types.Field) bool
	// EndFrame closes the current frame without waiting for the next
	// start label. Reports whether a frame was open.
	EndFrame() bool
	// Abandon drops a partial frame after the stream was cut.
	Abandon()
	// Summary builds the summary message. When flush is set the maxima are
	// included and reset. ok is false when the section has no summary topic.
	Summary(flush bool) (topic string, payload []byte, ok bool)
}

// Options tune a decoder.
type Options struct {
	// Periodic is set when a monitoring period is configured: maxima are
	// tracked and summaries are no longer emitted at every frame.
	Periodic bool
	Log      *log.Entry
	// OnSummary is called after every inline summary publish.
	OnSummary func()
	// OnMalformed is called when a field payload cannot be interpreted.
	OnMalformed func()
}

// NewDecoder returns the decoder matching the section variant.
func NewDecoder(section *types.Section, pub publisher.Publisher, opts Options) Decoder {
	if opts.Log == nil {
		opts.Log = log.WithField("section", section.Name)
	}
	if opts.OnSummary == nil {
		opts.OnSummary = func() {}
	}
	if opts.OnMalformed == nil {
		opts.OnMalformed = func() {}
	}
	base := decoderBase{
		section: section,
		pub:     pub,
		opts:    opts,
		values:  types.NewValues(),
		max:     types.Max{},
	}
	if section.Variant == types.Standard {
		return &StandardDecoder{decoderBase: base}
	}
	return &HistoricDecoder{decoderBase: base}
}

// decoderBase carries what both variants share.
type decoderBase struct {
	section *types.Section
	pub     publisher.Publisher
	opts    Options
	values  *types.Values
	max     types.Max
}

// publish never fails the caller: a lost publish is logged and forgotten.
func (d *decoderBase) publish(topic, payload string, retained bool) {
	if err := d.pub.Publish(topic, []byte(payload), retained); err != nil {
		d.opts.Log.Debugf("publish %s: %v", topic, err)
	}
}

func (d *decoderBase) malformed(f types.Field, err error) {
	d.opts.Log.Debugf("dropping %s %q: %v", f.Label, f.Payload, err)
	d.opts.OnMalformed()
}

func (d *decoderBase) foldMax(key string, n int64) {
	if d.opts.Periodic {
		d.max.Fold(key, n)
	}
}

// Values exposes the section figures for tests and the owning pipeline.
func (d *decoderBase) Values() *types.Values { return d.values }

// Max exposes the current maxima for tests and the owning pipeline.
func (d *decoderBase) Max() types.Max { return d.max }

// emitInline publishes the summary at a frame boundary when no monitoring
// period is configured.
func (d *decoderBase) emitInline(build func(flush bool) (string, []byte, bool)) {
	if d.opts.Periodic {
		return
	}
	topic, payload, ok := build(false)
	if !ok {
		return
	}
	if err := d.pub.Publish(topic, payload, true); err != nil {
		d.opts.Log.Debugf("publish %s: %v", topic, err)
		return
	}
	d.opts.OnSummary()
}
