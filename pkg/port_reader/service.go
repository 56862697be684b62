package port_reader

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/interpreter"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/scanner"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	log "github.com/sirupsen/logrus"
)

// Initialize a new SectionReader.
func NewSectionReader(section *types.Section, pub publisher.Publisher, opts Options) *SectionReader {
	if opts.Open == nil {
		opts.Open = OpenDevice
	}
	entry := log.WithField("section", section.Name)
	r := &SectionReader{
		section:   section,
		pub:       pub,
		opts:      opts,
		log:       entry,
		summaries: make(chan chan summaryReply),
		done:      make(chan struct{}),
	}
	r.decoder = interpreter.NewDecoder(section, pub, interpreter.Options{
		Periodic:    opts.Periodic,
		Log:         entry,
		OnSummary:   func() { opts.Metrics.SummaryEmitted(section.Name) },
		OnMalformed: func() { opts.Metrics.FieldMalformed(section.Name) },
	})
	return r
}

func (r *SectionReader) Section() *types.Section { return r.section }

// Done is closed once the section has terminated.
func (r *SectionReader) Done() <-chan struct{} { return r.done }

// Start the pipeline in a goroutine. handleError receives the error that
// stopped it, a device that could not be opened; it is not called when the
// section terminates normally.
func (r *SectionReader) StartReading(ctx context.Context, handleError func(error)) {
	go func() {
		if err := r.Run(ctx); err != nil {
			handleError(err)
		}
	}()
}

// Run blocks until the section terminates or ctx is cancelled.
func (r *SectionReader) Run(ctx context.Context) error {
	defer close(r.done)

	events := make(chan event)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		readErr <- r.read(ctx, events)
	}()

	// a blocked device read only returns once the handle is closed
	go func() {
		select {
		case <-ctx.Done():
			r.disconnect()
		case <-r.done:
		}
	}()

	r.own(events)
	r.log.Debugln("Section terminated")
	return <-readErr
}

// RequestSummary asks the owner goroutine for the periodic summary, which
// resets the maxima. ok is false once the section has terminated or when it
// has no summary topic.
func (r *SectionReader) RequestSummary(ctx context.Context) (topic string, payload []byte, ok bool) {
	reply := make(chan summaryReply, 1)
	select {
	case r.summaries <- reply:
	case <-r.done:
		return "", nil, false
	case <-ctx.Done():
		return "", nil, false
	}
	rep := <-reply
	return rep.topic, rep.payload, rep.ok
}

// own applies events to the decoder until the reader goroutine is gone.
func (r *SectionReader) own(events <-chan event) {
	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			r.apply(ev)
		case reply := <-r.summaries:
			topic, payload, ok := r.decoder.Summary(true)
			reply <- summaryReply{topic: topic, payload: payload, ok: ok}
		}
	}
}

func (r *SectionReader) apply(ev event) {
	switch ev.kind {
	case eventField:
		if r.decoder.Handle(ev.field) {
			r.frameCompleted()
		}
	case eventEndFrame:
		if r.decoder.EndFrame() {
			r.frameCompleted()
		}
	case eventAbandon:
		r.decoder.Abandon()
	}
}

func (r *SectionReader) frameCompleted() {
	r.opts.Metrics.FrameDecoded(r.section.Name)
	r.log.Debugln("Frame complete")
}

// read is the reader goroutine: Opening -> Scanning -> Closing -> Opening,
// until the stream terminates or ctx is cancelled.
func (r *SectionReader) read(ctx context.Context, events chan<- event) error {
	for {
		dev, err := r.connect(ctx)
		if err != nil {
			return err
		}
		if dev == nil {
			return nil
		}
		status := r.scan(ctx, dev, events)
		r.disconnect()

		if ctx.Err() != nil || status == statusTerminated {
			return nil
		}
		r.log.Debugf("Waiting %s before reopening", r.opts.Delay)
		select {
		case <-time.After(r.opts.Delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// scan reads one device descriptor until it must be closed.
func (r *SectionReader) scan(ctx context.Context, dev io.Reader, events chan<- event) readStatus {
	send := func(ev event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	variant := r.section.Variant
	horodated := interpreter.IsHorodated
	if variant == types.Historic {
		horodated = nil
	}
	sc := scanner.New(dev, variant.Delimiter(), horodated)

	r.log.Debugf("Waiting for a %s frame", variant)
	start, err := sc.Sync(variant.StartLabel())
	if err != nil {
		r.logEndOfStream(ctx, err, "stream ended before the first frame")
		return statusTerminated
	}
	r.trace(start)
	if !send(event{kind: eventField, field: start}) {
		return statusTerminated
	}

	for {
		f, err := sc.Next()
		if errors.Is(err, scanner.ErrMalformedField) {
			r.opts.Metrics.FieldMalformed(r.section.Name)
			r.log.Debugf("Skipping field: %v", err)
			continue
		}
		if err != nil {
			send(event{kind: eventAbandon})
			if r.opts.Delay > 0 {
				r.logEndOfStream(ctx, err, "stream ended, reopening")
				return statusReopen
			}
			r.logEndOfStream(ctx, err, "stream ended")
			return statusTerminated
		}
		r.trace(f)

		if r.opts.Delay > 0 && f.Label == variant.StartLabel() {
			// the frame is complete; give the device a rest
			if !send(event{kind: eventEndFrame}) {
				return statusTerminated
			}
			return statusReopen
		}
		if !send(event{kind: eventField, field: f}) {
			return statusTerminated
		}
	}
}

func (r *SectionReader) trace(f types.Field) {
	r.opts.Metrics.FieldScanned(r.section.Name)
	if f.HasHorodate {
		r.log.Tracef("--> %s '%s' (%s)", f.Label, f.Payload, f.Horodate)
		return
	}
	r.log.Tracef("--> %s '%s'", f.Label, f.Payload)
}

func (r *SectionReader) logEndOfStream(ctx context.Context, err error, msg string) {
	if ctx.Err() != nil {
		return
	}
	r.log.Debugf("%s: %v", msg, err)
}

// Open the section device. Opening a FIFO blocks until a writer shows up;
// a nil handle is returned when ctx is done first, and the late handle is
// closed as soon as the open completes.
func (r *SectionReader) connect(ctx context.Context) (io.ReadCloser, error) {
	type opened struct {
		dev io.ReadCloser
		err error
	}
	result := make(chan opened, 1)
	go func() {
		dev, err := r.opts.Open(r.section)
		result <- opened{dev, err}
	}()

	var o opened
	select {
	case o = <-result:
	case <-ctx.Done():
		r.log.Debugf("Gave up opening %s", r.section.Port)
		go func() {
			if late := <-result; late.err == nil {
				late.dev.Close()
			}
		}()
		return nil, nil
	}
	if o.err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, o.err
	}

	// ctx is checked under the lock the cancel watcher closes the port with
	r.portMu.Lock()
	if ctx.Err() != nil {
		r.portMu.Unlock()
		o.dev.Close()
		return nil, nil
	}
	r.serialPort = o.dev
	r.portMu.Unlock()

	r.opts.Metrics.DeviceOpened(r.section.Name)
	r.log.Infof("Connected to %s", r.section.Port)
	return o.dev, nil
}

func (r *SectionReader) disconnect() {
	r.portMu.Lock()
	defer r.portMu.Unlock()
	if r.serialPort != nil {
		r.serialPort.Close()
		r.serialPort = nil
		r.log.Debugf("Disconnected from %s", r.section.Port)
	}
}
