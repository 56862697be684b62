package port_reader

import (
	"io"
	"sync"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/interpreter"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	log "github.com/sirupsen/logrus"
)

// SectionReader runs the pipeline of one section: open the device, scan
// frames, hand them to the decoder, close and reopen or terminate.
//
// Two goroutines cooperate. The reader goroutine owns the device and is the
// only one blocking on I/O. The owner goroutine owns the decoder, and with
// it the section Values and Max; summary requests are served there too.
type SectionReader struct {
	section *types.Section
	pub     publisher.Publisher
	opts    Options
	log     *log.Entry

	portMu     sync.Mutex
	serialPort io.ReadCloser

	decoder   interpreter.Decoder
	summaries chan chan summaryReply
	done      chan struct{}
}

type Options struct {
	// Delay between samples. Zero keeps the device open and reads frames
	// back to back.
	Delay time.Duration
	// Periodic is set when a monitoring period drives the summaries.
	Periodic bool
	Metrics  *metrics.Metrics
	// Open defaults to OpenDevice.
	Open Opener
}

type eventKind uint8

const (
	eventField eventKind = iota
	// the frame was complete when the device got closed for the delay
	eventEndFrame
	// the stream was cut in the middle of a frame
	eventAbandon
)

type event struct {
	kind  eventKind
	field types.Field
}

type summaryReply struct {
	topic   string
	payload []byte
	ok      bool
}

type readStatus uint8

const (
	statusTerminated readStatus = iota
	statusReopen
)
