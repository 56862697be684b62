package interpreter

import (
	"strconv"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
)

type historicState uint8

const (
	awaitingFrameStart historicState = iota
	inFrame
)

// HistoricDecoder interprets the historic (pre-Linky) frame.
type HistoricDecoder struct {
	decoderBase
	state historicState
}

func (d *HistoricDecoder) Handle(f types.Field) bool {
	if f.Label == types.Historic.StartLabel() {
		completed := d.state == inFrame
		if completed {
			d.completeFrame()
		}
		d.state = inFrame
		return completed
	}
	if d.state != inFrame {
		return false
	}

	kind, known := historicLabels[f.Label]
	if !known {
		d.opts.Log.Tracef("ignoring unknown label %s", f.Label)
		return false
	}
	if !d.section.Allowed(f.Label) {
		return false
	}

	switch kind {
	case historicGauge:
		d.handleGauge(f)
	case historicCounter:
		d.handleCounter(f)
	case historicCategory:
		d.handleCategory(f)
	}
	return false
}

func (d *HistoricDecoder) EndFrame() bool {
	if d.state != inFrame {
		return false
	}
	d.completeFrame()
	d.state = awaitingFrameStart
	return true
}

func (d *HistoricDecoder) Abandon() {
	d.state = awaitingFrameStart
}

func (d *HistoricDecoder) completeFrame() {
	d.emitInline(d.Summary)
}

func (d *HistoricDecoder) valueTopic(label string) string {
	return d.section.Topic + "/values/" + label
}

// Gauges are published at every frame.
func (d *HistoricDecoder) handleGauge(f types.Field) {
	n, err := parseDecimal(f.Payload)
	if err != nil {
		d.malformed(f, err)
		return
	}
	d.values.Numbers[f.Label] = n
	d.publish(d.valueTopic(f.Label), strconv.FormatInt(n, 10), false)
	d.foldMax(f.Label, n)
}

// Counters are published on change. The first observation only sets the
// baseline: there is no previous value to compute a delta from.
func (d *HistoricDecoder) handleCounter(f types.Field) {
	n, err := parseDecimal(f.Payload)
	if err != nil {
		d.malformed(f, err)
		return
	}
	old, seen := d.values.Number(f.Label)
	if seen && old == n {
		return
	}
	d.values.Numbers[f.Label] = n
	d.publish(d.valueTopic(f.Label), strconv.FormatInt(n, 10), false)
	if !seen {
		return
	}
	delta := n - old
	d.publish(d.valueTopic(f.Label+"d"), strconv.FormatInt(delta, 10), false)
	d.foldMax(f.Label+"d", delta)
}

func (d *HistoricDecoder) handleCategory(f types.Field) {
	if old, seen := d.values.Text(f.Label); seen && old == f.Payload {
		return
	}
	d.values.Texts[f.Label] = f.Payload
	d.publish(d.valueTopic(f.Label), f.Payload, true)
}

func (d *HistoricDecoder) Summary(flush bool) (string, []byte, bool) {
	s := summary{}
	for _, label := range historicSummaryNumbers {
		n, _ := d.values.Number(label)
		s[label] = n
	}
	for _, label := range historicSummaryTexts {
		t, _ := d.values.Text(label)
		s[label] = t
	}
	for label, kind := range historicLabels {
		if kind != historicCounter {
			continue
		}
		if n, seen := d.values.Number(label); seen {
			s[label] = n
		}
	}
	return d.finishSummary(s, flush)
}
