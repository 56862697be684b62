package interpreter

import (
	"strconv"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
)

// StandardDecoder interprets the Linky standard frame.
type StandardDecoder struct {
	decoderBase
	started bool
}

func (d *StandardDecoder) Handle(f types.Field) bool {
	completed := false
	if f.Label == types.Standard.StartLabel() {
		completed = d.started
		if completed {
			d.emitInline(d.Summary)
		}
		d.started = true
	}
	if !d.started || !d.section.Allowed(f.Label) {
		return completed
	}

	payload := f.Payload
	kind, known := standardLabels[f.Label]
	if known && kind != standardText {
		n, err := parseDecimal(f.Payload)
		if err != nil {
			d.malformed(f, err)
			return completed
		}
		payload = strconv.FormatInt(n, 10)
		if _, kept := standardSummaryLabels[f.Label]; kept {
			d.values.Numbers[f.Label] = n
		}
		if kind == standardGauge {
			d.foldMax(f.Label, n)
		}
	} else if _, kept := standardSummaryLabels[f.Label]; kept {
		d.values.Texts[f.Label] = f.Payload
	}

	if d.section.Topic != "" {
		d.publish(d.section.Topic+"/"+f.Label, payload, false)
		if f.HasHorodate {
			d.publish(d.section.Topic+"/"+f.Label+"/h", f.Horodate, false)
		}
	}
	d.publishConverted(d.section.ProducerTopic, d.section.ProducerRemap, f.Label, payload)
	d.publishConverted(d.section.ConsumerTopic, d.section.ConsumerRemap, f.Label, payload)
	return completed
}

// publishConverted republishes a standard label under its historic name.
func (d *StandardDecoder) publishConverted(root string, remap map[string]string, label, payload string) {
	if root == "" {
		return
	}
	name, ok := remap[label]
	if !ok {
		return
	}
	d.publish(root+"/values/"+name, payload, false)
}

func (d *StandardDecoder) EndFrame() bool {
	if !d.started {
		return false
	}
	d.emitInline(d.Summary)
	d.started = false
	return true
}

func (d *StandardDecoder) Abandon() {
	d.started = false
}

func (d *StandardDecoder) Summary(flush bool) (string, []byte, bool) {
	s := summary{}
	for label, n := range d.values.Numbers {
		s[label] = n
	}
	for label, t := range d.values.Texts {
		s[label] = t
	}
	return d.finishSummary(s, flush)
}
