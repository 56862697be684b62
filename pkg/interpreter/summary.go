package interpreter

import "encoding/json"

// summary is marshalled with sorted keys, so payloads are stable.
type summary map[string]interface{}

func (d *decoderBase) finishSummary(s summary, flush bool) (string, []byte, bool) {
	topic := d.section.SummaryTopic()
	if topic == "" {
		return "", nil, false
	}
	if flush {
		s["max"] = d.max.Snapshot()
		d.max.Reset()
	}
	payload, err := json.Marshal(s)
	if err != nil {
		d.opts.Log.Errorf("summary marshal: %v", err)
		return "", nil, false
	}
	return topic, payload, true
}
