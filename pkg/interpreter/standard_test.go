package interpreter

import (
	"errors"
	"testing"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func linkySection() *types.Section {
	return &types.Section{
		Name:          "linky",
		Variant:       types.Standard,
		Topic:         "L",
		ProducerTopic: "P",
		ConsumerTopic: "C",
		Labels:        labels("SINSTI", "SINSTS", "IRMS1", "SMAXSN", "EAST"),
		ProducerRemap: DefaultProducerRemap(),
		ConsumerRemap: DefaultConsumerRemap(),
	}
}

func adsc() types.Field { return field("ADSC", "041876097767") }

func TestStandardRemap(t *testing.T) {
	rec := publisher.NewRecorder()
	d := NewDecoder(linkySection(), rec, Options{})
	feed(d, adsc(), field("SINSTI", "00390"), field("IRMS1", "002"))

	assert.Equal(t, []string{"390"}, rec.Topic("L/SINSTI"))
	assert.Equal(t, rec.Topic("L/SINSTI"), rec.Topic("P/values/PAPP"))
	assert.Empty(t, rec.Topic("C/values/PAPP"))

	// a label may populate both converted roots
	assert.Equal(t, []string{"2"}, rec.Topic("P/values/IINST"))
	assert.Equal(t, []string{"2"}, rec.Topic("C/values/IINST"))
}

func TestStandardFilterIsExact(t *testing.T) {
	rec := publisher.NewRecorder()
	section := linkySection()
	section.Labels = labels("SINSTS")
	d := NewDecoder(section, rec, Options{})
	// EAIT and IRMS1 are remapped but not allowed
	feed(d, adsc(), field("EAIT", "000004566"), field("IRMS1", "002"), field("SINSTS", "01200"), adsc())

	topics := make(map[string]bool)
	for _, m := range rec.Messages() {
		topics[m.Topic] = true
	}
	assert.True(t, topics["L/SINSTS"])
	assert.True(t, topics["C/values/PAPP"])
	assert.True(t, topics["L/summary"])
	assert.False(t, topics["L/EAIT"])
	assert.False(t, topics["P/values/BASE"])
	assert.False(t, topics["P/values/IINST"])
	assert.False(t, topics["C/values/IINST"])
	assert.Len(t, rec.Messages(), 3)
}

func TestStandardHorodatePublish(t *testing.T) {
	rec := publisher.NewRecorder()
	d := NewDecoder(linkySection(), rec, Options{})
	feed(d, adsc(), types.Field{Label: "SMAXSN", Payload: "05000", Horodate: "E240618120413", HasHorodate: true})

	assert.Equal(t, []string{"5000"}, rec.Topic("L/SMAXSN"))
	assert.Equal(t, []string{"E240618120413"}, rec.Topic("L/SMAXSN/h"))
}

func TestStandardMalformedNumberPublishesNothing(t *testing.T) {
	rec := publisher.NewRecorder()
	malformed := 0
	d := NewDecoder(linkySection(), rec, Options{OnMalformed: func() { malformed++ }})
	feed(d, adsc(), types.Field{Label: "SMAXSN", Payload: "05O00", Horodate: "E240618120413", HasHorodate: true})

	assert.Empty(t, rec.Topic("L/SMAXSN"))
	assert.Empty(t, rec.Topic("L/SMAXSN/h"))
	assert.Equal(t, 1, malformed)
}

func TestStandardWithoutMainTopic(t *testing.T) {
	rec := publisher.NewRecorder()
	section := linkySection()
	section.Topic = ""
	d := NewDecoder(section, rec, Options{})
	feed(d, adsc(), field("SINSTS", "01200"), adsc())

	assert.Equal(t, []publisher.Message{{Topic: "C/values/PAPP", Payload: "1200"}}, rec.Messages())
	_, _, ok := d.Summary(true)
	assert.False(t, ok)
}

func TestStandardSummaryAndMax(t *testing.T) {
	rec := publisher.NewRecorder()
	d := NewDecoder(linkySection(), rec, Options{Periodic: true})
	feed(d,
		adsc(), field("SINSTS", "01200"), field("EAST", "000004566"),
		adsc(), field("SINSTS", "00800"), field("EAST", "000004570"),
		adsc(),
	)
	assert.Empty(t, rec.Topic("L/summary"))

	_, payload, ok := d.Summary(true)
	require.True(t, ok)
	assert.JSONEq(t, `{"SINSTS":800,"EAST":4570,"max":{"SINSTS":1200}}`, string(payload))
}

func TestPublishFailureDoesNotStopTheFrame(t *testing.T) {
	rec := publisher.NewRecorder()
	rec.Fail = func(topic string) error {
		if topic == "L/SINSTS" {
			return errors.New("broker down")
		}
		return nil
	}
	d := NewDecoder(linkySection(), rec, Options{})
	feed(d, adsc(), field("SINSTS", "01200"), field("IRMS1", "005"))

	assert.Equal(t, []string{"1200"}, rec.Topic("C/values/PAPP"))
	assert.Equal(t, []string{"5"}, rec.Topic("L/IRMS1"))
}

func TestIsHorodated(t *testing.T) {
	for _, label := range []string{"DATE", "SMAXSN", "SMAXSN2-1", "SMAXIN-1", "CCASN", "UMOY3"} {
		assert.True(t, IsHorodated(label), label)
	}
	for _, label := range []string{"SINSTS", "EAST", "ADSC", "PAPP"} {
		assert.False(t, IsHorodated(label), label)
	}
}
