package aggregator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	section *types.Section
	payload string
	ok      bool
	calls   int
}

func (f *fakeSource) Section() *types.Section { return f.section }

func (f *fakeSource) RequestSummary(ctx context.Context) (string, []byte, bool) {
	f.calls++
	if !f.ok {
		return "", nil, false
	}
	return f.section.SummaryTopic(), []byte(f.payload), true
}

func source(name, topic, payload string, ok bool) *fakeSource {
	return &fakeSource{
		section: &types.Section{Name: name, Topic: topic},
		payload: payload,
		ok:      ok,
	}
}

func TestAggregateAndPublish(t *testing.T) {
	conso := source("conso", "TeleInfo/Consommation", `{"PAPP":500,"max":{"PAPP":3400}}`, true)
	prod := source("prod", "TeleInfo/Production", `{"BASE":10,"max":{}}`, true)
	gone := source("gone", "TeleInfo/Gone", "", false)

	rec := publisher.NewRecorder()
	m := metrics.New()
	a := New(time.Minute, []SummarySource{conso, gone, prod}, rec, m)

	require.NoError(t, a.AggregateAndPublish(context.Background()))

	assert.Equal(t, []publisher.Message{
		{Topic: "TeleInfo/Consommation/summary", Payload: `{"PAPP":500,"max":{"PAPP":3400}}`, Retained: true},
		{Topic: "TeleInfo/Production/summary", Payload: `{"BASE":10,"max":{}}`, Retained: true},
	}, rec.Messages())
	assert.Equal(t, 1, gone.calls)
	expected := `
# HELP teleinfod_summaries_total Summaries emitted.
# TYPE teleinfod_summaries_total counter
teleinfod_summaries_total{section="conso"} 1
teleinfod_summaries_total{section="prod"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "teleinfod_summaries_total"))
}

func TestAggregateKeepsGoingOnPublishFailure(t *testing.T) {
	conso := source("conso", "TeleInfo/Consommation", `{}`, true)
	prod := source("prod", "TeleInfo/Production", `{}`, true)

	broken := errors.New("broker down")
	rec := publisher.NewRecorder()
	rec.Fail = func(topic string) error {
		if topic == "TeleInfo/Consommation/summary" {
			return broken
		}
		return nil
	}
	a := New(time.Minute, []SummarySource{conso, prod}, rec, nil)

	err := a.AggregateAndPublish(context.Background())
	assert.ErrorIs(t, err, broken)
	assert.ErrorContains(t, err, "section conso")
	assert.Equal(t, []string{`{}`}, rec.Topic("TeleInfo/Production/summary"))
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := publisher.NewRecorder()
	a := New(time.Millisecond, []SummarySource{source("conso", "T", `{}`, true)}, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(rec.Topic("T/summary")) >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("aggregator did not stop")
	}
}

func TestRunWithoutPeriodReturns(t *testing.T) {
	a := New(0, nil, publisher.NewRecorder(), nil)
	a.Run(context.Background())
}
