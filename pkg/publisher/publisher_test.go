package publisher

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeTriesEveryTarget(t *testing.T) {
	broken := errors.New("broker down")
	first := NewRecorder()
	first.Fail = func(string) error { return broken }
	second := NewRecorder()

	err := Tee{first, nil, second}.Publish("T/values/PAPP", []byte("1234"), false)
	assert.ErrorIs(t, err, broken)
	assert.Empty(t, first.Messages())
	assert.Equal(t, []Message{{Topic: "T/values/PAPP", Payload: "1234"}}, second.Messages())
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetLevel(log.WarnLevel)

	rec := NewRecorder()
	rec.Fail = func(topic string) error {
		if strings.HasSuffix(topic, "summary") {
			return ErrNotConnected
		}
		return nil
	}
	p := Logging(rec, log.NewEntry(logger))

	require.NoError(t, p.Publish("T/values/PAPP", []byte("1234"), false))
	assert.Empty(t, buf.String())

	err := p.Publish("T/summary", []byte("{}"), true)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Contains(t, buf.String(), "publish to T/summary failed")
}

func TestInstrumented(t *testing.T) {
	m := metrics.New()
	rec := NewRecorder()
	rec.Fail = func(topic string) error {
		if topic == "bad" {
			return ErrNotConnected
		}
		return nil
	}
	p := Instrumented(rec, m)

	require.NoError(t, p.Publish("good", nil, false))
	require.NoError(t, p.Publish("good", nil, false))
	assert.Error(t, p.Publish("bad", nil, false))

	expected := `
# HELP teleinfod_publish_errors_total Messages the broker connection failed to send.
# TYPE teleinfod_publish_errors_total counter
teleinfod_publish_errors_total 1
# HELP teleinfod_publishes_total Messages handed to the broker.
# TYPE teleinfod_publishes_total counter
teleinfod_publishes_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"teleinfod_publishes_total", "teleinfod_publish_errors_total"))

	assert.Equal(t, Publisher(rec), Instrumented(rec, nil))
}

func TestRecorderIsSafeForConcurrentUse(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rec.Publish("T", []byte("x"), false)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Topic("T"), 800)

	rec.Reset()
	assert.Empty(t, rec.Messages())
	_, ok := rec.Last("T")
	assert.False(t, ok)
}

func TestDefaultClientID(t *testing.T) {
	id := DefaultClientID()
	assert.True(t, strings.HasPrefix(id, "teleinfod-"))
	assert.Len(t, id, len("teleinfod-")+8)
	assert.NotEqual(t, id, DefaultClientID())
}
