package publisher

import "sync"

// Message is one captured publish.
type Message struct {
	Topic    string
	Payload  string
	Retained bool
}

// Recorder captures publishes instead of sending them.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// Fail, when set, is returned by Publish for matching topics and the
	// message is not recorded.
	Fail func(topic string) error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(topic string, payload []byte, retained bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(topic); err != nil {
			return err
		}
	}
	r.messages = append(r.messages, Message{Topic: topic, Payload: string(payload), Retained: retained})
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Topic returns the payloads published to topic, oldest first.
func (r *Recorder) Topic(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Last returns the most recent message on topic.
func (r *Recorder) Last(topic string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Topic == topic {
			return r.messages[i], true
		}
	}
	return Message{}, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
