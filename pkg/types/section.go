package types

import (
	"fmt"
	"strings"
)

// Variant selects the TeleInfo wire grammar of a section.
type Variant uint8

const (
	Historic Variant = iota
	Standard
)

func (v Variant) String() string {
	switch v {
	case Historic:
		return "historic"
	case Standard:
		return "standard"
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// Delimiter separates the label, the payload and the optional tokens of a line.
func (v Variant) Delimiter() byte {
	if v == Standard {
		return '\t'
	}
	return ' '
}

// StartLabel is the first label of every frame.
func (v Variant) StartLabel() string {
	if v == Standard {
		return "ADSC"
	}
	return "ADCO"
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "historic", "historique":
		return Historic, nil
	case "standard":
		return Standard, nil
	}
	return 0, fmt.Errorf("unknown variant %q: expected historic or standard", s)
}

// Section describes one TeleInfo flow: where to read it and where to publish it.
// It is built once at startup and never modified afterwards.
type Section struct {
	Name     string
	Variant  Variant
	Port     string
	Baudrate uint

	Topic         string // main topic
	ConsumerTopic string // converted consumer topic
	ProducerTopic string // converted producer topic

	// Labels is the allow-list of published labels. Empty means every label.
	Labels map[string]struct{}

	// Label -> historic name used on the converted topics.
	ProducerRemap map[string]string
	ConsumerRemap map[string]string
}

// Allowed reports whether a label may be published by this section.
func (s *Section) Allowed(label string) bool {
	if len(s.Labels) == 0 {
		return true
	}
	_, ok := s.Labels[label]
	return ok
}

// SummaryTopic is empty when the section has no main topic.
func (s *Section) SummaryTopic() string {
	if s.Topic == "" {
		return ""
	}
	return s.Topic + "/summary"
}
