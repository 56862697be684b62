package types

// Field is one label line of a frame.
type Field struct {
	Label    string
	Payload  string
	Horodate string
	// HasHorodate is set when the label carries a horodate token.
	HasHorodate bool
}

// Values holds the last seen figures of a section.
// Only the goroutine owning the section may touch it.
type Values struct {
	Numbers map[string]int64
	Texts   map[string]string
}

func NewValues() *Values {
	return &Values{
		Numbers: make(map[string]int64),
		Texts:   make(map[string]string),
	}
}

func (v *Values) Number(label string) (int64, bool) {
	n, ok := v.Numbers[label]
	return n, ok
}

func (v *Values) Text(label string) (string, bool) {
	s, ok := v.Texts[label]
	return s, ok
}

// Max tracks maximum figures seen since the last summary flush.
// An absent key is the "unset" state.
type Max map[string]int64

// Fold keeps the larger of the current maximum and n.
func (m Max) Fold(key string, n int64) {
	if cur, ok := m[key]; !ok || n > cur {
		m[key] = n
	}
}

// Reset returns every entry to unset.
func (m Max) Reset() {
	for k := range m {
		delete(m, k)
	}
}

// Snapshot copies the set entries.
func (m Max) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
