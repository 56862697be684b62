package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	stx = "\x02"
	etx = "\x03"
)

// simulator keeps the counters of the simulated meters.
type simulator struct {
	mu       sync.Mutex
	standard bool
	rnd      *rand.Rand
	hchc     int64
	hchp     int64
	base     int64
	now      func() time.Time
}

func newSimulator(standard bool, rnd *rand.Rand) *simulator {
	return &simulator{
		standard: standard,
		rnd:      rnd,
		hchc:     rnd.Int63n(100000),
		hchp:     rnd.Int63n(100000),
		base:     rnd.Int63n(100000),
		now:      time.Now,
	}
}

// frame returns the next frame, consumption or production, moving the
// counters forward by the power drawn since the previous one.
func (s *simulator) frame(production bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	papp := s.rnd.Int63n(6000)
	if production {
		s.base += papp / 100
		if s.standard {
			return standardFrame(s.now(), "SINSTI", papp, "EAIT", s.base)
		}
		return historicFrame([]field{
			{"ADCO", "012345678902"},
			{"OPTARIF", "BASE"},
			{"ISOUSC", "60"},
			{"BASE", fmt.Sprintf("%09d", s.base)},
			{"IINST", fmt.Sprintf("%03d", papp/230)},
			{"PAPP", fmt.Sprintf("%05d", papp)},
			{"MOTDETAT", "000000"},
		})
	}

	if papp%2 == 1 {
		s.hchp += papp / 100
	} else {
		s.hchc += papp / 100
	}
	if s.standard {
		return standardFrame(s.now(), "SINSTS", papp, "EAST", s.hchc+s.hchp)
	}
	return historicFrame([]field{
		{"ADCO", "012345678901"},
		{"OPTARIF", "HC.."},
		{"ISOUSC", "60"},
		{"HCHC", fmt.Sprintf("%09d", s.hchc)},
		{"HCHP", fmt.Sprintf("%09d", s.hchp)},
		{"PTEC", "HP.."},
		{"IINST", fmt.Sprintf("%03d", papp/230)},
		{"IMAX", "090"},
		{"PAPP", fmt.Sprintf("%05d", papp)},
		{"HHPHC", "A"},
		{"MOTDETAT", "000000"},
	})
}

type field struct {
	label, payload string
}

// historicFrame groups lines as the historic meters do: LF, line, checksum, CR.
func historicFrame(fields []field) string {
	var b strings.Builder
	b.WriteString(stx)
	for _, f := range fields {
		data := f.label + " " + f.payload
		fmt.Fprintf(&b, "\n%s %c\r", data, checksum(data))
	}
	b.WriteString(etx)
	return b.String()
}

func standardFrame(now time.Time, powerLabel string, power int64, indexLabel string, index int64) string {
	horodate := horodateOf(now)
	var b strings.Builder
	b.WriteString(stx)
	line := func(parts ...string) {
		data := strings.Join(parts, "\t") + "\t"
		fmt.Fprintf(&b, "\n%s%c\r", data, checksum(data))
	}
	line("ADSC", "041876097767")
	line("VTIC", "02")
	line("DATE", horodate, "")
	line("NGTF", "      BASE      ")
	line("LTARF", "      BASE      ")
	line(indexLabel, fmt.Sprintf("%09d", index))
	line("IRMS1", fmt.Sprintf("%03d", power/230))
	line("URMS1", "231")
	line("PREF", "09")
	line(powerLabel, fmt.Sprintf("%05d", power))
	line(strings.Replace(powerLabel, "SINST", "SMAX", 1)+"N", horodate, fmt.Sprintf("%05d", power))
	line("NTARF", "01")
	line("RELAIS", "000")
	b.WriteString(etx)
	return b.String()
}

// Linky horodate: season letter (E summer, H winter) then YYMMDDhhmmss.
func horodateOf(t time.Time) string {
	season := "H"
	if t.IsDST() {
		season = "E"
	}
	return season + t.Format("060102150405")
}

// checksum is the TeleInfo control character: the low 6 bits of the byte
// sum, shifted into the printable range.
func checksum(data string) byte {
	var sum byte
	for i := 0; i < len(data); i++ {
		sum += data[i]
	}
	return (sum & 0x3F) + 0x20
}
