package interpreter

import (
	"errors"
	"strconv"
)

type historicKind uint8

const (
	// published at every frame, folded into Max
	historicGauge historicKind = iota
	// published on change with a delta
	historicCounter
	// published on change, retained
	historicCategory
)

var historicLabels = map[string]historicKind{
	"PAPP":   historicGauge,
	"IINST":  historicGauge,
	"IINST1": historicGauge,
	"IINST2": historicGauge,
	"IINST3": historicGauge,
	"ISOUSC": historicGauge,
	"IMAX":   historicGauge,
	"IMAX1":  historicGauge,
	"IMAX2":  historicGauge,
	"IMAX3":  historicGauge,
	"PMAX":   historicGauge,

	"BASE":    historicCounter,
	"HCHC":    historicCounter,
	"HCHP":    historicCounter,
	"EJPHN":   historicCounter,
	"EJPHPM":  historicCounter,
	"BBRHCJB": historicCounter,
	"BBRHPJB": historicCounter,
	"BBRHCJW": historicCounter,
	"BBRHPJW": historicCounter,
	"BBRHCJR": historicCounter,
	"BBRHPJR": historicCounter,

	"OPTARIF": historicCategory,
	"PTEC":    historicCategory,
	"HHPHC":   historicCategory,
	"DEMAIN":  historicCategory,
}

// Always present in an historic summary, observed or not.
var historicSummaryNumbers = []string{"PAPP", "IINST"}
var historicSummaryTexts = []string{"HHPHC", "PTEC"}

// Labels of the standard frame followed by a horodate token.
var horodatedLabels = map[string]struct{}{
	"DATE":      {},
	"SMAXSN":    {},
	"SMAXSN1":   {},
	"SMAXSN2":   {},
	"SMAXSN3":   {},
	"SMAXSN-1":  {},
	"SMAXSN1-1": {},
	"SMAXSN2-1": {},
	"SMAXSN3-1": {},
	"SMAXIN":    {},
	"SMAXIN-1":  {},
	"CCASN":     {},
	"CCASN-1":   {},
	"CCAIN":     {},
	"CCAIN-1":   {},
	"UMOY1":     {},
	"UMOY2":     {},
	"UMOY3":     {},
	"DPM1":      {},
	"DPM2":      {},
	"DPM3":      {},
	"FPM1":      {},
	"FPM2":      {},
	"FPM3":      {},
}

// IsHorodated tells the scanner which standard labels carry a horodate.
func IsHorodated(label string) bool {
	_, ok := horodatedLabels[label]
	return ok
}

type standardKind uint8

const (
	standardNumber standardKind = iota
	// numbers folded into Max in periodic mode
	standardGauge
	// text kept for the summary
	standardText
)

// Standard labels with a decimal payload. Anything else is published verbatim.
var standardLabels = map[string]standardKind{
	"EAST": standardNumber, "EAIT": standardNumber,
	"EASF01": standardNumber, "EASF02": standardNumber, "EASF03": standardNumber,
	"EASF04": standardNumber, "EASF05": standardNumber, "EASF06": standardNumber,
	"EASF07": standardNumber, "EASF08": standardNumber, "EASF09": standardNumber,
	"EASF10": standardNumber,
	"EASD01": standardNumber, "EASD02": standardNumber, "EASD03": standardNumber,
	"EASD04": standardNumber,
	"ERQ1": standardNumber, "ERQ2": standardNumber, "ERQ3": standardNumber, "ERQ4": standardNumber,
	"PREF": standardNumber, "PCOUP": standardNumber,
	"SMAXSN": standardNumber, "SMAXSN1": standardNumber, "SMAXSN2": standardNumber, "SMAXSN3": standardNumber,
	"SMAXSN-1": standardNumber, "SMAXSN1-1": standardNumber, "SMAXSN2-1": standardNumber, "SMAXSN3-1": standardNumber,
	"SMAXIN": standardNumber, "SMAXIN-1": standardNumber,
	"CCASN": standardNumber, "CCASN-1": standardNumber, "CCAIN": standardNumber, "CCAIN-1": standardNumber,
	"UMOY1": standardNumber, "UMOY2": standardNumber, "UMOY3": standardNumber,
	"NTARF": standardNumber, "NJOURF": standardNumber, "NJOURF+1": standardNumber,
	"RELAIS": standardNumber,

	"SINSTS": standardGauge, "SINSTS1": standardGauge, "SINSTS2": standardGauge, "SINSTS3": standardGauge,
	"SINSTI": standardGauge,
	"IRMS1": standardGauge, "IRMS2": standardGauge, "IRMS3": standardGauge,
	"URMS1": standardGauge, "URMS2": standardGauge, "URMS3": standardGauge,

	"NGTF":  standardText,
	"LTARF": standardText,
}

// Standard labels kept in Values for the summary.
var standardSummaryLabels = map[string]struct{}{
	"EAST": {}, "EAIT": {},
	"IRMS1": {}, "IRMS2": {}, "IRMS3": {},
	"URMS1": {}, "URMS2": {}, "URMS3": {},
	"PREF": {}, "PCOUP": {},
	"SINSTS": {}, "SINSTS1": {}, "SINSTS2": {}, "SINSTS3": {},
	"SMAXSN": {}, "SINSTI": {}, "SMAXIN": {},
	"UMOY1": {}, "RELAIS": {}, "NTARF": {},
	"NGTF": {}, "LTARF": {},
}

var errNotDecimal = errors.New("not a decimal number")

// parseDecimal accepts unsigned decimal digits only, leading zeros included.
func parseDecimal(s string) (int64, error) {
	if s == "" {
		return 0, errNotDecimal
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errNotDecimal
		}
	}
	return strconv.ParseInt(s, 10, 64)
}
