package interpreter

// Standard label -> historic name published on the converted producer topic.
// Tariff indexes (EASFxx) have no reliable historic counterpart and are left
// out; sections can provide their own table.
func DefaultProducerRemap() map[string]string {
	return map[string]string{
		"EAIT":   "BASE",
		"SINSTI": "PAPP",
		"IRMS1":  "IINST",
	}
}

// Standard label -> historic name published on the converted consumer topic.
func DefaultConsumerRemap() map[string]string {
	return map[string]string{
		"EAST":   "BASE",
		"SINSTS": "PAPP",
		"IRMS1":  "IINST",
	}
}
