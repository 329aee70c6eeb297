package pareto

import "strings"

// DefaultStructureSuffix is the extension docking runs use for ligand
// structure files. Affinity tables frequently name ligands by bare
// number while synthesizability tables carry full filenames; appending
// the suffix to all-digit identifiers aligns the two.
const DefaultStructureSuffix = ".sdf"

// NormalizeID canonicalizes a ligand identifier for joining. An
// identifier consisting solely of digits gets the structure suffix
// appended; anything else passes through unchanged. Total and
// idempotent: "42" -> "42.sdf", "42.sdf" -> "42.sdf".
func NormalizeID(raw, suffix string) string {
	s := strings.TrimSpace(raw)
	if s == "" || !allDigits(s) {
		return s
	}
	return s + suffix
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
