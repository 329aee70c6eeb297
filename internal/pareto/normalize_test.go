package pareto

import "testing"

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare number gets suffix", "42", "42.sdf"},
		{"already suffixed unchanged", "42.sdf", "42.sdf"},
		{"named ligand unchanged", "ligand_007.sdf", "ligand_007.sdf"},
		{"non-numeric unchanged", "ligand_007", "ligand_007"},
		{"whitespace trimmed", " 7 ", "7.sdf"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeID(tt.in, DefaultStructureSuffix)
			if got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIDIdempotent(t *testing.T) {
	for _, in := range []string{"42", "42.sdf", "ligand_007.sdf", ""} {
		once := NormalizeID(in, DefaultStructureSuffix)
		twice := NormalizeID(once, DefaultStructureSuffix)
		if once != twice {
			t.Errorf("NormalizeID not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
