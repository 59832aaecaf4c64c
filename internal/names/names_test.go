package names_test

import (
	"strings"
	"testing"

	"masstg-export/internal/names"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Example Nation": "example_nation",
		"OTHER NATION":   "other_nation",
		"already_canon":  "already_canon",
		"":               "",
		"  two  spaces ": "__two__spaces_",
		"Ünïcode Land":   "ünïcode_land",
	}
	for in, want := range cases {
		if got := names.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_StableAndIdempotent(t *testing.T) {
	for _, s := range []string{"Example Nation", "a B c", "MiXeD_Case Name", "tab\tand space", "İstanbul Region", "Ω Omega"} {
		n := names.Normalize(s)
		if n != strings.ReplaceAll(strings.ToLower(n), " ", "_") {
			t.Fatalf("normalize(%q) not stable: %q", s, n)
		}
		if names.Normalize(n) != n {
			t.Fatalf("normalize(%q) not idempotent: %q", s, n)
		}
	}
}
