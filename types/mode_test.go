package types

import (
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"basic":                     BasicAnalysis,
		"DETAILED":                  DetailedAnalysis,
		" attacks ":                 PossibleAttacksAnalysis,
		"POSSIBLE_ATTACKS_ANALYSIS": PossibleAttacksAnalysis,
	}
	for input, want := range cases {
		got, err := ParseMode(input)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := ParseMode("verbose"); err == nil {
		t.Error("unknown mode accepted")
	}
	if got, _ := ParseMode(DetailedAnalysis.String()); got != DetailedAnalysis {
		t.Error("Mode.String does not round trip")
	}
}
