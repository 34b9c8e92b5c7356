package news

import "testing"

func TestNormalizeCategory(t *testing.T) {
	for in, want := range map[string]string{"": "all", " Sports ": "sports", "ALL": "all"} {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"زلزال يضرب المنطقة":       "ar",
		"Earthquake hits region X": "en",
		"مؤتمر COP28 في دبي":       "ar",
		"2024":                     "en",
	}
	for in, want := range tests {
		if got := DetectLanguage(in); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
