package textutil

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Čapek, Karel: Válka s mloky", []string{"čapek", "karel", "válka", "mloky"}},
		{"STRASSE-Verlag 1936", []string{"strasse", "verlag", "1936"}},
		{"Straße", []string{"strasse"}},
		{"a b c", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimPunct(t *testing.T) {
	tests := map[string]string{
		"Novak,":  "Novak",
		"(1931).": "1931",
		"Zahrada": "Zahrada",
		"a-b":     "a-b",
		"...":     "",
		"„Válka“": "Válka",
	}
	for in, want := range tests {
		if got := TrimPunct(in); got != want {
			t.Errorf("TrimPunct(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFoldMatchesTokenize(t *testing.T) {
	term := Fold(TrimPunct("ŽIŽEK,"))
	tokens := Tokenize("Žižek")
	if len(tokens) != 1 || tokens[0] != term {
		t.Fatalf("query term %q does not match index token %q", term, tokens)
	}
}
