package pages

import "testing"

func TestCheckSlugKeepsInput(t *testing.T) {
	inputs := []string{"aloe-vera", "boston.fern", "MONSTERA", "Café_Árbol", "snake plant"}
	for _, input := range inputs {
		got, err := CheckSlug(input)
		if err != nil {
			t.Fatalf("CheckSlug(%q) unexpected error: %v", input, err)
		}
		if got != input {
			t.Fatalf("CheckSlug(%q) = %q, want input unchanged", input, got)
		}
	}
}

func TestCheckSlugInvalid(t *testing.T) {
	inputs := []string{"", "   ", "../etc/passwd", "what?", "a/b", `a\b`, "tab\tfern", "frag#x"}
	for _, input := range inputs {
		if _, err := CheckSlug(input); err == nil {
			t.Fatalf("CheckSlug(%q) expected error", input)
		}
	}
}

func TestSlugTitle(t *testing.T) {
	tests := map[string]string{
		"monstera-deliciosa": "Monstera Deliciosa",
		"snake_plant":        "Snake Plant",
		"BOSTON.FERN":        "Boston Fern",
	}
	for input, want := range tests {
		if got := SlugTitle(input); got != want {
			t.Fatalf("SlugTitle(%q) = %q, want %q", input, got, want)
		}
	}
}
