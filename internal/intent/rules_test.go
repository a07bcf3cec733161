package intent

import "testing"

func TestRules_Match(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	tests := []struct {
		in      string
		wantTag string
		wantOK  bool
	}{
		{"Hi there", TagSalutation, true},
		{"Bonjour !", TagSalutation, true},
		{"Comment ça va ?", TagEtat, true},
		{"what's up", TagEtat, true},
		{"Qui es-tu", "identite", true},
		{"Quels sont vos horaires", "horaire", true},
		{"Votre numéro de téléphone", "contact", true},
		// Whole words only: "this" does not contain the greeting "hi".
		{"this is it", "", false},
		{"rien du tout", "", false},
	}
	for _, tt := range tests {
		tag, ok := rules.Match(tt.in)
		if tag != tt.wantTag || ok != tt.wantOK {
			t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.in, tag, ok, tt.wantTag, tt.wantOK)
		}
	}
}

func TestRules_FirstMatchWins(t *testing.T) {
	t.Parallel()
	// Both salutation and etat phrases are present; salutation is listed first.
	tag, ok := DefaultRules().Match("salut, ça va ?")
	if !ok || tag != TagSalutation {
		t.Errorf("Match() = (%q, %v), want salutation", tag, ok)
	}
}

func TestRules_Nil(t *testing.T) {
	t.Parallel()
	var rules Rules
	if _, ok := rules.Match("hello"); ok {
		t.Error("nil rules should never match")
	}
}
