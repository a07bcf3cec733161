package intent

import "strings"

// Rule forces Tag when any of Phrases occurs in a message as whole words.
type Rule struct {
	Tag     string
	Phrases []string
}

// Rules are checked in order; the first match wins.
type Rules []Rule

// DefaultRules returns the keyword overrides applied before the model.
// Phrases are compared after Tokens, so they are written folded and
// without punctuation ("qui es-tu" becomes "qui estu").
func DefaultRules() Rules {
	return Rules{
		{Tag: TagSalutation, Phrases: []string{"hello", "hi", "hey", "bonjour", "salut"}},
		{Tag: TagEtat, Phrases: []string{
			"how are you", "how are you doing", "whats up", "comment ca va", "ca va",
		}},
		{Tag: "identite", Phrases: []string{"who are you", "qui estu", "qui es tu", "que faistu", "que fais tu", "what do you do"}},
		{Tag: "horaire", Phrases: []string{"horaire", "horaires", "ouvrir", "fermer", "opening hours", "working hours"}},
		{Tag: "contact", Phrases: []string{"contact", "email", "telephone", "numero", "phone"}},
	}
}

// Match returns the tag of the first rule with a phrase present in text.
func (r Rules) Match(text string) (string, bool) {
	padded := " " + strings.Join(Tokens(text), " ") + " "
	for _, rule := range r {
		for _, phrase := range rule.Phrases {
			if strings.Contains(padded, " "+phrase+" ") {
				return rule.Tag, true
			}
		}
	}
	return "", false
}
