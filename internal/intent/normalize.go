package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases text and strips diacritics ("Ça VA" -> "ca va").
func Fold(text string) string {
	// A transform.Chain holds state, so one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Tokens folds text, drops punctuation and splits it into words.
func Tokens(text string) []string {
	folded := Fold(text)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// Normalize is the text pipeline shared by training and prediction: Tokens
// with French and English stop words removed, joined by single spaces.
func Normalize(text string) string {
	tokens := Tokens(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// stopWords holds folded French and English function words.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		au aux avec ce ces dans de des du elle en et eux il ils je la le les leur lui ma mais me meme
		mes moi mon ne nos notre nous on ou par pas pour qu que qui sa se ses son sur ta te tes toi ton
		tu un une vos votre vous c d j l a m n s t y ete etee etees etes etant etante etants etantes
		suis es est sommes etes sont serai seras sera serons serez seront ai as avons avez ont aurai
		auras aura aurons aurez auront avais avait avions aviez avaient eu
		i me my myself we our ours ourselves you your yours yourself yourselves he him his himself she
		her hers herself it its itself they them their theirs themselves this that these those am is
		are was were be been being have has had having do does did doing an the and but if or because
		as until while of at by for with about against between into through during before after above
		below to from up down in out on off over under again further then once here there all any both
		each few more most other some such no nor not only own same so than too very can will just
		should now
	`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
