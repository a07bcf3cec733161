package responder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/flemzord/parlo/internal/intent"
)

// Tags reported for replies produced outside the classifier.
const (
	TagEmailCapture = "email_capture"
	TagEmailRecall  = "email_recall"
	TagNameCapture  = "name_capture"
	TagNameRecall   = "name_recall"
	TagDateTime     = "datetime"
	TagGoodbye      = "goodbye"
	TagCalculation  = "calcul"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

	// Name capture works on the raw message to keep the user's capitalisation.
	namePattern = regexp.MustCompile(`(?i)(?:my name is|i am called|call me|je m['’]appelle|appelle[- ]moi|mon nom est|moi c['’]est)\s+(\p{L}[\p{L}'’-]*)`)

	calcPattern = regexp.MustCompile(`^(-?\d+\.?\d*)([+\-*/])(-?\d+\.?\d*)$`)
)

// Phrase tables share the whole-word matching of intent.Rules.
var (
	emailRecall = intent.Rules{{Tag: TagEmailRecall, Phrases: []string{
		"what is my email", "whats my email", "quel est mon email", "mon email",
		"my email", "rappelle mon email", "recall my email",
	}}}

	nameRecall = intent.Rules{{Tag: TagNameRecall, Phrases: []string{
		"what is my name", "whats my name", "do you know my name", "quel est mon nom",
		"comment je mappelle", "tu te souviens de mon nom", "tu connais mon nom",
	}}}

	timeWords = intent.Rules{{Tag: "time", Phrases: []string{
		"heure", "heures", "time", "wakt", "hour", "hours", "temps",
	}}}

	dateWords = intent.Rules{{Tag: "date", Phrases: []string{
		"date", "aujourdhui", "today", "quel jour",
	}}}

	byeWords = intent.Rules{{Tag: TagGoodbye, Phrases: []string{
		"bye", "revoir", "quitter", "ciao", "au revoir", "see you", "goodbye",
	}}}
)

var goodbyeSuffixes = []string{
	"!",
	", à bientôt !",
	" et au plaisir de te revoir.",
	". J'espère avoir pu t'aider !",
}

// splitFragments breaks a message into the independent questions it
// contains, cutting on "?", "!", ",", " et " and on "." unless the dot sits
// between two digits ("1.5 + 2" stays whole). Empty fragments are dropped.
func splitFragments(msg string) []string {
	var out []string
	for _, clause := range strings.Split(msg, " et ") {
		runes := []rune(clause)
		start := 0
		for i, r := range runes {
			cut := false
			switch r {
			case '?', '!', ',':
				cut = true
			case '.':
				cut = i == 0 || i == len(runes)-1 || !unicode.IsDigit(runes[i-1]) || !unicode.IsDigit(runes[i+1])
			}
			if cut {
				out = appendFragment(out, string(runes[start:i]))
				start = i + 1
			}
		}
		out = appendFragment(out, string(runes[start:]))
	}
	return out
}

func appendFragment(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(out, s)
	}
	return out
}

// captureEmail returns the first e-mail address in msg.
func captureEmail(msg string) (string, bool) {
	email := emailPattern.FindString(msg)
	return email, email != ""
}

// captureName returns the name introduced by msg ("je m'appelle Marie").
func captureName(msg string) (string, bool) {
	m := namePattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	name := strings.Trim(m[1], "'’-")
	if name == "" {
		return "", false
	}
	return name, true
}

func matches(rules intent.Rules, text string) bool {
	_, ok := rules.Match(text)
	return ok
}

// dateTimeReply answers "what time is it" and "what day is it" fragments.
func dateTimeReply(fragment string, now time.Time) (string, bool) {
	if matches(timeWords, fragment) {
		return fmt.Sprintf("Il est %s.", now.Format("15:04")), true
	}
	if matches(dateWords, fragment) {
		return fmt.Sprintf("Nous sommes le %s.", now.Format("02/01/2006")), true
	}
	return "", false
}

// dayGreeting returns the farewell matching the hour of now.
func dayGreeting(now time.Time) string {
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		return "Bonne matinée"
	case h >= 12 && h < 18:
		return "Bon après-midi"
	case h >= 18 && h < 22:
		return "Bonne soirée"
	default:
		return "Bonne nuit"
	}
}

// goodbyeReply answers farewells with a time-of-day greeting.
func goodbyeReply(fragment string, now time.Time, pick func(int) int) (string, bool) {
	if !matches(byeWords, fragment) {
		return "", false
	}
	return dayGreeting(now) + goodbyeSuffixes[pick(len(goodbyeSuffixes))], true
}

// calculate evaluates "a op b" for the four basic operators.
func calculate(fragment string) (string, bool) {
	m := calcPattern.FindStringSubmatch(strings.ReplaceAll(fragment, " ", ""))
	if m == nil {
		return "", false
	}
	a, errA := strconv.ParseFloat(m[1], 64)
	b, errB := strconv.ParseFloat(m[3], 64)
	if errA != nil || errB != nil {
		return "", false
	}

	var result float64
	switch m[2] {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return "Erreur : division par zéro.", true
		}
		result = a / b
	}
	return "Le résultat est : " + strconv.FormatFloat(result, 'f', -1, 64), true
}
