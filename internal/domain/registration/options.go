package registration

import (
	"strings"
	"unicode"
)

// Competitions offered on the registration form.
var Competitions = []string{
	"Academic Quiz",
	"Science Innovators Challenge",
	"Chess Tournament",
	"Public Speaking Contest",
	"Art & Creativity Challenge",
}

// Workshops offered on the registration form.
var Workshops = []string{
	"Artificial Intelligence for Beginners",
	"Financial Literacy & Money Management",
	"Entrepreneurship Foundation",
	"Business Development & Leadership",
}

// PaymentModes offered on the registration form.
var PaymentModes = []string{"UPI", "Bank Transfer", "Other"}

// DefaultPaymentMode is sent when the form leaves the mode blank.
const DefaultPaymentMode = "Online"

// FilterSelections keeps the selected labels that belong to vocabulary,
// in selection order and without duplicates.
// PRE: none
// POST: returns a non-nil slice; unknown labels are dropped
func FilterSelections(selected, vocabulary []string) []string {
	known := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		known[v] = true
	}
	seen := make(map[string]bool, len(selected))
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if !known[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// DisplayLabel turns a stored label into a heading-style label:
// underscores become spaces and the first letter of every word is upper-cased.
func DisplayLabel(label string) string {
	label = strings.ReplaceAll(label, "_", " ")
	var b strings.Builder
	b.Grow(len(label))
	prevWord := false
	for _, r := range label {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevWord = word
	}
	return b.String()
}
