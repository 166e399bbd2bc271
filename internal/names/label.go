package names

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matheus3301/wppbridge/internal/jid"
	"golang.org/x/text/cases"
)

// placeholderSequences appear in names the gateway invents for identities it
// could not resolve.
var placeholderSequences = []string{"0000000", "1234567890"}

// selfLabels are the labels the gateway and clients use for the account
// itself, in the supported locales.
var selfLabels = func() map[string]bool {
	m := make(map[string]bool)
	for _, l := range []string{"me", "you", "myself", "eu", "você", "voce", "yo", "tú", "tu", "mí", "mi"} {
		m[folded(l)] = true
	}
	return m
}()

// folded case-folds s. Casers are stateful, so each call gets its own.
func folded(s string) string {
	return cases.Fold().String(s)
}

// Clean strips the leading tilde marker and surrounding space.
func Clean(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "~"))
}

// IsRealName reports whether name is a usable human label rather than a phone
// number, an identifier, a placeholder or a self-reference.
func IsRealName(name string) bool {
	name = Clean(name)
	if utf8.RuneCountInString(name) < 2 {
		return false
	}
	if strings.ContainsRune(name, '@') || looksLikePhone(name) {
		return false
	}
	for _, p := range placeholderSequences {
		if strings.Contains(name, p) {
			return false
		}
	}
	label := strings.Trim(name, "()[] .!")
	return !selfLabels[folded(label)]
}

// looksLikePhone reports whether s consists of digits and phone punctuation only.
func looksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(" +-().:", r):
		default:
			return false
		}
	}
	return digits > 0
}

// FormatPhone renders the identifier's number for display: Brazilian numbers
// as "(AA) NNNNN-NNNN" or "(AA) NNNN-NNNN", anything else as its raw local part.
func FormatPhone(id string) string {
	local, _ := jid.Split(id)
	if jid.IsAlias(id) || jid.IsGroup(id) {
		return local
	}
	digits := jid.Digits(id)
	if !strings.HasPrefix(digits, "55") || (len(digits) != 12 && len(digits) != 13) {
		return local
	}
	national := digits[2:]
	area, number := national[:2], national[2:]
	split := 4
	if len(number) == 9 {
		split = 5
	}
	return "(" + area + ") " + number[:split] + "-" + number[split:]
}
