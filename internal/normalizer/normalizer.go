// Package normalizer canonicalizes extracted Arabic text before it is
// indexed or sent to the model.
package normalizer

import (
	"regexp"
	"strings"
)

// Options toggles the optional steps of Normalize.
type Options struct {
	// RemoveStopwords drops common Arabic function words.
	RemoveStopwords bool
}

var (
	footerRe     = regexp.MustCompile(`-[\s\p{Zs}]+[0-9\x{0660}-\x{0669}]+[\s\p{Zs}]+-`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
	// shadda, fatha, tanwin fath, damma, tanwin damm, kasra, tanwin kasr, sukun, tatwil
	diacriticsRe = regexp.MustCompile(`[\x{064B}-\x{0652}\x{0640}]`)
	nativeDigits = regexp.MustCompile(`[\x{0660}-\x{0669}]+`)

	letterReplacer = strings.NewReplacer(
		"إ", "ا",
		"أ", "ا",
		"آ", "ا",
		"ى", "ي",
		"ؤ", "ء",
		"ئ", "ء",
		"ة", "ه",
		"گ", "ك",
	)
)

// Normalize applies the default pipeline.
func Normalize(text string) string {
	return NormalizeWith(text, Options{})
}

// NormalizeWith removes diacritics, strips page footers, collapses
// whitespace, fixes reversed native digit runs and unifies letter variants.
func NormalizeWith(text string, opts Options) string {
	if text == "" {
		return ""
	}

	// a mark glued to a footer dash hides the footer until it is gone
	text = diacriticsRe.ReplaceAllString(text, "")
	text = stripFooters(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = nativeDigits.ReplaceAllStringFunc(text, reverseDigits)
	text = letterReplacer.Replace(text)

	if opts.RemoveStopwords {
		text = removeStopwords(text)
		// "- في 3 -" only becomes a footer once the stopword is dropped
		text = strings.Join(strings.Fields(stripFooters(text)), " ")
	}
	return text
}

// stripFooters removes "- N -" page footers until none is left, since
// removing one can join the dashes around it into another.
func stripFooters(text string) string {
	for {
		out := footerRe.ReplaceAllString(text, "")
		if out == text {
			return out
		}
		text = out
	}
}

// reverseDigits reverses a run of Arabic-Indic digits and maps each one to
// its Western equivalent. PDF extraction emits these runs right-to-left.
func reverseDigits(run string) string {
	digits := []rune(run)
	out := make([]rune, len(digits))
	for i, d := range digits {
		out[len(digits)-1-i] = '0' + (d - '٠')
	}
	return string(out)
}

func removeStopwords(text string) string {
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
