// Package months holds the bidirectional English/French month alias table
// used to translate a user-supplied month into a spreadsheet tab name.
package months

import (
	"strings"
	"unicode"

	"tabkeeper/internal/model"
)

// tabNames maps each English month to the French spelling used as the tab
// name of the corresponding month sheet.
var tabNames = map[string]string{
	"January":   "Janvier",
	"February":  "Février",
	"March":     "Mars",
	"April":     "Avril",
	"May":       "Mai",
	"June":      "Juin",
	"July":      "Juillet",
	"August":    "Août",
	"September": "Septembre",
	"October":   "Octobre",
	"November":  "Novembre",
	"December":  "Décembre",
}

// englishByFrench is the reverse of tabNames, built once at init.
var englishByFrench = func() map[string]string {
	m := make(map[string]string, len(tabNames))
	for en, fr := range tabNames {
		m[fr] = en
	}
	return m
}()

// abbreviations maps three-letter English prefixes to full month names, for
// the deterministic date fallback.
var abbreviations = func() map[string]string {
	m := make(map[string]string, len(model.EnglishMonths))
	for _, name := range model.EnglishMonths {
		m[strings.ToLower(name[:3])] = name
	}
	return m
}()

// Normalize capitalizes the first rune and lowercases the rest, the form
// the alias table is keyed by.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Canonical resolves s (English or French, any casing) to the English month
// name. ok is false when s is not a known month.
func Canonical(s string) (string, bool) {
	n := Normalize(s)
	if _, ok := tabNames[n]; ok {
		return n, true
	}
	if en, ok := englishByFrench[n]; ok {
		return en, true
	}
	return "", false
}

// IsKnown reports whether s names a month in either language.
func IsKnown(s string) bool {
	_, ok := Canonical(s)
	return ok
}

// TabName returns the sheet tab for an English month: the French alias when
// the table has one, the English name itself otherwise.
func TabName(english string) string {
	if fr, ok := tabNames[english]; ok {
		return fr
	}
	return english
}

// Expand resolves a three-letter English abbreviation or a full month name
// in either language to the English month name.
func Expand(token string) (string, bool) {
	if en, ok := Canonical(token); ok {
		return en, true
	}
	lower := strings.ToLower(strings.TrimSpace(token))
	if full, ok := abbreviations[lower]; ok {
		return full, true
	}
	return "", false
}

// FindToken scans free text for a month word in either language and returns
// the English name of the first one found, in text order.
func FindToken(text string) (string, bool) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range fields {
		if en, ok := Canonical(f); ok {
			return en, true
		}
	}
	return "", false
}
