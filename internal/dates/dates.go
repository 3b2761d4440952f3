// Package dates parses heterogeneous short date phrases ("13 June",
// "Feb 28, 2025", "28/02/2025", "18 juin") into a canonical date. The LLM
// is asked first; a deterministic token parser covers LLM failures.
package dates

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"tabkeeper/internal/llm"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/model"
	"tabkeeper/internal/months"
)

// LLM is the date-extraction slice of the model client.
type LLM interface {
	ParseDate(ctx context.Context, phrase string) (llm.DateResult, error)
}

// Normalizer turns date phrases into canonical dates.
type Normalizer struct {
	llm LLM
	now func() time.Time
}

// New creates a Normalizer. client may be nil, in which case only the
// deterministic parser runs.
func New(client LLM) *Normalizer {
	return &Normalizer{llm: client, now: time.Now}
}

var (
	slashForm = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?$`)
	yearForm  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Normalize parses phrase into a canonical date. The year defaults to the
// current calendar year unless the phrase carries one. Failure is a
// UserInputError "Invalid date: <phrase>".
func (n *Normalizer) Normalize(ctx context.Context, phrase string) (model.Date, error) {
	trimmed := strings.TrimSpace(phrase)
	if trimmed == "" {
		return model.Date{}, model.UserInputf("Invalid date: %s", phrase)
	}

	year := n.now().Year()
	if m := yearForm.FindString(trimmed); m != "" {
		year, _ = strconv.Atoi(m)
	}

	if n.llm != nil {
		log := logger.FromContext(ctx)
		res, err := n.llm.ParseDate(ctx, trimmed)
		if err == nil {
			if d, ok := n.validate(res.Day, res.Month, year); ok {
				return d, nil
			}
			log.Debug().
				Int("day", res.Day).Str("month", res.Month).
				Msg("model date rejected, trying fallback")
		} else {
			log.Debug().Err(err).Msg("model date parse failed, trying fallback")
		}
	}

	if d, ok := n.parseFallback(trimmed, year); ok {
		return d, nil
	}
	return model.Date{}, model.UserInputf("Invalid date: %s", phrase)
}

// validate checks the day range and month name and assembles the date.
func (n *Normalizer) validate(day int, month string, year int) (model.Date, bool) {
	if day < 1 || day > 31 {
		return model.Date{}, false
	}
	en, ok := months.Canonical(month)
	if !ok {
		return model.Date{}, false
	}
	return model.Date{Day: day, Month: en, Year: year}, true
}

// parseFallback is the deterministic branch: split the phrase into tokens,
// classify each as digits or letters, and interpret the digits token as the
// day and the letters token as a month via the three-letter abbreviation
// table or the full alias table.
func (n *Normalizer) parseFallback(phrase string, year int) (model.Date, bool) {
	// A pure d/m[/y] form has no letters token to classify.
	if m := slashForm.FindStringSubmatch(phrase); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
			year = y
		}
		if day < 1 || day > 31 || monthNum < 1 || monthNum > 12 {
			return model.Date{}, false
		}
		return model.Date{Day: day, Month: model.EnglishMonths[monthNum-1], Year: year}, true
	}

	tokens := strings.FieldsFunc(phrase, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	day := 0
	month := ""
	for _, tok := range tokens {
		switch {
		case isDigits(tok):
			v, _ := strconv.Atoi(tok)
			if len(tok) == 4 {
				year = v
			} else if day == 0 {
				day = v
			}
		case isLetters(tok):
			if month == "" {
				if en, ok := months.Expand(tok); ok {
					month = en
				}
			}
		}
	}

	return n.validate(day, month, year)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
