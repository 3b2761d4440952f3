// Package intent converts a raw text message into one of three intents:
// record a transaction, convert missing USD values for a month, or
// unrecognized. Conversion detection runs a deterministic regex pass before
// asking the model; transaction extraction is model-only with strict
// validation.
package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"tabkeeper/internal/llm"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/model"
	"tabkeeper/internal/months"
)

// Kind is the classified intent of a text message.
type Kind int

const (
	KindUnknown Kind = iota
	KindConvert
	KindRecord
)

// Result is the outcome of intent extraction. Month is set for KindConvert,
// Tx for KindRecord.
type Result struct {
	Kind  Kind
	Month string // English month name
	Tx    model.Transaction
}

// LLM is the text-classification slice of the model client.
type LLM interface {
	ClassifyConversion(ctx context.Context, text string) (llm.ConversionResult, error)
	ExtractTransaction(ctx context.Context, text string) (llm.TransactionResult, error)
}

// DateNormalizer resolves the date phrase of an extracted transaction.
type DateNormalizer interface {
	Normalize(ctx context.Context, phrase string) (model.Date, error)
}

// Extractor runs the three passes over a message.
type Extractor struct {
	llm   LLM
	dates DateNormalizer
}

// New creates an Extractor.
func New(client LLM, dates DateNormalizer) *Extractor {
	return &Extractor{llm: client, dates: dates}
}

// conversionPatterns is the deterministic pass-A regex family.
var conversionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`convert.*usd`),
	regexp.MustCompile(`usd.*convert`),
	regexp.MustCompile(`update.*usd`),
	regexp.MustCompile(`missing.*usd`),
	regexp.MustCompile(`usd.*missing`),
}

// Extract classifies text. It never returns an error for mere
// non-recognition; KindUnknown covers that. Errors are reserved for model
// transport failures and invalid extracted payloads.
func (e *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	log := logger.FromContext(ctx)
	lower := strings.ToLower(text)

	// Pass A: deterministic conversion detection.
	if month, ok := matchConversion(lower); ok {
		log.Debug().Str("month", month).Msg("conversion intent matched by regex")
		return Result{Kind: KindConvert, Month: month}, nil
	}

	// Pass B: model conversion classification.
	conv, err := e.llm.ClassifyConversion(ctx, text)
	if err != nil {
		log.Debug().Err(err).Msg("conversion classification failed, trying transaction pass")
	} else if conv.IsConversionRequest {
		if en, ok := months.Canonical(conv.Month); ok {
			return Result{Kind: KindConvert, Month: en}, nil
		}
		log.Debug().Str("month", conv.Month).Msg("model conversion month not recognized")
	}

	// Pass C: model transaction extraction.
	raw, err := e.llm.ExtractTransaction(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if !raw.Valid {
		return Result{Kind: KindUnknown}, nil
	}

	tx, err := e.validate(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindRecord, Tx: tx}, nil
}

// matchConversion implements pass A: a conversion-shaped message that names
// a known month. The literal "all" without a month is deliberately not a
// conversion request.
func matchConversion(lower string) (string, bool) {
	matched := false
	for _, re := range conversionPatterns {
		if re.MatchString(lower) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	month, ok := months.FindToken(lower)
	if !ok {
		return "", false
	}
	return month, true
}

// validate applies the strict acceptance rules to a model transaction
// payload.
func (e *Extractor) validate(ctx context.Context, raw llm.TransactionResult) (model.Transaction, error) {
	txType, ok := model.ParseTxType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !ok {
		return model.Transaction{}, model.UserInputf("couldn't understand the transaction type %q", raw.Type)
	}

	amount := decimal.NewFromFloat(raw.Amount)
	if !amount.IsPositive() {
		return model.Transaction{}, model.UserInputf("couldn't understand the transaction amount")
	}

	cur := strings.ToUpper(strings.TrimSpace(raw.Currency))
	switch cur {
	case "":
		cur = "CAD"
	case "CAD", "USD":
	default:
		return model.Transaction{}, model.UserInputf("unsupported currency %q (use CAD or USD)", raw.Currency)
	}

	date, err := e.dates.Normalize(ctx, raw.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		Type:     txType,
		Amount:   amount,
		Currency: cur,
		Name:     strings.TrimSpace(raw.Name),
		Date:     date,
	}, nil
}
