// Package llm wraps the Gemini API for the three extraction tasks the bot
// needs: receipt OCR, date normalization and text-intent classification.
// Every response is treated as untrusted: the model is asked for strict
// JSON, fences are stripped, and fields are validated before use.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"tabkeeper/internal/logger"
)

// DefaultModelName is the Gemini model used for all three call shapes.
const DefaultModelName = "gemini-2.5-flash"

// Client is a thin wrapper around the genai SDK.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient creates a Gemini client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}
	return &Client{genai: c, model: DefaultModelName}, nil
}

// ReceiptResult is the payload extracted from a photographed receipt.
type ReceiptResult struct {
	Type     string // "expense", "earning", "fee" or "" when unknown
	Amount   float64
	Currency string
	Name     string
	Date     string // short date phrase, e.g. "3 July"
	Valid    bool
}

// DateResult is the canonical day/month pair extracted from a date phrase.
type DateResult struct {
	Day   int
	Month string // English month name
}

// ConversionResult classifies a text message as a USD-conversion request.
type ConversionResult struct {
	IsConversionRequest bool
	Month               string // English month name, empty when not given
}

// TransactionResult is a transaction extracted from a free-form text
// message. Date is left as the model's short phrase; the caller normalizes
// it.
type TransactionResult struct {
	Type     string
	Amount   float64
	Currency string
	Name     string
	Date     string
	Valid    bool
}

// ExtractReceipt runs OCR over receipt image bytes and returns the strict
// JSON payload described by the receipt prompt.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (ReceiptResult, error) {
	obj, err := c.generate(ctx, receiptPrompt, image, mimeType)
	if err != nil {
		return ReceiptResult{}, err
	}

	var res ReceiptResult
	res.Valid, _ = getBool(obj, "valid")
	if !res.Valid {
		// The other fields may be null; the caller only needs the verdict.
		return res, nil
	}
	if res.Type, err = getOptionalString(obj, "type"); err != nil {
		return ReceiptResult{}, fmt.Errorf("llm: receipt payload: %w", err)
	}
	if res.Amount, err = getFloat(obj, "amount"); err != nil {
		return ReceiptResult{}, fmt.Errorf("llm: receipt payload: %w", err)
	}
	if res.Currency, err = getOptionalString(obj, "currency"); err != nil {
		return ReceiptResult{}, fmt.Errorf("llm: receipt payload: %w", err)
	}
	if res.Name, err = getOptionalString(obj, "name"); err != nil {
		return ReceiptResult{}, fmt.Errorf("llm: receipt payload: %w", err)
	}
	if res.Date, err = getOptionalString(obj, "date"); err != nil {
		return ReceiptResult{}, fmt.Errorf("llm: receipt payload: %w", err)
	}
	return res, nil
}

// ParseDate asks the model for a {day, month} pair. Any null field is an
// error; the caller falls back to the deterministic parser.
func (c *Client) ParseDate(ctx context.Context, phrase string) (DateResult, error) {
	obj, err := c.generate(ctx, fmt.Sprintf(datePrompt, phrase), nil, "")
	if err != nil {
		return DateResult{}, err
	}

	day, err := getInt(obj, "day")
	if err != nil {
		return DateResult{}, fmt.Errorf("llm: date payload: %w", err)
	}
	month, err := getString(obj, "month")
	if err != nil {
		return DateResult{}, fmt.Errorf("llm: date payload: %w", err)
	}
	return DateResult{Day: day, Month: month}, nil
}

// ClassifyConversion asks the model whether the message is a request to
// convert missing USD values, and for which month.
func (c *Client) ClassifyConversion(ctx context.Context, text string) (ConversionResult, error) {
	obj, err := c.generate(ctx, fmt.Sprintf(conversionPrompt, text), nil, "")
	if err != nil {
		return ConversionResult{}, err
	}

	isConv, err := getBool(obj, "isConversionRequest")
	if err != nil {
		return ConversionResult{}, fmt.Errorf("llm: conversion payload: %w", err)
	}
	month, err := getOptionalString(obj, "month")
	if err != nil {
		return ConversionResult{}, fmt.Errorf("llm: conversion payload: %w", err)
	}
	return ConversionResult{IsConversionRequest: isConv, Month: month}, nil
}

// ExtractTransaction asks the model to extract a transaction payload from a
// free-form text message.
func (c *Client) ExtractTransaction(ctx context.Context, text string) (TransactionResult, error) {
	obj, err := c.generate(ctx, fmt.Sprintf(transactionPrompt, text), nil, "")
	if err != nil {
		return TransactionResult{}, err
	}

	var res TransactionResult
	res.Valid, _ = getBool(obj, "valid")
	if !res.Valid {
		return res, nil
	}
	if res.Type, err = getOptionalString(obj, "type"); err != nil {
		return TransactionResult{}, fmt.Errorf("llm: transaction payload: %w", err)
	}
	if res.Amount, err = getFloat(obj, "amount"); err != nil {
		return TransactionResult{}, fmt.Errorf("llm: transaction payload: %w", err)
	}
	if res.Currency, err = getOptionalString(obj, "currency"); err != nil {
		return TransactionResult{}, fmt.Errorf("llm: transaction payload: %w", err)
	}
	if res.Name, err = getOptionalString(obj, "name"); err != nil {
		return TransactionResult{}, fmt.Errorf("llm: transaction payload: %w", err)
	}
	if res.Date, err = getOptionalString(obj, "date"); err != nil {
		return TransactionResult{}, fmt.Errorf("llm: transaction payload: %w", err)
	}
	return res, nil
}

// generate issues one GenerateContent call and decodes the response into a
// generic JSON object. image is optional.
func (c *Client) generate(ctx context.Context, prompt string, image []byte, mimeType string) (map[string]interface{}, error) {
	log := logger.FromContext(ctx)

	parts := []*genai.Part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeType, Data: image},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("llm: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("llm: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		log.Debug().Str("raw", rawText).Msg("model returned unparseable JSON")
		return nil, fmt.Errorf("llm: unmarshal model JSON: %w", err)
	}
	return obj, nil
}
