package dates

import (
	"context"
	"errors"
	"testing"
	"time"

	"tabkeeper/internal/llm"
	"tabkeeper/internal/model"
)

// mockLLM implements the LLM interface with a function field.
type mockLLM struct {
	ParseDateFunc func(ctx context.Context, phrase string) (llm.DateResult, error)
}

func (m *mockLLM) ParseDate(ctx context.Context, phrase string) (llm.DateResult, error) {
	return m.ParseDateFunc(ctx, phrase)
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func newTestNormalizer(client LLM) *Normalizer {
	n := New(client)
	n.now = fixedNow
	return n
}

func TestNormalize_ModelFirst(t *testing.T) {
	client := &mockLLM{
		ParseDateFunc: func(ctx context.Context, phrase string) (llm.DateResult, error) {
			return llm.DateResult{Day: 13, Month: "June"}, nil
		},
	}
	n := newTestNormalizer(client)

	got, err := n.Normalize(context.Background(), "13 June")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := model.Date{Day: 13, Month: "June", Year: 2025}
	if !got.Equal(want) {
		t.Errorf("Normalize = %+v, want %+v", got, want)
	}
}

func TestNormalize_FallbackOnModelError(t *testing.T) {
	failing := &mockLLM{
		ParseDateFunc: func(ctx context.Context, phrase string) (llm.DateResult, error) {
			return llm.DateResult{}, errors.New("model unavailable")
		},
	}
	n := newTestNormalizer(failing)

	// Every surface form of the same date must normalize identically.
	want := model.Date{Day: 28, Month: "February", Year: 2025}
	for _, phrase := range []string{
		"28 Feb",
		"Feb 28",
		"Feb 28, 2025",
		"28/02/2025",
		"28 février",
	} {
		got, err := n.Normalize(context.Background(), phrase)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", phrase, err)
		}
		if !got.Equal(want) {
			t.Errorf("Normalize(%q) = %+v, want %+v", phrase, got, want)
		}
	}
}

func TestNormalize_FallbackOnInvalidModelResult(t *testing.T) {
	// Day out of range from the model must not be accepted.
	client := &mockLLM{
		ParseDateFunc: func(ctx context.Context, phrase string) (llm.DateResult, error) {
			return llm.DateResult{Day: 42, Month: "June"}, nil
		},
	}
	n := newTestNormalizer(client)

	got, err := n.Normalize(context.Background(), "18 juin")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := model.Date{Day: 18, Month: "June", Year: 2025}
	if !got.Equal(want) {
		t.Errorf("Normalize = %+v, want %+v", got, want)
	}
}

func TestNormalize_YearDefaultsAndOverrides(t *testing.T) {
	n := newTestNormalizer(nil)

	got, err := n.Normalize(context.Background(), "5 June")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year != 2025 {
		t.Errorf("default year = %d, want 2025", got.Year)
	}

	got, err = n.Normalize(context.Background(), "June 5, 2023")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year != 2023 {
		t.Errorf("explicit year = %d, want 2023", got.Year)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	n := newTestNormalizer(nil)

	for _, phrase := range []string{
		"",
		"hello world",
		"32 June",
		"15 Smarch",
		"45/88",
	} {
		_, err := n.Normalize(context.Background(), phrase)
		if err == nil {
			t.Errorf("Normalize(%q) should fail", phrase)
			continue
		}
		if !model.IsUserInput(err) {
			t.Errorf("Normalize(%q) error should be a user input error, got %v", phrase, err)
		}
	}
}
