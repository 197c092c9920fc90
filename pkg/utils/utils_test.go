package utils

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"708", 708, true},
		{"₹1,234.50", 1234.5, true},
		{"Rs. 708", 708, true},
		{"INR 99.9", 99.9, true},
		{"₹674 - ₹708", 674, true},
		{"141-148", 141, true},
		{"141 to 148", 141, true},
		{"  250  ", 250, true},
		{"0", 0, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"—", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParsePositivePrice(t *testing.T) {
	if _, ok := ParsePositivePrice("0"); ok {
		t.Error("zero must not be accepted as a positive price")
	}
	if v, ok := ParsePositivePrice("₹100"); !ok || v != 100 {
		t.Errorf("ParsePositivePrice(₹100) = %v, %v", v, ok)
	}
}

// Property: any non-negative amount rendered by FormatIndianCurrency parses
// back to the same value at paise precision.
func TestProperty_CurrencyFormatParses(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("formatted currency parses back", prop.ForAll(
		func(amount float64) bool {
			got, ok := ParsePrice(FormatIndianCurrency(amount))
			return ok && math.Abs(got-amount) < 0.006
		},
		gen.Float64Range(0, 1e9),
	))

	properties.TestingRun(t)
}

func TestFormatIndianCurrency(t *testing.T) {
	tests := map[float64]string{
		0:          "₹0.00",
		999:        "₹999.00",
		1000:       "₹1,000.00",
		123456.789: "₹1,23,456.79",
		-12345678:  "-₹1,23,45,678.00",
	}
	for in, want := range tests {
		if got := FormatIndianCurrency(in); got != want {
			t.Errorf("FormatIndianCurrency(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOptional(t *testing.T) {
	if got := FormatOptionalCurrency(nil); got != "N/A" {
		t.Errorf("got %q", got)
	}
	v := 12.5
	if got := FormatOptionalPercent(&v); got != "+12.50%" {
		t.Errorf("got %q", got)
	}
	if got := FormatPercent(-3); got != "-3.00%" {
		t.Errorf("got %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	tests := map[float64]string{
		95000:     "₹95,000.00",
		1250000:   "12.50 L",
		-1250000:  "-12.50 L",
		345000000: "34.50 Cr",
	}
	for amount, want := range tests {
		if got := FormatCompact(amount); got != want {
			t.Errorf("FormatCompact(%v) = %q, want %q", amount, got, want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(2.345678); got != 2.35 {
		t.Errorf("Round2(2.345678) = %v", got)
	}
	if got := Round2(-25); got != -25 {
		t.Errorf("Round2(-25) = %v", got)
	}
}

func TestFormatListingDate(t *testing.T) {
	tests := map[string]string{
		"19 Feb 2025":      "19-02-2025",
		"5 Mar '24":        "05-03-2024",
		"1 September 2024": "01-09-2024",
		"TBA":              "TBA",
		"  ":               "",
	}
	for in, want := range tests {
		if got := FormatListingDate(in); got != want {
			t.Errorf("FormatListingDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRetryWithResult(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	if err != nil || got != 42 || calls != 3 {
		t.Fatalf("got %d, %v after %d calls", got, err, calls)
	}

	permanent := errors.New("permanent")
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }
	calls = 0
	_, err = RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("non-retryable error retried: calls=%d err=%v", calls, err)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 1}
	err := Retry(ctx, cfg, func() error { return errors.New("down") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
