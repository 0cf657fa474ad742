package core

import (
	"errors"
	"testing"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain integer", input: "42", want: 4200},
		{name: "two decimals", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "one decimal", input: "5.5", want: 550},
		{name: "zero", input: "0", want: 0},
		{name: "leading dot", input: ".50", want: 50},
		{name: "whitespace trimmed", input: " 7.00 ", want: 700},
		{name: "third decimal rounds up", input: "1.005", want: 101},
		{name: "third decimal rounds down", input: "1.004", want: 100},
		{name: "upper bound accepted", input: "99999999.99", want: 9_999_999_999},
		{name: "above upper bound", input: "100000000.00", wantErr: true},
		{name: "negative rejected", input: "-0.01", wantErr: true},
		{name: "plus sign rejected", input: "+1.00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "trailing dot", input: "5.", wantErr: true},
		{name: "letters in fraction", input: "1.2x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmountCents(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmountCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmountCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSignedCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "positive", input: "100.50", want: 10050},
		{name: "negative", input: "-100.50", want: -10050},
		{name: "negative zero", input: "-0", want: 0},
		{name: "lower bound accepted", input: "-99999999.99", want: -9_999_999_999},
		{name: "below lower bound", input: "-100000000.00", wantErr: true},
		{name: "double minus", input: "--5", wantErr: true},
		{name: "bare minus", input: "-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignedCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseSignedCents(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignedCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSignedCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{1234567, "12345.67"},
		{-50, "-0.50"},
		{-1234567, "-12345.67"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
