package task

import (
	"strings"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"completed", StatusCompleted, false},
		{"  Completed ", StatusCompleted, false},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Buy\t  MILK \n"); got != "buy milk" {
		t.Errorf("Normalize() = %q, want %q", got, "buy milk")
	}
}

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		title, query string
		want         bool
	}{
		{"Buy milk", "buy milk", true},
		{"Buy milk today", "milk", true},
		{"Buy  Milk", "buy milk", true},
		{"Walk dog", "milk", false},
		{"Buy milk", "", false},
	}

	for _, tt := range tests {
		if got := TitleMatches(tt.title, tt.query); got != tt.want {
			t.Errorf("TitleMatches(%q, %q) = %v, want %v", tt.title, tt.query, got, tt.want)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	limits := Limits{TitleMaxChars: 10, DescriptionMaxChars: 20}

	got, err := ValidateTitle("  buy milk ", limits)
	if err != nil {
		t.Fatalf("ValidateTitle() error = %v", err)
	}
	if got != "buy milk" {
		t.Errorf("ValidateTitle() = %q, want %q", got, "buy milk")
	}

	if _, err := ValidateTitle("   ", limits); err == nil || err.Error() != "title is required" {
		t.Errorf("ValidateTitle(blank) error = %v, want title is required", err)
	}

	if _, err := ValidateTitle(strings.Repeat("x", 11), limits); err == nil {
		t.Errorf("ValidateTitle(too long) expected error")
	}

	// multi-byte characters count as one each
	if _, err := ValidateTitle(strings.Repeat("é", 10), limits); err != nil {
		t.Errorf("ValidateTitle(10 runes) error = %v", err)
	}
}

func TestValidateDescription(t *testing.T) {
	limits := Limits{TitleMaxChars: 10, DescriptionMaxChars: 5}

	if err := ValidateDescription("short", limits); err != nil {
		t.Errorf("ValidateDescription() error = %v", err)
	}
	if err := ValidateDescription("too long", limits); err == nil {
		t.Errorf("ValidateDescription(too long) expected error")
	}
	if err := ValidateDescription("", limits); err != nil {
		t.Errorf("ValidateDescription(empty) error = %v", err)
	}
}
