package render

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testInstant = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func TestRenderSingleSegmentSkipsDelimiter(t *testing.T) {
	title, err := Render([]string{"Team Chat"}, "|", testInstant, "UTC")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if title != "Team Chat" {
		t.Fatalf("expected %q, got %q", "Team Chat", title)
	}
}

func TestRenderJoinsAndSubstitutes(t *testing.T) {
	title, err := Render([]string{"Team Chat", "{Y}-{m}-{d}"}, "|", testInstant, "UTC")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if title != "Team Chat | 2024-03-05" {
		t.Fatalf("expected %q, got %q", "Team Chat | 2024-03-05", title)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	segments := []string{"{A}", "{F}", "week {V}"}
	first, err := Render(segments, "·", testInstant, "UTC")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	second, err := Render(segments, "·", testInstant, "UTC")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if first != second {
		t.Fatalf("render is not deterministic: %q != %q", first, second)
	}
}

func TestRenderAppliesTimezone(t *testing.T) {
	title, err := Render([]string{"{H}:{M}"}, "|", testInstant, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if title != "18:00" {
		t.Fatalf("expected 18:00 in Asia/Shanghai, got %q", title)
	}
}

func TestRenderFallsBackToUTCOnBadTimezone(t *testing.T) {
	title, err := Render([]string{"{H}"}, "|", testInstant, "Not/AZone")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if title != "10" {
		t.Fatalf("expected UTC fallback hour 10, got %q", title)
	}
}

func TestRenderFailsOnUnresolvedPlaceholder(t *testing.T) {
	_, err := Render([]string{"{nope}"}, "|", testInstant, "UTC")
	if !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Fatalf("expected ErrUnresolvedPlaceholder, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected error to name the specifier, got %v", err)
	}
}

func TestSubstituteTrimsInnerWhitespace(t *testing.T) {
	out, err := Substitute("{ Y }", Context(testInstant))
	if err != nil {
		t.Fatalf("Substitute returned error: %v", err)
	}
	if out != "2024" {
		t.Fatalf("expected 2024, got %q", out)
	}
}

func TestContextSpecifiers(t *testing.T) {
	// 2024-03-05 10:00:00 UTC is a Tuesday, day 65 of a leap year, ISO week 10.
	ctx := Context(testInstant)

	tests := []struct {
		specifier string
		expected  string
	}{
		{"Y", "2024"},
		{"C", "20"},
		{"y", "24"},
		{"m", "03"},
		{"b", "Mar"},
		{"h", "Mar"},
		{"B", "March"},
		{"d", "05"},
		{"e", " 5"},
		{"a", "Tue"},
		{"A", "Tuesday"},
		{"w", "2"},
		{"u", "2"},
		{"U", "09"},
		{"W", "10"},
		{"G", "2024"},
		{"g", "24"},
		{"V", "10"},
		{"j", "065"},
		{"D", "03/05/24"},
		{"x", "03/05/24"},
		{"F", "2024-03-05"},
		{"v", " 5-Mar-2024"},
		{"H", "10"},
		{"k", "10"},
		{"I", "10"},
		{"l", "10"},
		{"P", "am"},
		{"p", "AM"},
		{"M", "00"},
		{"S", "00"},
		{"R", "10:00"},
		{"T", "10:00:00"},
		{"X", "10:00:00"},
		{"r", "10:00:00 AM"},
		{"Z", "UTC"},
		{"z", "+0000"},
		{":z", "+00:00"},
		{"c", "Tue Mar  5 10:00:00 2024"},
		{"s", "1709632800"},
		{"yeshu", "36"},
	}

	for _, tt := range tests {
		got, ok := ctx[tt.specifier]
		if !ok {
			t.Fatalf("context is missing specifier %q", tt.specifier)
		}
		if got != tt.expected {
			t.Fatalf("specifier %q = %q, want %q", tt.specifier, got, tt.expected)
		}
	}
}

func TestContextMidnightAndNoon(t *testing.T) {
	midnight := Context(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
	if midnight["I"] != "12" || midnight["p"] != "AM" {
		t.Fatalf("expected 12 AM at midnight, got %s %s", midnight["I"], midnight["p"])
	}

	noon := Context(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC))
	if noon["I"] != "12" || noon["p"] != "PM" {
		t.Fatalf("expected 12 PM at noon, got %s %s", noon["I"], noon["p"])
	}
}

func TestValidTimezone(t *testing.T) {
	if !ValidTimezone("Asia/Shanghai") {
		t.Fatalf("expected Asia/Shanghai to be valid")
	}
	if ValidTimezone("Not/AZone") {
		t.Fatalf("expected Not/AZone to be invalid")
	}
	if ValidTimezone("  ") {
		t.Fatalf("expected blank timezone to be invalid")
	}
}
