package domain

import (
	"reflect"
	"testing"
)

func TestNewGroupDefaults(t *testing.T) {
	group := NewGroup(-100200300, "Example Group")

	if group.ChatID != -100200300 {
		t.Fatalf("expected chat id -100200300, got %d", group.ChatID)
	}
	if group.Enabled {
		t.Fatalf("expected new group to start disabled")
	}
	if !reflect.DeepEqual(group.Segments, []string{"Example Group"}) {
		t.Fatalf("expected single segment from chat title, got %v", group.Segments)
	}
	if group.Delimiter != DefaultDelimiter {
		t.Fatalf("expected delimiter %q, got %q", DefaultDelimiter, group.Delimiter)
	}
	if group.Timezone != DefaultTimezone {
		t.Fatalf("expected timezone %q, got %q", DefaultTimezone, group.Timezone)
	}
	if group.LastTitle != "Example Group" {
		t.Fatalf("expected last title to mirror current title, got %q", group.LastTitle)
	}
	if !group.RequireAdmin {
		t.Fatalf("expected require_admin by default")
	}
}

func TestSegmentOrdering(t *testing.T) {
	group := NewGroup(1, "base")
	group.PushSegment("tail")
	group.PushFrontSegment("head")

	want := []string{"head", "base", "tail"}
	if !reflect.DeepEqual(group.Segments, want) {
		t.Fatalf("expected segments %v, got %v", want, group.Segments)
	}

	if !group.PopSegment() {
		t.Fatalf("expected pop to remove the tail segment")
	}
	if !group.PopFrontSegment() {
		t.Fatalf("expected pop_front to remove the head segment")
	}
	if !reflect.DeepEqual(group.Segments, []string{"base"}) {
		t.Fatalf("expected only the base segment, got %v", group.Segments)
	}
}

func TestPopNeverEmptiesSegments(t *testing.T) {
	group := NewGroup(1, "only")

	for i := 0; i < 5; i++ {
		if group.PopSegment() || group.PopFrontSegment() {
			t.Fatalf("expected pops on a single-segment group to be no-ops")
		}
		if len(group.Segments) != 1 {
			t.Fatalf("segment invariant violated: %v", group.Segments)
		}
	}
}

func TestSetTemplateReplacesSegments(t *testing.T) {
	group := NewGroup(1, "base")
	group.PushSegment("extra")
	group.SetTemplate("{Y}-{m}-{d}")

	if !reflect.DeepEqual(group.Segments, []string{"{Y}-{m}-{d}"}) {
		t.Fatalf("expected template to replace all segments, got %v", group.Segments)
	}
}

func TestGroupCodecRoundTrip(t *testing.T) {
	original := Group{
		ChatID:       -1001234567890,
		Enabled:      true,
		Segments:     []string{"Team Chat", "{Y}-{m}-{d}"},
		Delimiter:    "|",
		Timezone:     "Asia/Shanghai",
		LastTitle:    "Team Chat | 2024-03-05",
		RequireAdmin: false,
	}

	data, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	decoded, err := DecodeGroup(data)
	if err != nil {
		t.Fatalf("DecodeGroup returned error: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestDecodeGroupRejectsGarbage(t *testing.T) {
	if _, err := DecodeGroup([]byte("not json")); err == nil {
		t.Fatalf("expected decode error for malformed data")
	}
}
