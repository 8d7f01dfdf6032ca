// Package domain defines the per-chat title configuration record.
package domain

import (
	"encoding/json"
	"fmt"
)

// Defaults applied when a chat is configured for the first time.
const (
	DefaultDelimiter = "|"
	DefaultTimezone  = "UTC"
)

// Group is the persisted title configuration and last-known state for one
// Telegram chat. Records are owned by the store between mutations; a handler
// or sweep iteration works on its own in-memory copy.
type Group struct {
	ChatID       int64    `json:"chat_id"`
	Enabled      bool     `json:"enabled"`
	Segments     []string `json:"segments"`
	Delimiter    string   `json:"delimiter"`
	Timezone     string   `json:"timezone"`
	LastTitle    string   `json:"last_title"`
	RequireAdmin bool     `json:"require_admin"`
}

// NewGroup builds the default record for a chat seen for the first time. The
// chat's current display title becomes the single initial segment, automatic
// updates start disabled, and mutations require admin rights.
func NewGroup(chatID int64, currentTitle string) Group {
	return Group{
		ChatID:       chatID,
		Enabled:      false,
		Segments:     []string{currentTitle},
		Delimiter:    DefaultDelimiter,
		Timezone:     DefaultTimezone,
		LastTitle:    currentTitle,
		RequireAdmin: true,
	}
}

// PushSegment appends a template segment.
func (g *Group) PushSegment(segment string) {
	g.Segments = append(g.Segments, segment)
}

// PushFrontSegment prepends a template segment.
func (g *Group) PushFrontSegment(segment string) {
	g.Segments = append([]string{segment}, g.Segments...)
}

// PopSegment removes the last segment. The final remaining segment may never
// be removed; popping it is a no-op and reports false.
func (g *Group) PopSegment() bool {
	if len(g.Segments) <= 1 {
		return false
	}
	g.Segments = g.Segments[:len(g.Segments)-1]
	return true
}

// PopFrontSegment removes the first segment, with the same single-segment
// guard as PopSegment.
func (g *Group) PopFrontSegment() bool {
	if len(g.Segments) <= 1 {
		return false
	}
	g.Segments = g.Segments[1:]
	return true
}

// SetTemplate replaces the whole segment list with a single segment.
func (g *Group) SetTemplate(segment string) {
	g.Segments = []string{segment}
}

// Encode serializes the record for the key/value store.
func (g Group) Encode() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode group record: %w", err)
	}
	return data, nil
}

// DecodeGroup deserializes a stored record.
func DecodeGroup(data []byte) (Group, error) {
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return Group{}, fmt.Errorf("decode group record: %w", err)
	}
	return g, nil
}
