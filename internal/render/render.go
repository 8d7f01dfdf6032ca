// Package render turns a group's title template into a literal title for a
// point in time. Placeholders use the {specifier} form; specifier values
// follow strftime semantics so templates keep rendering the same across
// deployments.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// epochYear anchors the custom {yeshu} specifier.
const epochYear = 1988

// ErrUnresolvedPlaceholder reports a {specifier} with no value in the
// template context. Unknown specifiers fail the render rather than passing
// through verbatim, so a typo is caught the moment the template is changed
// instead of silently appearing in the chat title.
var ErrUnresolvedPlaceholder = errors.New("unresolved template placeholder")

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// JoinSegments joins title segments with the delimiter padded by single
// spaces. A single segment renders without the delimiter.
func JoinSegments(segments []string, delimiter string) string {
	return strings.Join(segments, " "+delimiter+" ")
}

// Location resolves an IANA timezone name. Records persisted with a name
// this host cannot parse fall back to UTC at render time instead of erroring.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidTimezone reports whether name parses as an IANA timezone. Used at
// write time; render time is more forgiving (see Location).
func ValidTimezone(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Render produces the literal title for the segments at the given instant,
// interpreted in the group's timezone.
func Render(segments []string, delimiter string, at time.Time, timezone string) (string, error) {
	return Substitute(JoinSegments(segments, delimiter), Context(at.In(Location(timezone))))
}

// Substitute replaces every {specifier} in the template with its context
// value. Inner whitespace around the specifier is ignored.
func Substitute(template string, ctx map[string]string) (string, error) {
	var unresolved []string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[1 : len(match)-1])
		value, ok := ctx[key]
		if !ok {
			unresolved = append(unresolved, key)
			return match
		}
		return value
	})
	if len(unresolved) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, strings.Join(unresolved, ", "))
	}
	return out, nil
}

// Context builds the specifier table for one instant. The instant must
// already be in the group's timezone; all values are derived from its
// wall-clock reading. The mapping is ephemeral and never persisted.
func Context(t time.Time) map[string]string {
	year, month, day := t.Date()
	hour, minute, second := t.Clock()
	isoYear, isoWeek := t.ISOWeek()
	weekday := int(t.Weekday()) // Sunday = 0
	yearDay := t.YearDay()

	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	isoWeekday := weekday
	if isoWeekday == 0 {
		isoWeekday = 7
	}

	return map[string]string{
		"Y":     strconv.Itoa(year),
		"C":     fmt.Sprintf("%02d", year/100),
		"y":     fmt.Sprintf("%02d", year%100),
		"m":     fmt.Sprintf("%02d", int(month)),
		"b":     t.Format("Jan"),
		"h":     t.Format("Jan"),
		"B":     t.Format("January"),
		"d":     fmt.Sprintf("%02d", day),
		"e":     fmt.Sprintf("%2d", day),
		"a":     t.Format("Mon"),
		"A":     t.Format("Monday"),
		"w":     strconv.Itoa(weekday),
		"u":     strconv.Itoa(isoWeekday),
		"U":     fmt.Sprintf("%02d", (yearDay-1+7-weekday)/7),
		"W":     fmt.Sprintf("%02d", (yearDay-1+7-(weekday+6)%7)/7),
		"G":     strconv.Itoa(isoYear),
		"g":     fmt.Sprintf("%02d", isoYear%100),
		"V":     fmt.Sprintf("%02d", isoWeek),
		"j":     fmt.Sprintf("%03d", yearDay),
		"D":     t.Format("01/02/06"),
		"x":     t.Format("01/02/06"),
		"F":     t.Format("2006-01-02"),
		"v":     fmt.Sprintf("%2d-%s-%d", day, t.Format("Jan"), year),
		"H":     fmt.Sprintf("%02d", hour),
		"k":     fmt.Sprintf("%2d", hour),
		"I":     fmt.Sprintf("%02d", hour12),
		"l":     fmt.Sprintf("%2d", hour12),
		"P":     strings.ToLower(meridiem),
		"p":     meridiem,
		"M":     fmt.Sprintf("%02d", minute),
		"S":     fmt.Sprintf("%02d", second),
		"f":     fmt.Sprintf("%09d", t.Nanosecond()),
		"R":     fmt.Sprintf("%02d:%02d", hour, minute),
		"T":     fmt.Sprintf("%02d:%02d:%02d", hour, minute, second),
		"X":     fmt.Sprintf("%02d:%02d:%02d", hour, minute, second),
		"r":     fmt.Sprintf("%02d:%02d:%02d %s", hour12, minute, second, meridiem),
		"Z":     t.Format("MST"),
		"z":     t.Format("-0700"),
		":z":    t.Format("-07:00"),
		"c":     fmt.Sprintf("%s %s %2d %02d:%02d:%02d %d", t.Format("Mon"), t.Format("Jan"), day, hour, minute, second, year),
		"+":     t.Format(time.RFC3339),
		"s":     strconv.FormatInt(t.Unix(), 10),
		"yeshu": strconv.Itoa(year - epochYear),
	}
}
