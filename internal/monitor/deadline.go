package monitor

import (
	"regexp"
	"strings"
	"time"
)

// deadlineLabel finds a due-date label and captures the text after it.
var deadlineLabel = regexp.MustCompile(`(?i)\b(?:due(?:\s+date)?|deadline|closing(?:\s+date)?|closes|bids?\s+open(?:ing)?)\s*(?:on|:|-)?\s*(.{6,40})`)

var deadlineDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`),
	regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+20\d{2}\b`),
}

var deadlineLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// ExtractDeadline finds a labelled due date ("Due: 03/15/2024", "Closing Date March 15, 2024")
// and returns it as YYYY-MM-DD, or "" when none is present.
func ExtractDeadline(text string) string {
	m := deadlineLabel.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	candidate := m[1]
	for _, re := range deadlineDatePatterns {
		raw := re.FindString(candidate)
		if raw == "" {
			continue
		}
		if t, ok := parseDeadline(raw); ok {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func parseDeadline(raw string) (time.Time, bool) {
	raw = cleanDateString(raw)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanDateString normalises month abbreviations so "Sept." and "sep" parse as "Sep".
func cleanDateString(s string) string {
	s = normalizeSpace(strings.ReplaceAll(s, ".", ""))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	month := strings.ToLower(fields[0])
	if len(month) >= 3 && month[0] >= 'a' && month[0] <= 'z' {
		for _, name := range monthNames {
			if strings.HasPrefix(strings.ToLower(name), month[:3]) {
				if len(month) > 3 && strings.EqualFold(name, fields[0]) {
					fields[0] = name
				} else {
					fields[0] = name[:3]
				}
				break
			}
		}
	}
	return strings.Join(fields, " ")
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}
