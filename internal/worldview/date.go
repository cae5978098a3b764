package worldview

import (
	"strings"
	"time"
)

// DateLayout is the instant format Worldview expects in the t parameter.
const DateLayout = "2006-01-02T15:04:05Z"

// localInstantLayouts cover full instants written without an offset.
var localInstantLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// NormalizeDate canonicalizes a date expression. An empty or unparseable
// input yields midnight UTC of now's date.
func NormalizeDate(input string, now time.Time) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return today(now)
	}

	if !strings.Contains(input, "T") {
		d, err := time.Parse(time.DateOnly, input)
		if err != nil {
			return today(now)
		}
		return d.UTC().Format(DateLayout)
	}

	if t, err := time.Parse(time.RFC3339Nano, input); err == nil {
		return t.UTC().Format(DateLayout)
	}
	for _, layout := range localInstantLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.UTC().Format(DateLayout)
		}
	}
	return today(now)
}

func today(now time.Time) string {
	return now.UTC().Format("2006-01-02") + "T00:00:00Z"
}
