package worldview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 21, 45, 3, 0, time.FixedZone("PDT", -7*3600))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		// 21:45 PDT is already the 19th in UTC.
		{"empty is today in UTC", "", "2026-10-19T00:00:00Z"},
		{"date only", "2024-08-15", "2024-08-15T00:00:00Z"},
		{"utc instant", "2024-08-15T13:20:00Z", "2024-08-15T13:20:00Z"},
		{"offset instant", "2024-08-15T01:20:00+02:00", "2024-08-14T23:20:00Z"},
		{"fractional seconds", "2024-08-15T13:20:00.123Z", "2024-08-15T13:20:00Z"},
		{"no offset read as utc", "2024-08-15T13:20:00", "2024-08-15T13:20:00Z"},
		{"garbage", "yesterday", "2026-10-19T00:00:00Z"},
		{"bad date", "2024-13-45", "2026-10-19T00:00:00Z"},
		{"bad instant", "2024-08-15Tnoon", "2026-10-19T00:00:00Z"},
		{"surrounding space", " 2024-08-15 ", "2024-08-15T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.input, now))
		})
	}
}
