package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"same day", now.Add(-20 * time.Minute), "Today"},
		{"just after midnight boundary", now.Add(-31 * time.Minute), "Yesterday"},
		{"start of yesterday", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), "Yesterday"},
		{"two days ago", time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC), "2026-03-08"},
		{"across month", time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), "2026-02-28"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DayLabel(tc.ts, now))
		})
	}
}

func TestDayLabelUsesNowLocation(t *testing.T) {
	colombo := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 3, 10, 2, 0, 0, 0, colombo)
	// 21:00 UTC on the 9th is already the 10th in Colombo.
	ts := time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC)

	assert.Equal(t, "Today", DayLabel(ts, now))
}

func TestGroupByDayKeepsOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	msgs := []DisplayMessage{
		{ID: "1", SentAt: yesterday},
		{ID: "2", SentAt: yesterday.Add(time.Minute)},
		{ID: "3", SentAt: now},
		{ID: "4", SentAt: now.Add(time.Minute)},
	}

	groups := GroupByDay(msgs, now)
	require.Len(t, groups, 2)
	assert.Equal(t, "Yesterday", groups[0].Label)
	assert.Equal(t, "Today", groups[1].Label)
	assert.Equal(t, "1", groups[0].Messages[0].ID)
	assert.Equal(t, "2", groups[0].Messages[1].ID)
	assert.Equal(t, "3", groups[1].Messages[0].ID)
	assert.Equal(t, "4", groups[1].Messages[1].ID)
}

func TestGroupByDayEmpty(t *testing.T) {
	assert.Empty(t, GroupByDay(nil, time.Now()))
}
