package delivery

import "time"

const dateLayout = "2006-01-02"

// DayGroup is a display-only bucket of messages sharing a day label.
type DayGroup struct {
	Label    string
	Messages []DisplayMessage
}

// DayLabel names the calendar day of ts relative to now, in now's location.
func DayLabel(ts, now time.Time) string {
	ts = ts.In(now.Location())
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	ty, tm, td := ts.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, now.Location())

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return ts.Format(dateLayout)
	}
}

// GroupByDay buckets messages by DayLabel. Groups appear in order of first
// occurrence and messages keep transcript order within a group.
func GroupByDay(msgs []DisplayMessage, now time.Time) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)

	for _, msg := range msgs {
		label := DayLabel(msg.SentAt, now)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, DayGroup{Label: label})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	return groups
}
