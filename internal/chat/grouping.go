package chat

import (
	"time"

	"diet-coach/internal/domain"
)

const dayLabelLayout = "Jan 2"

// DayGroup agrupa los mensajes de un mismo día calendario local.
type DayGroup struct {
	Label    string               `json:"label"`
	Messages []domain.ChatMessage `json:"messages"`
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// DayLabel devuelve "Today", "Yesterday" o "Jan 2" (sin año) para t, usando
// la zona de now como zona local.
func DayLabel(t, now time.Time) string {
	loc := now.Location()
	day := dateOf(t.In(loc))
	today := dateOf(now)
	if day == today {
		return "Today"
	}
	y, m, d := now.Date()
	if day == dateOf(time.Date(y, m, d-1, 12, 0, 0, 0, loc)) {
		return "Yesterday"
	}
	return t.In(loc).Format(dayLabelLayout)
}

// GroupByDay es puro y determinista. Los grupos salen en el orden en que aparece
// cada día y cada grupo conserva el orden de entrada. La clave es la fecha
// calendario, así que el mismo "Mar 5" de dos años distintos forma dos grupos.
func GroupByDay(messages []domain.ChatMessage, now time.Time) []DayGroup {
	loc := now.Location()
	groups := []DayGroup{}
	index := make(map[civilDate]int)
	for _, msg := range messages {
		key := dateOf(msg.CreatedAt.In(loc))
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Label: DayLabel(msg.CreatedAt, now)})
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	return groups
}
