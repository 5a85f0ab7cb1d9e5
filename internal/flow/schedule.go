package flow

import (
	"strings"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Test-drive time slots.
const (
	SlotMorning   = "Morning (10:00 AM)"
	SlotAfternoon = "Afternoon (1:00 PM)"
	SlotEvening   = "Evening (4:00 PM)"
)

// TimeSlots are offered at the test-drive time step.
var TimeSlots = []string{SlotMorning, SlotAfternoon, SlotEvening}

const (
	dayLabelLayout  = "Monday, 2 Jan"
	dateLabelLayout = "Monday, 2 January 2006"
)

// SlotHour returns the starting hour of a time slot, or -1.
func SlotHour(slot string) int {
	switch {
	case strings.Contains(slot, "Morning"):
		return 10
	case strings.Contains(slot, "Afternoon"):
		return 13
	case strings.Contains(slot, "Evening"):
		return 16
	default:
		return -1
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDate renders a resolved test-drive date for the customer.
func FormatDate(t time.Time) string {
	return t.Format(dateLabelLayout)
}

// ResolveDate turns "Today" or "Tomorrow" into a date.
func ResolveDate(selection string, now time.Time) (time.Time, bool) {
	switch selection {
	case models.DateToday:
		return midnight(now), true
	case models.DateTomorrow:
		return midnight(now).AddDate(0, 0, 1), true
	default:
		return time.Time{}, false
	}
}

// DayChoice is one concrete day offered for a test drive.
type DayChoice struct {
	Label string
	Date  time.Time
}

// DayChoices lists the days offered for "Later this Week" and "Next Week".
// Test drives run Monday to Saturday. Later this week starts the day after
// tomorrow; when no such day is left it falls back to next week.
func DayChoices(selection string, now time.Time) []DayChoice {
	today := midnight(now)
	var days []time.Time
	switch selection {
	case models.DateLaterWeek:
		for d := today.AddDate(0, 0, 2); d.Weekday() != time.Sunday && d.Weekday() != time.Monday; d = d.AddDate(0, 0, 1) {
			days = append(days, d)
		}
		if len(days) == 0 {
			return DayChoices(models.DateNextWeek, now)
		}
	case models.DateNextWeek:
		offset := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		monday := today.AddDate(0, 0, offset)
		for i := 0; i < 6; i++ {
			days = append(days, monday.AddDate(0, 0, i))
		}
	}
	out := make([]DayChoice, len(days))
	for i, d := range days {
		out[i] = DayChoice{Label: d.Format(dayLabelLayout), Date: d}
	}
	return out
}

// DayLabels returns the labels of DayChoices.
func DayLabels(choices []DayChoice) []string {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}
	return labels
}

// MatchDay finds the day named by text. A bare weekday name is accepted.
func MatchDay(text string, choices []DayChoice) (DayChoice, bool) {
	text = strings.TrimSpace(text)
	for _, c := range choices {
		if strings.EqualFold(text, c.Label) {
			return c, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(text, c.Date.Weekday().String()) {
			return c, true
		}
	}
	return DayChoice{}, false
}

// BookingTime combines the resolved date with the slot hour. Without a date
// it returns now.
func BookingTime(date *time.Time, slot string, now time.Time) time.Time {
	if date == nil {
		return now
	}
	h := SlotHour(slot)
	if h < 0 {
		return *date
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, h, 0, 0, 0, date.Location())
}
