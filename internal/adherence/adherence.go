package adherence

import (
	"math"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

// WindowDays is the size of the trailing weekly window.
const WindowDays = 7

// Summary holds the figures shown on a dashboard.
type Summary struct {
	DailyAdherence  int `json:"daily_adherence"`
	WeeklyAdherence int `json:"weekly_adherence"`
	TakenToday      int `json:"taken_today"`
	Total           int `json:"total"`
	Remaining       int `json:"remaining"`
}

// Daily returns the percentage of medications whose takenToday flag is set.
// Frequency is not considered: one mark counts as a fully adhered day.
func Daily(meds []model.Medication) int {
	if len(meds) == 0 {
		return 0
	}
	return percent(takenToday(meds), len(meds))
}

// Weekly returns the percentage of (medication, day) pairs taken over the
// trailing window ending on now's calendar day. Every medication counts as
// one expected dose per day.
func Weekly(meds []model.Medication, now time.Time) int {
	if len(meds) == 0 {
		return 0
	}

	taken := 0
	for _, day := range Window(now) {
		for _, m := range meds {
			if m.TakenOn(day) {
				taken++
			}
		}
	}
	return percent(taken, len(meds)*WindowDays)
}

// Window returns the day strings of the trailing window, today first.
func Window(now time.Time) []string {
	days := make([]string, 0, WindowDays)
	for i := 0; i < WindowDays; i++ {
		days = append(days, model.DateString(now.AddDate(0, 0, -i)))
	}
	return days
}

// Summarize computes every dashboard figure at once.
func Summarize(meds []model.Medication, now time.Time) Summary {
	taken := takenToday(meds)
	return Summary{
		DailyAdherence:  Daily(meds),
		WeeklyAdherence: Weekly(meds, now),
		TakenToday:      taken,
		Total:           len(meds),
		Remaining:       len(meds) - taken,
	}
}

func takenToday(meds []model.Medication) int {
	n := 0
	for _, m := range meds {
		if m.TakenToday {
			n++
		}
	}
	return n
}

func percent(n, d int) int {
	return int(math.Round(100 * float64(n) / float64(d)))
}
