package model

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout is the calendar-day format used for taken dates.
const DateLayout = "2006-01-02"

// Medication is a single tracked medication. JSON field names match the
// persisted blob layout.
type Medication struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Dosage     string    `json:"dosage"`
	Frequency  int       `json:"frequency"`
	CreatedAt  time.Time `json:"createdAt"`
	TakenToday bool      `json:"takenToday"`
	TakenDates []string  `json:"takenDates"`
	AddedBy    Role      `json:"addedBy"`
}

// MedicationFormData is the add/edit intent submitted by a form.
type MedicationFormData struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency int    `json:"frequency"`
}

// TakenOn reports whether the medication was marked taken on day (YYYY-MM-DD).
func (m Medication) TakenOn(day string) bool {
	return slices.Contains(m.TakenDates, day)
}

// DateString formats t as a calendar day in t's own location.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

var frequencyText = map[int]string{
	1: "Once daily",
	2: "Twice daily",
	3: "Three times daily",
	4: "Four times daily",
}

// FrequencyText returns a human label for a doses-per-day count.
func FrequencyText(n int) string {
	if s, ok := frequencyText[n]; ok {
		return s
	}
	return fmt.Sprintf("%d times daily", n)
}
