package tracker

import (
	"slices"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

// The functions in this file never modify their input; each returns a new
// collection.

// Add appends a new, not-yet-taken medication built from data.
func Add(meds []model.Medication, data model.MedicationFormData, role model.Role, id string, now time.Time) []model.Medication {
	out := make([]model.Medication, 0, len(meds)+1)
	out = append(out, meds...)
	return append(out, model.Medication{
		ID:         id,
		Name:       data.Name,
		Dosage:     data.Dosage,
		Frequency:  data.Frequency,
		CreatedAt:  now,
		TakenToday: false,
		TakenDates: []string{},
		AddedBy:    role,
	})
}

// MarkTaken flags the medication with id as taken on today. Marking twice on
// the same day has no additional effect.
func MarkTaken(meds []model.Medication, id, today string) []model.Medication {
	return update(meds, id, func(m model.Medication) model.Medication {
		m.TakenToday = true
		if !m.TakenOn(today) {
			m.TakenDates = append(slices.Clone(m.TakenDates), today)
		}
		return m
	})
}

// Edit replaces name, dosage and frequency of the medication with id.
func Edit(meds []model.Medication, id string, data model.MedicationFormData) []model.Medication {
	return update(meds, id, func(m model.Medication) model.Medication {
		m.Name = data.Name
		m.Dosage = data.Dosage
		m.Frequency = data.Frequency
		return m
	})
}

// Delete removes the medication with id, preserving the order of the rest.
func Delete(meds []model.Medication, id string) []model.Medication {
	out := make([]model.Medication, 0, len(meds))
	for _, m := range meds {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// ResetAll returns an empty collection.
func ResetAll([]model.Medication) []model.Medication {
	return []model.Medication{}
}

// RolloverDay recomputes every takenToday flag against today and reports
// whether any flag changed.
func RolloverDay(meds []model.Medication, today string) ([]model.Medication, bool) {
	out := make([]model.Medication, len(meds))
	changed := false
	for i, m := range meds {
		taken := m.TakenOn(today)
		if taken != m.TakenToday {
			changed = true
		}
		m.TakenToday = taken
		out[i] = m
	}
	return out, changed
}

// Find returns the medication with id.
func Find(meds []model.Medication, id string) (model.Medication, bool) {
	i := slices.IndexFunc(meds, func(m model.Medication) bool { return m.ID == id })
	if i < 0 {
		return model.Medication{}, false
	}
	return meds[i], true
}

func update(meds []model.Medication, id string, fn func(model.Medication) model.Medication) []model.Medication {
	out := make([]model.Medication, len(meds))
	for i, m := range meds {
		if m.ID == id {
			m = fn(m)
		}
		out[i] = m
	}
	return out
}
