package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/medtrack/internal/model"
)

// MedicationsKey is the single key holding the whole collection.
const MedicationsKey = "medication-management-data"

// MedicationStore persists the full medication collection as one blob.
// The collection is the unit of persistence; there is no per-record access.
type MedicationStore struct {
	backend Backend
	sealer  *Sealer
}

// NewMedicationStore returns a store over backend. sealer may be nil, in
// which case the blob is stored as plain JSON.
func NewMedicationStore(backend Backend, sealer *Sealer) *MedicationStore {
	return &MedicationStore{backend: backend, sealer: sealer}
}

// Load reads the collection. It always returns a usable (possibly empty)
// collection; a non-nil error reports why the stored value was discarded.
// An absent key is not an error.
func (s *MedicationStore) Load(ctx context.Context) ([]model.Medication, error) {
	empty := []model.Medication{}

	data, err := s.backend.Get(ctx, MedicationsKey)
	if errors.Is(err, ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("%w: load medications: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return empty, nil
	}

	if s.sealer != nil {
		data, err = s.sealer.Open(data)
		if err != nil {
			return empty, fmt.Errorf("%w: open medications: %v", ErrCorrupt, err)
		}
	}

	var meds []model.Medication
	if err := json.Unmarshal(data, &meds); err != nil {
		return empty, fmt.Errorf("%w: decode medications: %v", ErrCorrupt, err)
	}
	if meds == nil {
		return empty, nil
	}
	return meds, nil
}

// Save overwrites the stored collection. Callers must not assume
// durability when it returns an error.
func (s *MedicationStore) Save(ctx context.Context, meds []model.Medication) error {
	if meds == nil {
		meds = []model.Medication{}
	}

	data, err := json.Marshal(meds)
	if err != nil {
		return fmt.Errorf("encode medications: %w", err)
	}

	if s.sealer != nil {
		data, err = s.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("seal medications: %w", err)
		}
	}

	if err := s.backend.Put(ctx, MedicationsKey, data); err != nil {
		return fmt.Errorf("%w: save medications: %v", ErrUnavailable, err)
	}
	return nil
}
