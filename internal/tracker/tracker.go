package tracker

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/medtrack/internal/adherence"
	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	"github.com/google/uuid"
)

const rolloverCheckInterval = 1 * time.Minute

// Change actions reported to the ChangeFunc.
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionTaken    = "taken"
	ActionDeleted  = "deleted"
	ActionReset    = "reset"
	ActionRollover = "rollover"
)

// ChangeFunc is called after the collection changed. id is empty for
// collection-wide actions.
type ChangeFunc func(action, id string)

// Tracker owns the medication collection. Every operation runs to
// completion under one lock: compute the new collection, adopt it, then
// persist it. Persistence is best-effort; a failed save is returned to the
// caller but the in-memory collection keeps the new value.
type Tracker struct {
	mu       sync.Mutex
	meds     []model.Medication
	lastDay  string
	store    *store.MedicationStore
	onChange ChangeFunc
	logger   *slog.Logger

	now   func() time.Time
	newID func() string

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a tracker with an empty collection. Call Open to load the
// persisted one.
func New(ms *store.MedicationStore, onChange ChangeFunc, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		meds:     []model.Medication{},
		store:    ms,
		onChange: onChange,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Open loads the persisted collection and corrects takenToday flags left
// over from a previous day. A load failure leaves the tracker with an empty
// collection and is returned for logging. The rollover result is only
// persisted when a flag actually changed.
func (t *Tracker) Open(ctx context.Context) error {
	meds, loadErr := t.store.Load(ctx)

	t.mu.Lock()
	t.meds = meds
	t.mu.Unlock()

	if _, err := t.Rollover(ctx); err != nil {
		t.logger.Warn("persist rollover", "kind", store.Kind(err), "error", err)
	}
	return loadErr
}

// Medications returns the collection in insertion order.
func (t *Tracker) Medications() []model.Medication {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.meds)
}

// Get returns the medication with id.
func (t *Tracker) Get(id string) (model.Medication, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Find(t.meds, id)
}

// Summary returns the dashboard figures for the current collection.
func (t *Tracker) Summary() adherence.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return adherence.Summarize(t.meds, t.now())
}

// Add records a new medication created by role.
func (t *Tracker) Add(ctx context.Context, data model.MedicationFormData, role model.Role) (model.Medication, error) {
	t.mu.Lock()
	id := t.newID()
	t.meds = Add(t.meds, data, role, id, t.now())
	created := t.meds[len(t.meds)-1]
	err := t.store.Save(ctx, t.meds)
	t.mu.Unlock()

	t.notify(ActionCreated, id)
	return created, err
}

// MarkTaken marks the medication taken today. found is false, and nothing
// is persisted, when id is unknown.
func (t *Tracker) MarkTaken(ctx context.Context, id string) (med model.Medication, found bool, err error) {
	return t.apply(ctx, ActionTaken, id, func(meds []model.Medication) []model.Medication {
		return MarkTaken(meds, id, model.DateString(t.now()))
	})
}

// Edit replaces the medication's name, dosage and frequency.
func (t *Tracker) Edit(ctx context.Context, id string, data model.MedicationFormData) (med model.Medication, found bool, err error) {
	return t.apply(ctx, ActionUpdated, id, func(meds []model.Medication) []model.Medication {
		return Edit(meds, id, data)
	})
}

// Delete removes the medication. Confirmation is the caller's job.
func (t *Tracker) Delete(ctx context.Context, id string) (found bool, err error) {
	t.mu.Lock()
	if _, ok := Find(t.meds, id); !ok {
		t.mu.Unlock()
		return false, nil
	}
	t.meds = Delete(t.meds, id)
	err = t.store.Save(ctx, t.meds)
	t.mu.Unlock()

	t.notify(ActionDeleted, id)
	return true, err
}

// ResetAll empties the collection. Confirmation is the caller's job.
func (t *Tracker) ResetAll(ctx context.Context) error {
	t.mu.Lock()
	t.meds = ResetAll(t.meds)
	err := t.store.Save(ctx, t.meds)
	t.mu.Unlock()

	t.notify(ActionReset, "")
	return err
}

// Rollover recomputes takenToday for the current day and persists only if
// something changed.
func (t *Tracker) Rollover(ctx context.Context) (changed bool, err error) {
	t.mu.Lock()
	today := model.DateString(t.now())
	t.lastDay = today
	meds, changed := RolloverDay(t.meds, today)
	if changed {
		t.meds = meds
		err = t.store.Save(ctx, t.meds)
	}
	t.mu.Unlock()

	if changed {
		t.notify(ActionRollover, "")
	}
	return changed, err
}

// Start runs rollover whenever the calendar day changes while the process
// is running.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.mu.Unlock()

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(rolloverCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.checkDay(ctx)
			}
		}
	}()
}

// Stop stops the rollover loop and waits for it to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *Tracker) checkDay(ctx context.Context) {
	t.mu.Lock()
	dayChanged := model.DateString(t.now()) != t.lastDay
	t.mu.Unlock()
	if !dayChanged {
		return
	}

	changed, err := t.Rollover(ctx)
	if err != nil {
		t.logger.Warn("persist rollover", "kind", store.Kind(err), "error", err)
		return
	}
	if changed {
		t.logger.Info("day rollover reset taken flags")
	}
}

func (t *Tracker) apply(ctx context.Context, action, id string, fn func([]model.Medication) []model.Medication) (model.Medication, bool, error) {
	t.mu.Lock()
	if _, ok := Find(t.meds, id); !ok {
		t.mu.Unlock()
		return model.Medication{}, false, nil
	}
	t.meds = fn(t.meds)
	med, _ := Find(t.meds, id)
	err := t.store.Save(ctx, t.meds)
	t.mu.Unlock()

	t.notify(action, id)
	return med, true, err
}

func (t *Tracker) notify(action, id string) {
	if t.onChange != nil {
		t.onChange(action, id)
	}
}
