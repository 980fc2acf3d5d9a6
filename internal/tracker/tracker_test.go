package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/medtrack/internal/database"
	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
)

type change struct {
	action, id string
}

type recorder struct {
	mu      sync.Mutex
	changes []change
}

func (r *recorder) record(action, id string) {
	r.mu.Lock()
	r.changes = append(r.changes, change{action, id})
	r.mu.Unlock()
}

func (r *recorder) all() []change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]change(nil), r.changes...)
}

// countingBackend wraps a Backend, counting writes and optionally failing them.
type countingBackend struct {
	store.Backend
	mu     sync.Mutex
	puts   int
	putErr error
}

func (b *countingBackend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.puts++
	err := b.putErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Backend.Put(ctx, key, value)
}

func (b *countingBackend) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

type testEnv struct {
	tracker *Tracker
	ms      *store.MedicationStore
	backend *countingBackend
	rec     *recorder
	now     time.Time
}

func setupTracker(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		backend: &countingBackend{Backend: store.NewKVStore(db)},
		rec:     &recorder{},
		now:     time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC),
	}
	env.ms = store.NewMedicationStore(env.backend, nil)
	env.tracker = New(env.ms, env.rec.record, slog.Default())

	env.tracker.now = func() time.Time { return env.now }
	n := 0
	env.tracker.newID = func() string {
		n++
		return fmt.Sprintf("med-%d", n)
	}
	return env
}

func (e *testEnv) persisted(t *testing.T) []model.Medication {
	t.Helper()
	meds, err := e.ms.Load(context.Background())
	if err != nil {
		t.Fatalf("load persisted: %v", err)
	}
	return meds
}

func TestTrackerAddPersists(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	med, err := env.tracker.Add(ctx, model.MedicationFormData{Name: "Aspirin", Dosage: "100mg", Frequency: 1}, model.RolePatient)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if med.ID != "med-1" {
		t.Errorf("id = %q, want %q", med.ID, "med-1")
	}
	if !med.CreatedAt.Equal(env.now) {
		t.Errorf("createdAt = %v, want %v", med.CreatedAt, env.now)
	}

	persisted := env.persisted(t)
	if len(persisted) != 1 || persisted[0].Name != "Aspirin" || persisted[0].AddedBy != model.RolePatient {
		t.Errorf("persisted = %+v", persisted)
	}
	if got := env.rec.all(); len(got) != 1 || got[0] != (change{ActionCreated, "med-1"}) {
		t.Errorf("changes = %v", got)
	}
}

func TestTrackerAddKeepsInsertionOrder(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		env.tracker.Add(ctx, model.MedicationFormData{Name: name, Dosage: "1mg", Frequency: 1}, model.RoleCaretaker)
	}

	meds := env.tracker.Medications()
	if len(meds) != 3 || meds[0].Name != "A" || meds[1].Name != "B" || meds[2].Name != "C" {
		t.Errorf("meds = %+v", meds)
	}
}

func TestTrackerMarkTaken(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	med, _ := env.tracker.Add(ctx, model.MedicationFormData{Name: "Aspirin", Dosage: "100mg", Frequency: 2}, model.RolePatient)
	if s := env.tracker.Summary(); s.DailyAdherence != 0 {
		t.Errorf("daily before = %d, want 0", s.DailyAdherence)
	}

	taken, found, err := env.tracker.MarkTaken(ctx, med.ID)
	if err != nil {
		t.Fatalf("mark taken: %v", err)
	}
	if !found {
		t.Fatal("expected found")
	}
	if !taken.TakenToday || len(taken.TakenDates) != 1 || taken.TakenDates[0] != "2026-02-05" {
		t.Errorf("taken = %+v", taken)
	}
	if s := env.tracker.Summary(); s.DailyAdherence != 100 {
		t.Errorf("daily after = %d, want 100", s.DailyAdherence)
	}

	persisted := env.persisted(t)
	if !persisted[0].TakenToday {
		t.Error("persisted record not taken")
	}
}

func TestTrackerMissingIDDoesNotPersist(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RolePatient)
	before := env.backend.putCount()

	if _, found, err := env.tracker.MarkTaken(ctx, "missing"); found || err != nil {
		t.Errorf("MarkTaken missing: found=%v err=%v", found, err)
	}
	if _, found, err := env.tracker.Edit(ctx, "missing", model.MedicationFormData{Name: "X"}); found || err != nil {
		t.Errorf("Edit missing: found=%v err=%v", found, err)
	}
	if found, err := env.tracker.Delete(ctx, "missing"); found || err != nil {
		t.Errorf("Delete missing: found=%v err=%v", found, err)
	}

	if got := env.backend.putCount(); got != before {
		t.Errorf("puts = %d, want %d", got, before)
	}
	if got := len(env.tracker.Medications()); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}

func TestTrackerEdit(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	med, _ := env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RoleCaretaker)
	edited, found, err := env.tracker.Edit(ctx, med.ID, model.MedicationFormData{Name: "B", Dosage: "2mg", Frequency: 3})
	if err != nil || !found {
		t.Fatalf("edit: found=%v err=%v", found, err)
	}
	if edited.Name != "B" || edited.Dosage != "2mg" || edited.Frequency != 3 || edited.AddedBy != model.RoleCaretaker {
		t.Errorf("edited = %+v", edited)
	}
	if p := env.persisted(t); p[0].Name != "B" {
		t.Errorf("persisted name = %q, want %q", p[0].Name, "B")
	}
}

func TestTrackerDeleteAndReset(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	a, _ := env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RolePatient)
	env.tracker.Add(ctx, model.MedicationFormData{Name: "B", Dosage: "1mg", Frequency: 1}, model.RolePatient)

	found, err := env.tracker.Delete(ctx, a.ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if p := env.persisted(t); len(p) != 1 || p[0].Name != "B" {
		t.Errorf("persisted after delete = %+v", p)
	}

	if err := env.tracker.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := len(env.tracker.Medications()); got != 0 {
		t.Errorf("len after reset = %d, want 0", got)
	}
	if p := env.persisted(t); len(p) != 0 {
		t.Errorf("persisted after reset = %+v", p)
	}

	changes := env.rec.all()
	if last := changes[len(changes)-1]; last != (change{ActionReset, ""}) {
		t.Errorf("last change = %v", last)
	}
}

func TestTrackerSaveFailureKeepsState(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()
	env.backend.putErr = errors.New("quota exceeded")

	med, err := env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RolePatient)
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if _, ok := env.tracker.Get(med.ID); !ok {
		t.Error("in-memory collection lost the new record")
	}
	if len(env.rec.all()) != 1 {
		t.Error("change should still be reported")
	}
}

func TestTrackerOpenRollsOverStaleFlags(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	stale := []model.Medication{
		{ID: "a", Name: "A", TakenToday: true, TakenDates: []string{"2026-02-04"}, AddedBy: model.RolePatient},
		{ID: "b", Name: "B", TakenToday: false, TakenDates: []string{"2026-02-05"}, AddedBy: model.RolePatient},
	}
	if err := env.ms.Save(ctx, stale); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := env.backend.putCount()

	if err := env.tracker.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	meds := env.tracker.Medications()
	if meds[0].TakenToday || !meds[1].TakenToday {
		t.Errorf("flags not recomputed: %+v", meds)
	}
	if got := env.backend.putCount(); got != before+1 {
		t.Errorf("puts = %d, want %d", got, before+1)
	}
	if p := env.persisted(t); p[0].TakenToday || !p[1].TakenToday {
		t.Errorf("persisted flags not recomputed: %+v", p)
	}
}

func TestTrackerOpenSkipsWriteWhenCurrent(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	current := []model.Medication{
		{ID: "a", Name: "A", TakenToday: true, TakenDates: []string{"2026-02-05"}, AddedBy: model.RolePatient},
	}
	env.ms.Save(ctx, current)
	before := env.backend.putCount()

	if err := env.tracker.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := env.backend.putCount(); got != before {
		t.Errorf("puts = %d, want %d (no write)", got, before)
	}
	if len(env.rec.all()) != 0 {
		t.Errorf("changes = %v, want none", env.rec.all())
	}
}

func TestTrackerOpenCorruptStartsEmpty(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	env.backend.Backend.Put(ctx, store.MedicationsKey, []byte("{not json"))

	err := env.tracker.Open(ctx)
	if !errors.Is(err, store.ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
	if got := env.tracker.Medications(); len(got) != 0 {
		t.Errorf("meds = %+v, want empty", got)
	}

	// The tracker stays usable.
	if _, err := env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RolePatient); err != nil {
		t.Errorf("add after corrupt load: %v", err)
	}
}

func TestTrackerCheckDay(t *testing.T) {
	env := setupTracker(t)
	ctx := context.Background()

	med, _ := env.tracker.Add(ctx, model.MedicationFormData{Name: "A", Dosage: "1mg", Frequency: 1}, model.RolePatient)
	env.tracker.Rollover(ctx)
	env.tracker.MarkTaken(ctx, med.ID)

	// Same day: nothing happens.
	env.tracker.checkDay(ctx)
	if m, _ := env.tracker.Get(med.ID); !m.TakenToday {
		t.Fatal("flag reset on the same day")
	}

	env.now = env.now.Add(24 * time.Hour)
	env.tracker.checkDay(ctx)

	m, _ := env.tracker.Get(med.ID)
	if m.TakenToday {
		t.Error("flag should reset on a new day")
	}
	if !m.TakenOn("2026-02-05") {
		t.Error("history lost")
	}
	if s := env.tracker.Summary(); s.DailyAdherence != 0 || s.WeeklyAdherence != 14 {
		t.Errorf("summary = %+v", s)
	}
}

func TestTrackerStartStop(t *testing.T) {
	env := setupTracker(t)

	env.tracker.Start(context.Background())
	done := make(chan struct{})
	go func() {
		env.tracker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
}

func TestTrackerStopWithoutStart(t *testing.T) {
	env := setupTracker(t)
	// Should not block or panic
	env.tracker.Stop()
}
