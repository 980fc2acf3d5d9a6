package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/medtrack/internal/adherence"
	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/store"
	"github.com/dukerupert/medtrack/internal/tracker"
)

type MedicationHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewMedicationHandler(t *tracker.Tracker, logger *slog.Logger) *MedicationHandler {
	return &MedicationHandler{tracker: t, logger: logger}
}

type medicationRequest struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency int    `json:"frequency"`
}

// formData trims and validates a create or edit request.
func (req medicationRequest) formData() (model.MedicationFormData, string) {
	data := model.MedicationFormData{
		Name:      strings.TrimSpace(req.Name),
		Dosage:    strings.TrimSpace(req.Dosage),
		Frequency: req.Frequency,
	}
	if data.Name == "" {
		return data, "name is required"
	}
	if data.Dosage == "" {
		return data, "dosage is required"
	}
	if data.Frequency == 0 {
		data.Frequency = 1
	}
	if data.Frequency < 1 {
		return data, "frequency must be at least 1"
	}
	return data, ""
}

func decodeMedication(w http.ResponseWriter, r *http.Request) (model.MedicationFormData, bool) {
	var req medicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return model.MedicationFormData{}, false
	}
	data, msg := req.formData()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return model.MedicationFormData{}, false
	}
	return data, true
}

// medicationView is a medication as displayed on a dashboard.
type medicationView struct {
	model.Medication
	FrequencyText string `json:"frequencyText"`
}

type dashboardResponse struct {
	Role        model.Role        `json:"role"`
	Medications []medicationView  `json:"medications"`
	Summary     adherence.Summary `json:"summary"`
}

// persistFailed logs a save failure. The in-memory change stands and the
// request still succeeds.
func (h *MedicationHandler) persistFailed(r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), "persist medications", "op", op, "kind", store.Kind(err), "error", err)
}

func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Medications())
}

func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	role := RequestRole(r)
	if !role.Selected() {
		writeError(w, http.StatusBadRequest, "select a role first")
		return
	}

	data, ok := decodeMedication(w, r)
	if !ok {
		return
	}

	med, err := h.tracker.Add(r.Context(), data, role)
	if err != nil {
		h.persistFailed(r, "create", err)
	}
	writeJSON(w, http.StatusCreated, med)
}

func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.tracker.Get(id); !ok {
		writeError(w, http.StatusNotFound, "medication not found")
		return
	}

	data, ok := decodeMedication(w, r)
	if !ok {
		return
	}

	med, found, err := h.tracker.Edit(r.Context(), id, data)
	if !found {
		writeError(w, http.StatusNotFound, "medication not found")
		return
	}
	if err != nil {
		h.persistFailed(r, "update", err)
	}
	writeJSON(w, http.StatusOK, med)
}

func (h *MedicationHandler) MarkTaken(w http.ResponseWriter, r *http.Request) {
	med, found, err := h.tracker.MarkTaken(r.Context(), r.PathValue("id"))
	if !found {
		writeError(w, http.StatusNotFound, "medication not found")
		return
	}
	if err != nil {
		h.persistFailed(r, "mark_taken", err)
	}
	writeJSON(w, http.StatusOK, med)
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, http.StatusPreconditionRequired, "deleting a medication requires confirm=true")
		return
	}

	found, err := h.tracker.Delete(r.Context(), r.PathValue("id"))
	if !found {
		writeError(w, http.StatusNotFound, "medication not found")
		return
	}
	if err != nil {
		h.persistFailed(r, "delete", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset removes every medication and its history.
func (h *MedicationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, http.StatusPreconditionRequired, "resetting all data requires confirm=true")
		return
	}

	if err := h.tracker.ResetAll(r.Context()); err != nil {
		h.persistFailed(r, "reset", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns everything the patient and caretaker views render.
func (h *MedicationHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	meds := h.tracker.Medications()
	views := make([]medicationView, len(meds))
	for i, m := range meds {
		views[i] = medicationView{Medication: m, FrequencyText: model.FrequencyText(m.Frequency)}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Role:        RequestRole(r),
		Medications: views,
		Summary:     h.tracker.Summary(),
	})
}
