package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/medtrack/internal/model"
)

// RoleCookie holds the role chosen on this browser.
const RoleCookie = "medtrack_role"

const roleCookieMaxAge = 365 * 24 * 60 * 60

// RequestRole returns the role selected by the caller. A missing or
// unrecognised cookie means no role has been chosen yet.
func RequestRole(r *http.Request) model.Role {
	c, err := r.Cookie(RoleCookie)
	if err != nil {
		return model.RoleUnselected
	}
	role, err := model.ParseRole(c.Value)
	if err != nil {
		return model.RoleUnselected
	}
	return role
}

type roleResponse struct {
	Role     model.Role `json:"role"`
	Selected bool       `json:"selected"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// RoleHandler serves the role-selection screen's API.
type RoleHandler struct{}

func NewRoleHandler() *RoleHandler {
	return &RoleHandler{}
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	role := RequestRole(r)
	writeJSON(w, http.StatusOK, roleResponse{Role: role, Selected: role.Selected()})
}

func (h *RoleHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil || !role.Selected() {
		writeError(w, http.StatusBadRequest, "role must be patient or caretaker")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookie,
		Value:    role.String(),
		Path:     "/",
		MaxAge:   roleCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, roleResponse{Role: role, Selected: true})
}

// Clear switches back to the role-selection screen. The collection is
// untouched.
func (h *RoleHandler) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, roleResponse{Role: model.RoleUnselected})
}
