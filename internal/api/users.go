package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/inventory-core/internal/inventory"
)

// handleListUsers returns every user with the devices they currently hold.
//
// Query parameters:
//   - name: exact name match; the result holds at most one user
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusOK, s.registry.ListUsers(r.Context()))
		return
	}

	users := []inventory.User{}
	user, err := s.registry.FindUserByName(r.Context(), name)
	switch {
	case err == nil:
		users = append(users, *user)
	case !errors.Is(err, inventory.ErrNotFound):
		s.writeRegistryError(w, r, err, "find user")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser registers a new user.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in inventory.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := s.registry.RegisterUser(r.Context(), in)
	if err != nil {
		s.writeRegistryError(w, r, err, "register user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.registry.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser renames a user.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch inventory.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	user, err := s.registry.UpdateUser(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeRegistryError(w, r, err, "update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleListUserDevices returns the devices a user holds, in take order.
func (s *Server) handleListUserDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevicesForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "list user devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}
