package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/inventory-core/internal/inventory"
)

// assignmentRequest is the body of take and return requests.
type assignmentRequest struct {
	UserID string `json:"userId"`
}

// handleListDevices returns every device in registration order.
//
// Query parameters:
//   - name: exact name match; the result holds at most one device
//   - status: only devices in this assignment state (unused, in_use, in_storage)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var devices []inventory.Device
	if name := r.URL.Query().Get("name"); name != "" {
		devices = []inventory.Device{}
		dev, err := s.registry.FindDeviceByName(r.Context(), name)
		switch {
		case err == nil:
			devices = append(devices, *dev)
		case !errors.Is(err, inventory.ErrNotFound):
			s.writeRegistryError(w, r, err, "find device")
			return
		}
	} else {
		devices = s.registry.ListDevices(r.Context())
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !validStatus(inventory.Status(status)) {
			writeBadRequest(w, "unknown status: "+status)
			return
		}
		filtered := make([]inventory.Device, 0, len(devices))
		for _, d := range devices {
			if d.AssignedTo == inventory.Status(status) {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in inventory.DeviceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	dev, err := s.registry.RegisterDevice(r.Context(), in)
	if err != nil {
		s.writeRegistryError(w, r, err, "register device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleUpdateDevice applies a partial update. Fields absent from the body
// keep their current value.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch inventory.DevicePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	dev, err := s.registry.UpdateDevice(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeRegistryError(w, r, err, "update device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device.
//
// A held device is refused unless force=true, in which case it is returned
// to storage first. The device's image blob, if any, is deleted too.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "force must be a boolean")
			return
		}
		force = b
	}

	dev, err := s.registry.RemoveDevice(r.Context(), chi.URLParam(r, "id"), force)
	if err != nil {
		s.writeRegistryError(w, r, err, "remove device")
		return
	}

	if dev.ImagePath != "" {
		s.releaseBlob(dev.ImagePath)
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleTakeDevice assigns the device to the user named in the body.
func (s *Server) handleTakeDevice(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "userId is required")
		return
	}

	dev, err := s.registry.Take(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.writeRegistryError(w, r, err, "take device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleReturnDevice hands the device back to storage.
func (s *Server) handleReturnDevice(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "userId is required")
		return
	}

	dev, err := s.registry.Return(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.writeRegistryError(w, r, err, "return device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeviceStats returns registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}

func validStatus(status inventory.Status) bool {
	for _, s := range inventory.AllStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
