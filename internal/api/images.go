package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/inventory-core/internal/blobstore"
	"github.com/nerrad567/inventory-core/internal/viewer"
)

// imageFormField is the multipart field carrying the uploaded image.
const imageFormField = "image"

// defaultMaxUploadBytes applies when no upload limit is configured.
const defaultMaxUploadBytes = 10 << 20

func (s *Server) maxUploadBytes() int64 {
	if s.cfg.MaxUploadMB <= 0 {
		return defaultMaxUploadBytes
	}
	return int64(s.cfg.MaxUploadMB) << 20
}

// handleUploadImage stores a multipart image and attaches it to the device.
//
// Expects multipart/form-data with an "image" field. The device is checked
// before the upload is stored so that a request for an unknown device
// leaves nothing behind. A replaced image's blob is deleted.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		s.writeRegistryError(w, r, err, "attach image")
		return
	}

	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
				"image exceeds "+strconv.FormatInt(s.maxUploadBytes(), 10)+" bytes")
			return
		}
		writeBadRequest(w, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // Temp file cleanup

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		writeBadRequest(w, "missing '"+imageFormField+"' file in form data")
		return
	}
	defer file.Close()

	ref, err := s.blobs.Save(file, header.Filename)
	if err != nil {
		s.writeBlobError(w, err, "store image")
		return
	}

	previous, err := s.registry.AttachImage(r.Context(), id, ref)
	if err != nil {
		// Device removed between the check and the attach.
		s.releaseBlob(ref)
		s.writeRegistryError(w, r, err, "attach image")
		return
	}
	if previous != "" && previous != ref {
		s.releaseBlob(previous)
	}

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeRegistryError(w, r, err, "attach image")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleGetImage streams the device's image with its detected content type.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	ref, err := s.registry.ResolveImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "resolve image")
		return
	}
	s.serveBlob(w, r, ref)
}

// handleImagePage renders an HTML page showing the device image.
func (s *Server) handleImagePage(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeRegistryError(w, r, err, "render image page")
		return
	}
	ref, err := s.registry.ResolveImage(r.Context(), dev.ID)
	if err != nil {
		s.writeRegistryError(w, r, err, "render image page")
		return
	}

	page := viewer.Page{
		DeviceID:     dev.ID,
		Name:         dev.Name,
		SerialNumber: dev.SerialNumber,
		Status:       string(dev.AssignedTo),
		ImageURL:     imagesPrefix + "/" + ref,
		AssetBase:    viewerPrefix,
	}
	if blob, err := s.blobs.Open(ref); err == nil {
		page.ContentType = blob.ContentType
		blob.Close()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := viewer.Render(w, page); err != nil {
		s.logger.Error("image page render failed", "device_id", dev.ID, "error", err)
	}
}

// handleServeBlob serves a stored blob by reference.
func (s *Server) handleServeBlob(w http.ResponseWriter, r *http.Request) {
	s.serveBlob(w, r, chi.URLParam(r, "ref"))
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, ref string) {
	blob, err := s.blobs.Open(ref)
	if err != nil {
		s.writeBlobError(w, err, "open image")
		return
	}
	defer blob.Close()

	info, err := blob.Stat()
	if err != nil {
		s.writeBlobError(w, err, "open image")
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, ref, info.ModTime(), blob)
}

// releaseBlob deletes a blob that is no longer referenced. Failures are
// logged only; an orphaned file is harmless.
func (s *Server) releaseBlob(ref string) {
	if !s.blobs.Exists(ref) {
		s.logger.Debug("unreferenced image already gone", "ref", ref)
		return
	}
	if err := s.blobs.Delete(ref); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Warn("failed to delete unreferenced image", "ref", ref, "error", err)
	}
}
