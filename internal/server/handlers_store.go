package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/models"
)

const maxUploadMemory = 32 << 20 // 32MB held in memory before spilling to disk

// handleStorePut serves PUT /store/put/{namespace}/{key}.
func (s *Server) handleStorePut(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	namespace, key, ok := namespaceAndKey(r, "/store/put/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "namespace and key are required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, header, err := r.FormFile("blob")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing multipart field \"blob\"")
		return
	}
	defer file.Close()

	persist := r.URL.Query().Get("persist")
	if persist == "" {
		persist = string(models.BackupDisk)
	}
	encoding := r.URL.Query().Get("encoding")
	mimeType := r.URL.Query().Get("mime_type")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	blob := models.NewBlob(namespace, key, header.Filename, models.OperationUpload, models.BackupType(persist), mimeType, encoding)

	start := time.Now()
	meta, err := s.queue.Upload(r.Context(), blob, file)
	running, pending := s.queue.Stats()
	s.metrics.observeQueueDepth(running, pending)
	if err != nil {
		var limitErr *models.ServerLimitException
		if errors.As(err, &limitErr) {
			s.metrics.admissionRejected.Inc()
			s.metrics.observeJobDuration("upload", "rejected", start)
			WriteJSON(w, http.StatusTooManyRequests, limitErr)
			return
		}
		s.metrics.observeJobDuration("upload", "error", start)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if meta.Status == models.JobStatusFailed {
		s.metrics.observeJobDuration("upload", "failed", start)
		WriteJSON(w, http.StatusBadRequest, meta)
		return
	}
	s.metrics.observeJobDuration("upload", "accepted", start)
	WriteJSON(w, http.StatusAccepted, meta)
}

// handleStoreGet serves GET /store/get/{namespace}/{key}.
func (s *Server) handleStoreGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	namespace, key, ok := namespaceAndKey(r, "/store/get/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "namespace and key are required")
		return
	}

	blob := models.NewBlob(namespace, key, "", models.OperationDownload, "", "", "")
	result, err := s.queue.Download(r.Context(), blob)
	if err != nil {
		var notFound *models.PathNotFoundException
		if errors.As(err, &notFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Error != "" {
		WriteError(w, http.StatusBadRequest, result.Error)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// handleStoreDelete serves DELETE /store/delete/{namespace}/{key}.
func (s *Server) handleStoreDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	namespace, key, ok := namespaceAndKey(r, "/store/delete/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "namespace and key are required")
		return
	}

	blob := models.NewBlob(namespace, key, "", models.OperationDelete, "", "", "")
	start := time.Now()
	meta, err := s.queue.Delete(r.Context(), blob)
	if err != nil {
		var notFound *models.PathNotFoundException
		if errors.As(err, &notFound) {
			s.metrics.observeJobDuration("delete", "not_found", start)
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		s.metrics.observeJobDuration("delete", "error", start)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if meta.Status == models.JobStatusFailed {
		s.metrics.observeJobDuration("delete", "failed", start)
		WriteJSON(w, http.StatusNotFound, meta)
		return
	}
	s.metrics.observeJobDuration("delete", "ok", start)
	WriteJSON(w, http.StatusOK, meta)
}

// handleStoreMetadataGet serves GET /store/metadata/get/{namespace}/{key}.
func (s *Server) handleStoreMetadataGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	namespace, key, ok := namespaceAndKey(r, "/store/metadata/get/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "namespace and key are required")
		return
	}

	meta, err := s.queue.GetJobMetadata(r.Context(), namespace, key)
	if err != nil {
		var notFound *models.PathNotFoundException
		if errors.As(err, &notFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, meta)
}
