package configstore

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/api"
	"github.com/ziadkadry99/neurosphere/internal/metrics"
)

// maxBodyBytes bounds a save request.
const maxBodyBytes = 1 << 20

// response is the success body for load and save.
type response struct {
	Message   string          `json:"message"`
	Path      string          `json:"path"`
	Config    json.RawMessage `json:"config"`
	Timestamp time.Time       `json:"timestamp"`
}

// saveRequest is the POST body. Content is either a JSON string holding the
// document text or the document itself.
type saveRequest struct {
	Path    string          `json:"path"`
	Content json.RawMessage `json:"content"`
}

// RegisterRoutes mounts GET and POST /api/config.
func RegisterRoutes(r chi.Router, store *Store, m *metrics.Metrics) {
	r.Get("/api/config", handleLoad(store, m))
	r.Post("/api/config", handleSave(store, m))
}

func handleLoad(store *Store, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			fail(w, m, "load", http.StatusBadRequest, "path parameter is required")
			return
		}

		doc, err := store.Load(r.Context(), path)
		if err != nil {
			status, msg := statusFor(err)
			if status == http.StatusInternalServerError {
				store.log.Error("loading configuration", zap.String("path", path), zap.Error(err))
			}
			fail(w, m, "load", status, msg)
			return
		}

		m.ObserveConfig("load", http.StatusOK)
		api.WriteJSON(w, http.StatusOK, response{
			Message:   "Configuration loaded successfully",
			Path:      doc.Path,
			Config:    doc.Config,
			Timestamp: doc.Timestamp,
		})
	}
}

func handleSave(store *Store, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(w, m, "save", http.StatusBadRequest, "request body must be JSON with path and content")
			return
		}
		if req.Path == "" || len(req.Content) == 0 {
			fail(w, m, "save", http.StatusBadRequest, "path and content are required")
			return
		}

		content := string(req.Content)
		var text string
		if err := json.Unmarshal(req.Content, &text); err == nil {
			content = text
		}

		doc, err := store.Save(r.Context(), req.Path, content, r.RemoteAddr)
		if err != nil {
			status, msg := statusFor(err)
			if status == http.StatusInternalServerError {
				store.log.Error("saving configuration", zap.String("path", req.Path), zap.Error(err))
			}
			fail(w, m, "save", status, msg)
			return
		}

		m.ObserveConfig("save", http.StatusOK)
		api.WriteJSON(w, http.StatusOK, response{
			Message:   "Configuration saved successfully",
			Path:      doc.Path,
			Config:    doc.Config,
			Timestamp: doc.Timestamp,
		})
	}
}

// statusFor maps store errors to a status code and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "access to this path is not allowed"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "configuration file not found"
	case errors.Is(err, ErrMalformed):
		return http.StatusInternalServerError, "configuration file is not valid JSON"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func fail(w http.ResponseWriter, m *metrics.Metrics, op string, status int, msg string) {
	m.ObserveConfig(op, status)
	api.WriteError(w, status, msg)
}
