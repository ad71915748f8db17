// Package httpapi exposes the kvauth engine over HTTP with chi.
//
// It only decodes requests, calls Engine methods and encodes results; all
// account and session rules live in the engine.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/kvauth"
	"github.com/MrEthical07/kvauth/internal/logger"
	"github.com/MrEthical07/kvauth/metrics/export/prometheus"
)

const maxBodyBytes = 1 << 20

// Handler serves the account and session routes.
type Handler struct {
	engine  *kvauth.Engine
	metrics http.Handler
	logger  *logger.Logger
}

// NewHandler wires engine and its Prometheus exporter behind HTTP routes.
func NewHandler(engine *kvauth.Engine, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	log.Info().Msg("http handler created")
	return &Handler{
		engine:  engine,
		metrics: prometheus.NewPrometheusExporter(engine).Handler(),
		logger:  log,
	}
}

var errorStatusMap = map[error]int{
	kvauth.ErrValidation:        http.StatusBadRequest,
	kvauth.ErrDuplicateAccount:  http.StatusConflict,
	kvauth.ErrAccountNotFound:   http.StatusUnauthorized,
	kvauth.ErrInvalidCredential: http.StatusUnauthorized,
	kvauth.ErrUnauthenticated:   http.StatusUnauthorized,
	kvauth.ErrCorruptCredential: http.StatusInternalServerError,
	kvauth.ErrStorageFailure:    http.StatusServiceUnavailable,
	kvauth.ErrEngineNotReady:    http.StatusServiceUnavailable,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	log := logger.FromRequest(r)
	if status >= http.StatusInternalServerError {
		log.Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: kvauth.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logger.FromRequest(r).Debug().Err(err).Msg("invalid JSON was passed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}
