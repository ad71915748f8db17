package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/kvauth"
	"github.com/MrEthical07/kvauth/internal/logger"
)

type registerResponse struct {
	UserID string `json:"user_id"`
}

type loginRequest struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req kvauth.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logger.FromRequest(r).Info().Str("user_id", id).Msg("user registered")
	writeJSON(w, http.StatusCreated, registerResponse{UserID: id})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		token string
		err   error
	)
	switch {
	case req.UserID != "":
		token, err = h.engine.Login(r.Context(), req.UserID, req.Password)
	case req.Username != "":
		token, err = h.engine.LoginByUsername(r.Context(), req.Username, req.Password)
	default:
		h.writeError(w, r, kvauth.ErrValidation)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{SessionID: token})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, id kvauth.Identity) {
	acc, err := h.engine.GetAccount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, id kvauth.Identity) {
	var fields map[string]string
	if !decodeJSON(w, r, &fields) {
		return
	}

	patch, err := kvauth.PatchFromFields(fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	acc, err := h.engine.UpdateAccount(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, id kvauth.Identity) {
	if err := h.engine.Logout(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, id kvauth.Identity) {
	if err := h.engine.DeleteAccount(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	logger.FromRequest(r).Info().Str("user_id", id.UserID).Msg("user deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Latency: latency.Round(time.Microsecond).String()})
}
