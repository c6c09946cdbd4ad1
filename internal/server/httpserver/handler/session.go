package handler

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/yndnr/onelogin/internal/core/domain"
)

// handleListSessions handles GET /v1/users/{user_id}/sessions.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	set, err := h.sessions.LoadValidSessions(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := ListSessionsResponse{
		UserID:   userID,
		Count:    len(set),
		Sessions: make([]SessionView, 0, len(set)),
	}
	for _, v := range set.Verifiers() {
		resp.Sessions = append(resp.Sessions, sessionView(v, set[v]))
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleGetSession handles GET /v1/users/{user_id}/sessions/{verifier}.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	verifier := r.PathValue("verifier")

	rec, ok, err := h.sessions.FindSession(r.Context(), userID, verifier)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !ok {
		h.handleServiceError(w, r, domain.ErrSessionNotFound)
		return
	}
	h.writeJSON(w, r, http.StatusOK, sessionView(verifier, rec))
}

// handleEstablish handles POST /v1/users/{user_id}/sessions.
func (h *Handler) handleEstablish(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	var req EstablishRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	verifier, rec, err := h.establish(r, userID, req.Token, req.SessionSpec)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, EstablishResponse{
		UserID:     userID,
		Verifier:   verifier,
		Expiration: rec.Expiration,
	})
}

// handleRevoke handles POST /v1/users/{user_id}/sessions/revoke.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if req.Token == "" {
		h.handleServiceError(w, r, domain.ErrMissingArgument.WithDetails("token is required"))
		return
	}

	removed, err := h.sessions.Revoke(r.Context(), r.PathValue("user_id"), req.Token)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, RevokeResponse{Removed: removed})
}

// handleKeepOnly handles POST /v1/users/{user_id}/sessions/{verifier}/keep.
func (h *Handler) handleKeepOnly(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	verifier := r.PathValue("verifier")

	if err := h.sessions.KeepOnly(r.Context(), userID, verifier); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"user_id": userID, "kept": verifier})
}

// handleDestroyAll handles DELETE /v1/users/{user_id}/sessions.
func (h *Handler) handleDestroyAll(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := h.sessions.DestroyAll(r.Context(), userID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"user_id": userID})
}

// maxTTLSeconds is the largest ttl_seconds that fits a time.Duration.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// establish records the session described by spec for rawToken.
func (h *Handler) establish(r *http.Request, userID, rawToken string, spec SessionSpec) (string, domain.Record, error) {
	if spec.TTLSeconds < 0 {
		return "", domain.Record{}, domain.ErrInvalidArgument.WithDetails("ttl_seconds must not be negative")
	}
	if spec.TTLSeconds > maxTTLSeconds {
		return "", domain.Record{}, domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("ttl_seconds must not exceed %d", maxTTLSeconds))
	}
	expiration := spec.Expiration
	if expiration == 0 && spec.TTLSeconds > 0 {
		expiration = time.Now().Add(time.Duration(spec.TTLSeconds) * time.Second).Unix()
	}

	rec, err := domain.NewRecord(expiration, spec.Metadata)
	if err != nil {
		return "", domain.Record{}, err
	}
	return h.sessions.Establish(r.Context(), userID, rawToken, rec)
}

func sessionView(verifier string, rec domain.Record) SessionView {
	return SessionView{
		Verifier:   verifier,
		Expiration: rec.Expiration,
		ExpiresAt:  time.Unix(rec.Expiration, 0).UTC(),
		Metadata:   rec.Extra,
	}
}
