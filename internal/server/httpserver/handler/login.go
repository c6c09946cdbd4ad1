package handler

import (
	"context"
	"net/http"

	"github.com/yndnr/onelogin/internal/core/service"
)

// handleLogin handles POST /v1/users/{user_id}/logins.
//
// The request stands in for a completed login: the path names the user and
// the body carries the token of the session just created. The login hook
// then runs exactly once.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if req.Establish != nil {
		if _, _, err := h.establish(r, userID, req.Token, *req.Establish); err != nil {
			h.handleServiceError(w, r, err)
			return
		}
	}

	hook := service.NewLoginHook(h.sessions,
		service.IdentityFunc(func(context.Context) (string, error) { return userID, nil }),
		service.TokenFunc(func(context.Context) (string, error) { return req.Token, nil }),
	)
	outcome, err := hook.Fire(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, LoginResponse{
		UserID:   userID,
		Outcome:  outcome.String(),
		Verifier: h.sessions.Verifier(req.Token),
	})
}
