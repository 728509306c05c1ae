package handler

import (
	"context"
	"net/http"

	"github.com/veriscope/console/internal/auth"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// AuthHandler exposes the operator session
type AuthHandler struct {
	manager *auth.Manager
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(m *auth.Manager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		manager: m,
		logger:  log,
	}
}

// Login handles operator login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := httputil.DecodeJSON(r, &creds); err != nil {
		httputil.Error(w, err)
		return
	}

	session, err := h.manager.Login(r.Context(), creds)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// Logout ends the session. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.manager.Logout(r.Context()))
}

// Session reports the current session, verifying it on first use
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.manager.Initialize(context.WithoutCancel(r.Context())))
}
