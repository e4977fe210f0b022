// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/orbitops/registry-replicator/internal/middleware"
	"github.com/orbitops/registry-replicator/internal/pkg/logger"
	"github.com/orbitops/registry-replicator/internal/service"
	"github.com/orbitops/registry-replicator/internal/types"
)

const stateCookieName = "replicator_oauth_state"

// AuthHandler handles OIDC login, callback, and session endpoints.
type AuthHandler struct {
	cfg      *types.OIDCConfig
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	sessions service.SessionService
	logger   logger.Logger
}

// NewAuthHandler creates a new AuthHandler. When OIDC is disabled the handler
// is still constructed so its endpoints can answer with a clear error instead
// of a 404, but no provider discovery is performed.
func NewAuthHandler(cfg *types.OIDCConfig, sessions service.SessionService, logger logger.Logger) (*AuthHandler, error) {
	h := &AuthHandler{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}

	if !cfg.Enabled {
		return h, nil
	}

	provider, err := oidc.NewProvider(context.Background(), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %s: %w", cfg.Issuer, err)
	}

	h.provider = provider
	h.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	h.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return h, nil
}

// Login redirects the browser to the OIDC provider's authorization endpoint.
// A random state value is stored in a short-lived cookie and verified on
// callback to prevent CSRF.
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.cfg.Enabled {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "OIDC authentication is not enabled"})
		return
	}

	state, err := randomState()
	if err != nil {
		h.logger.Error("Failed to generate OAuth state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.SetCookie(stateCookieName, state, 300, "/", "", false, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback handles the OIDC provider redirect: it verifies the state cookie,
// exchanges the authorization code, validates the ID token, and creates a
// session for the authenticated user.
func (h *AuthHandler) Callback(c *gin.Context) {
	if !h.cfg.Enabled {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "OIDC authentication is not enabled"})
		return
	}

	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	token, err := h.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger.Error("Failed to exchange authorization code: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No id_token in token response"})
		return
	}

	idToken, err := h.verifier.Verify(c.Request.Context(), rawIDToken)
	if err != nil {
		h.logger.Error("Failed to verify ID token: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to verify ID token"})
		return
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ID token has no email claim"})
		return
	}

	sessionID := h.sessions.Create(claims.Email)
	c.SetCookie(middleware.SessionCookieName, sessionID, 86400, "/", "", false, true)

	h.logger.Info("User logged in: %s", claims.Email)
	c.Redirect(http.StatusFound, "/")
}

// Logout deletes the current session and clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(middleware.SessionCookieName); err == nil && sessionID != "" {
		h.sessions.Delete(sessionID)
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// UserInfo returns the email of the currently authenticated user.
func (h *AuthHandler) UserInfo(c *gin.Context) {
	if !h.cfg.Enabled {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	sessionID, err := c.Cookie(middleware.SessionCookieName)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	email, ok := h.sessions.Validate(sessionID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": true, "email": email})
}

// randomState returns a URL-safe random string for the OAuth2 state parameter.
func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
