package handlers

import (
	"net/http"

	"github.com/BirdScout/bird-scout-backend/config"
	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	userservice "github.com/BirdScout/bird-scout-backend/models/user/service"
	"github.com/gin-gonic/gin"
	"github.com/supabase-community/supabase-go"
)

// AuthHandler handles sign-in, sign-out, and token refresh.
type AuthHandler struct {
	supabase *supabase.Client
	profiles *userservice.ProfileService
	config   *config.Config
}

func NewAuthHandler(supabaseClient *supabase.Client, profiles *userservice.ProfileService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		supabase: supabaseClient,
		profiles: profiles,
		config:   cfg,
	}
}

// SignInHandler exchanges an identity-provider refresh token for a local
// session. The exchange validates the credential against the provider; the
// identity fields come from the refreshed session, never from the client.
func (h *AuthHandler) SignInHandler(c *gin.Context) {
	log := logger.GetLogger()

	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSONOrError(c, &req) {
		return
	}

	idpSession, err := h.supabase.Auth.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnw("Identity provider rejected credential", "error", err)
		_ = c.Error(apperrors.AuthenticationFailed("Sign-in failed"))
		return
	}

	name, _ := idpSession.User.UserMetadata["name"].(string)
	session, err := h.profiles.SignIn(c.Request.Context(), userservice.ExternalCredential{
		ExternalID: idpSession.User.ID.String(),
		Email:      idpSession.User.Email,
		Name:       name,
		Phone:      idpSession.User.Phone,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"profile":    session.Profile,
		// Returned so the client can refresh without re-authenticating.
		"refresh_token": idpSession.RefreshToken,
	})
}

// RefreshTokenHandler refreshes the identity-provider session.
func (h *AuthHandler) RefreshTokenHandler(c *gin.Context) {
	log := logger.GetLogger()

	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSONOrError(c, &req) {
		return
	}

	session, err := h.supabase.Auth.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnw("Failed to refresh token", "error", err)
		_ = c.Error(apperrors.AuthenticationFailed("Failed to refresh token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"expires_in":    session.ExpiresIn,
		"token_type":    "bearer",
	})
}

// SignOutHandler ends the local session.
func (h *AuthHandler) SignOutHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.profiles.SignOut(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}
