package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/models"
	"github.com/mailstash/mailstash/services"
	"github.com/mailstash/mailstash/utils"
)

// TokenController exposes the Google credential surface: a manual refresh and
// a status probe the frontend polls to decide whether to prompt re-auth.
type TokenController struct {
	db     *gorm.DB
	tokens *services.TokenService
}

// NewTokenController creates a new controller instance.
func NewTokenController(db *gorm.DB, tokens *services.TokenService) *TokenController {
	return &TokenController{db: db, tokens: tokens}
}

// Refresh forces a refresh-token exchange regardless of the current expiry.
func (c *TokenController) Refresh(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	var user models.User
	err := c.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40010, "User not found. Please sign in again.")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load account")
		return
	}

	if _, err := c.tokens.Refresh(ctx.Request.Context(), &user); err != nil {
		switch {
		case errors.Is(err, services.ErrNoRefreshToken):
			utils.Error(ctx, http.StatusBadRequest, 40009, "No refresh token found. Please sign out and sign in again.")
		case errors.Is(err, services.ErrRefreshFailed):
			utils.Sugar.Warnf("token refresh failed for %s: %v", email, err)
			utils.Error(ctx, http.StatusBadRequest, 40014, "Failed to refresh token. Please sign out and sign in again.")
		default:
			utils.Sugar.Errorf("token refresh error for %s: %v", email, err)
			utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to refresh token")
		}
		return
	}

	utils.Success(ctx, gin.H{
		"success":   true,
		"expiresAt": user.TokenExpiresAt,
	})
}

// Status reports the stored credential state without touching Google.
func (c *TokenController) Status(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	var user models.User
	err := c.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(ctx, services.TokenStatus{IsExpired: true})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load account")
		return
	}

	utils.Success(ctx, c.tokens.Status(&user, time.Now()))
}
