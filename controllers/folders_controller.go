package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/models"
	"github.com/mailstash/mailstash/services"
	"github.com/mailstash/mailstash/utils"
)

// FoldersController lists the user's selectable mailbox folders.
type FoldersController struct {
	db         *gorm.DB
	tokens     *services.TokenService
	newMailbox services.MailboxFactory
}

// NewFoldersController creates a new controller instance.
func NewFoldersController(db *gorm.DB, tokens *services.TokenService, newMailbox services.MailboxFactory) *FoldersController {
	return &FoldersController{db: db, tokens: tokens, newMailbox: newMailbox}
}

// List fetches the Gmail labels for the signed-in user, filtered to the ones
// that make sense as scan targets and ordered for the folder picker.
func (c *FoldersController) List(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()

	var user models.User
	err := c.db.WithContext(reqCtx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40010, "User not found. Please sign in again.")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load account")
		return
	}

	accessToken, err := c.tokens.EnsureAccessToken(reqCtx, &user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoAccessToken):
			utils.Error(ctx, http.StatusUnauthorized, 40110, "No access token found. Please sign out and sign in again to reconnect your Gmail account.")
		case errors.Is(err, services.ErrNoRefreshToken):
			utils.Error(ctx, http.StatusUnauthorized, 40111, "Access token expired and no refresh token is available. Please sign out and sign in again.")
		case errors.Is(err, services.ErrRefreshFailed):
			utils.Error(ctx, http.StatusUnauthorized, 40112, "Token expired and refresh failed. Please sign out and sign in again.")
		default:
			utils.Sugar.Errorf("credential check failed for %s: %v", email, err)
			utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to validate credentials")
		}
		return
	}

	mbox, err := c.newMailbox(reqCtx, accessToken)
	if err != nil {
		utils.Sugar.Errorf("failed to build gmail client for %s: %v", email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "Failed to connect to Gmail. Please try again.")
		return
	}

	if _, err := mbox.Profile(reqCtx); err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "Gmail API access failed. Please sign out and sign in again.")
		return
	}

	folders, err := mbox.Labels(reqCtx)
	if err != nil {
		utils.Sugar.Errorf("failed to list labels for %s: %v", email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to list mailbox folders")
		return
	}

	utils.Success(ctx, gin.H{
		"success":      true,
		"folders":      folders,
		"totalFolders": len(folders),
	})
}
