package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/models"
	"github.com/mailstash/mailstash/utils"
)

// PreferencesController reads and writes the per-user scan criteria.
type PreferencesController struct {
	db *gorm.DB
}

// NewPreferencesController creates a new controller instance.
func NewPreferencesController(db *gorm.DB) *PreferencesController {
	return &PreferencesController{db: db}
}

type preferencesPayload struct {
	FileType       string `json:"fileType"`
	FileNameFilter string `json:"fileNameFilter"`
	DateFrom       string `json:"dateFrom"`
	GmailFolder    string `json:"gmailFolder"`
}

// Get returns the stored preferences, or an empty object when the user has
// never saved any.
func (c *PreferencesController) Get(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	var user models.User
	err := c.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(ctx, gin.H{})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to load preferences")
		return
	}

	utils.Success(ctx, gin.H{
		"fileType":       user.FileType,
		"fileNameFilter": user.FileNameFilter,
		"dateFrom":       user.DateFrom,
		"gmailFolder":    user.GmailFolder,
	})
}

// Save validates and upserts the scan criteria for the authenticated user.
// fileNameFilter is the only optional field; saving it empty clears it.
func (c *PreferencesController) Save(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	var payload preferencesPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request body")
		return
	}

	if payload.FileType == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "fileType is required")
		return
	}
	if payload.DateFrom == "" {
		utils.Error(ctx, http.StatusBadRequest, 40006, "dateFrom is required")
		return
	}
	if _, err := time.Parse("2006-01-02", payload.DateFrom); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "dateFrom must use the YYYY-MM-DD format")
		return
	}
	if payload.GmailFolder == "" {
		utils.Error(ctx, http.StatusBadRequest, 40008, "gmailFolder is required")
		return
	}

	dbCtx := c.db.WithContext(ctx.Request.Context())

	var user models.User
	err := dbCtx.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:          email,
			FileType:       payload.FileType,
			FileNameFilter: payload.FileNameFilter,
			DateFrom:       payload.DateFrom,
			GmailFolder:    payload.GmailFolder,
		}
		if err := dbCtx.Create(&user).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to save preferences")
			return
		}
		utils.Success(ctx, gin.H{"saved": true})
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to save preferences")
		return
	}

	// Map form so an empty fileNameFilter overwrites the stored value.
	err = dbCtx.Model(&user).Updates(map[string]interface{}{
		"file_type":        payload.FileType,
		"file_name_filter": payload.FileNameFilter,
		"date_from":        payload.DateFrom,
		"gmail_folder":     payload.GmailFolder,
	}).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to save preferences")
		return
	}

	utils.Success(ctx, gin.H{"saved": true})
}
