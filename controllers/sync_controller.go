package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailstash/mailstash/services"
	"github.com/mailstash/mailstash/utils"
)

// SyncController triggers the scan-and-upload workflow.
type SyncController struct {
	sync *services.SyncService
}

// NewSyncController creates a new controller instance.
func NewSyncController(sync *services.SyncService) *SyncController {
	return &SyncController{sync: sync}
}

// Run executes one synchronous sync for the signed-in user and returns the
// consolidated summary. The request stays open for the whole run.
func (c *SyncController) Run(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	summary, err := c.sync.Run(ctx.Request.Context(), email)
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) {
			utils.Sugar.Warnw("sync aborted",
				"email", email,
				"code", apiErr.Code,
				"error", err,
			)
			utils.Error(ctx, apiErr.Status, apiErr.Code, apiErr.Message)
			return
		}
		utils.Sugar.Errorw("sync failed", "email", email, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50019, "sync failed, please try again")
		return
	}

	utils.Success(ctx, summary)
}
