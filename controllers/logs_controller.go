package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailstash/mailstash/services"
	"github.com/mailstash/mailstash/utils"
)

// LogsController serves the per-user audit trail.
type LogsController struct {
	logs *services.LogService
}

// NewLogsController creates a new controller instance.
func NewLogsController(logs *services.LogService) *LogsController {
	return &LogsController{logs: logs}
}

// Recent returns the 50 newest log entries for the signed-in user.
func (c *LogsController) Recent(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	entries, err := c.logs.Recent(ctx.Request.Context(), email, 50)
	if err != nil {
		utils.Sugar.Errorf("failed to load logs for %s: %v", email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to load download logs")
		return
	}

	utils.Success(ctx, entries)
}
