package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailstash/mailstash/middleware"
	"github.com/mailstash/mailstash/utils"
)

// currentEmail extracts the authenticated identity the auth middleware stored
// on the request context. A missing value means the route was wired without
// AuthRequired, which is a programming error surfaced as 401.
func currentEmail(ctx *gin.Context) (string, bool) {
	v, ok := ctx.Get(middleware.ContextEmailKey)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "authentication required")
		return "", false
	}
	email, ok := v.(string)
	if !ok || email == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "authentication required")
		return "", false
	}
	return email, true
}
