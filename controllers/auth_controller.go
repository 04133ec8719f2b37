package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/config"
	"github.com/mailstash/mailstash/models"
	"github.com/mailstash/mailstash/utils"
)

const (
	// sessionDuration bounds the JWT lifetime; Google tokens are refreshed
	// independently of the session.
	sessionDuration = 72 * time.Hour

	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// oauthScopes covers identity plus read-only mailbox access plus Drive files
// created by this application. Nothing broader is requested.
var oauthScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/drive.file",
}

// AuthController handles Google sign-in, session issuance and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

func googleOAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/google/callback",
		Scopes:       oauthScopes,
		Endpoint:     google.Endpoint,
	}
}

// GoogleLogin starts the OAuth flow and returns the authorization URL.
// Offline access with forced consent guarantees a refresh token on every
// sign-in, not just the first one.
func (c *AuthController) GoogleLogin(ctx *gin.Context) {
	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := googleOAuthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	utils.Success(ctx, gin.H{
		"authorizationUrl": url,
		"state":            state,
	})
}

// GoogleCallback exchanges the authorization code, resolves the Google
// identity, upserts the user row with fresh credentials and issues a session
// token.
func (c *AuthController) GoogleCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	if state == "" || !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid or expired state parameter")
		return
	}

	code := ctx.Query("code")
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "missing authorization code")
		return
	}

	conf := googleOAuthConfig()
	token, err := conf.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnf("oauth code exchange failed: %v", err)
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authorization code exchange failed")
		return
	}

	email, err := fetchGoogleEmail(ctx.Request.Context(), conf, token)
	if err != nil {
		utils.Sugar.Errorf("failed to fetch google user info: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to fetch account information")
		return
	}

	if err := c.upsertUser(ctx.Request.Context(), email, token); err != nil {
		utils.Sugar.Errorf("failed to persist user %s: %v", email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to save account")
		return
	}

	jwtToken, err := utils.GenerateToken(email, sessionDuration)
	if err != nil {
		utils.Sugar.Errorf("failed to sign session token: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create session")
		return
	}

	utils.Success(ctx, gin.H{
		"token": jwtToken,
		"user":  gin.H{"email": email},
	})
}

// Me returns the authenticated user's profile and stored preferences.
func (c *AuthController) Me(ctx *gin.Context) {
	email, ok := currentEmail(ctx)
	if !ok {
		return
	}

	var user models.User
	err := c.db.WithContext(ctx.Request.Context()).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40107, "account no longer exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load account")
		return
	}

	utils.Success(ctx, gin.H{
		"email":          user.Email,
		"fileType":       user.FileType,
		"fileNameFilter": user.FileNameFilter,
		"dateFrom":       user.DateFrom,
		"gmailFolder":    user.GmailFolder,
		"createdAt":      user.CreatedAt,
		"updatedAt":      user.UpdatedAt,
	})
}

// Logout revokes the current session token until its natural expiry.
func (c *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "missing bearer token")
		return
	}
	tokenString := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(sessionDuration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(tokenString, expiresAt)

	utils.Success(ctx, gin.H{"loggedOut": true})
}

// fetchGoogleEmail resolves the account email from the userinfo endpoint
// using the freshly exchanged access token.
func fetchGoogleEmail(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (string, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("userinfo response carried no email")
	}
	return info.Email, nil
}

// upsertUser creates the user row on first sign-in or overwrites the stored
// credentials on a repeat sign-in. Preferences survive re-authentication.
func (c *AuthController) upsertUser(ctx context.Context, email string, token *oauth2.Token) error {
	expiresAt := token.Expiry

	var user models.User
	err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:          email,
			AccessToken:    token.AccessToken,
			RefreshToken:   token.RefreshToken,
			TokenExpiresAt: &expiresAt,
		}
		return c.db.WithContext(ctx).Create(&user).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"access_token":     token.AccessToken,
		"token_expires_at": expiresAt,
	}
	// A consent-prompted flow normally returns a refresh token, but never
	// clobber a stored one with an empty value.
	if token.RefreshToken != "" {
		updates["refresh_token"] = token.RefreshToken
	}
	return c.db.WithContext(ctx).Model(&user).Updates(updates).Error
}
