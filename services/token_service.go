package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/models"
)

// Sentinel errors callers map to HTTP statuses.
var (
	// ErrNoAccessToken means the user row carries no access token at all.
	ErrNoAccessToken = errors.New("no access token stored")
	// ErrNoRefreshToken means the access token cannot be renewed; the user
	// must sign out and sign in again.
	ErrNoRefreshToken = errors.New("no refresh token stored")
	// ErrRefreshFailed means the provider rejected the refresh exchange.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// TokenStatus describes the stored credential state for a user.
type TokenStatus struct {
	HasValidToken   bool       `json:"hasValidToken"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	IsExpired       bool       `json:"isExpired"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
}

// TokenService exchanges refresh tokens for new access tokens at the Google
// token endpoint and mirrors the result onto the user row.
type TokenService struct {
	db           *gorm.DB
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
}

// NewTokenService creates a new service instance. The endpoint is injectable
// so tests can point it at a local token server.
func NewTokenService(db *gorm.DB, clientID, clientSecret string, endpoint oauth2.Endpoint) *TokenService {
	return &TokenService{
		db:           db,
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     endpoint,
	}
}

// Refresh performs a single refresh-token exchange and persists the new
// credential set. No retry: a rejected exchange is surfaced to the caller,
// who must force full re-authentication.
//
// The update is guarded with compare-and-set on the expiry read from the row,
// so two overlapping refreshes cannot silently overwrite each other: the
// loser re-reads the row and adopts the winner's token.
func (s *TokenService) Refresh(ctx context.Context, user *models.User) (string, error) {
	if user.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	conf := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     s.endpoint,
	}

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: user.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	// Google may omit the refresh token on renewal; retain the old one then.
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = user.RefreshToken
	}
	expiresAt := tok.Expiry

	tx := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email)
	if user.TokenExpiresAt != nil {
		tx = tx.Where("token_expires_at = ?", *user.TokenExpiresAt)
	} else {
		tx = tx.Where("token_expires_at IS NULL")
	}
	res := tx.Updates(map[string]interface{}{
		"access_token":     tok.AccessToken,
		"refresh_token":    refreshToken,
		"token_expires_at": expiresAt,
		"updated_at":       time.Now(),
	})
	if res.Error != nil {
		return "", res.Error
	}

	if res.RowsAffected == 0 {
		// A concurrent refresh won the race; adopt its credentials.
		var current models.User
		if err := s.db.WithContext(ctx).Where("email = ?", user.Email).First(&current).Error; err != nil {
			return "", err
		}
		*user = current
		if user.AccessToken == "" {
			return "", ErrNoAccessToken
		}
		return user.AccessToken, nil
	}

	user.AccessToken = tok.AccessToken
	user.RefreshToken = refreshToken
	user.TokenExpiresAt = &expiresAt
	return tok.AccessToken, nil
}

// EnsureAccessToken returns a usable access token for the user, refreshing it
// first when the stored one has expired.
func (s *TokenService) EnsureAccessToken(ctx context.Context, user *models.User) (string, error) {
	if user.AccessToken == "" && user.RefreshToken == "" {
		return "", ErrNoAccessToken
	}
	if !user.TokenExpired(time.Now()) {
		return user.AccessToken, nil
	}
	return s.Refresh(ctx, user)
}

// Status computes the credential state exposed by the token-status surface.
func (s *TokenService) Status(user *models.User, now time.Time) TokenStatus {
	isExpired := user.TokenExpired(now)
	return TokenStatus{
		HasValidToken:   user.AccessToken != "" && !isExpired,
		ExpiresAt:       user.TokenExpiresAt,
		IsExpired:       isExpired,
		HasRefreshToken: user.RefreshToken != "",
	}
}
