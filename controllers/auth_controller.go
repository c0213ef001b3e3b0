package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/auth"
	"github.com/jheiberg/17peppertree/middleware"
	"github.com/jheiberg/17peppertree/utils"
)

// Outstanding login states expire after this long.
const stateTTL = 10 * time.Minute

type CallbackPayload struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type RefreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthController proxies the OAuth2 login flow for the admin frontend.
// Pending state values are held in memory, so the login and callback must
// hit the same instance.
type AuthController struct {
	Keycloak *auth.Keycloak

	mu     sync.Mutex
	states map[string]time.Time
}

func NewAuthController(kc *auth.Keycloak) *AuthController {
	return &AuthController{
		Keycloak: kc,
		states:   make(map[string]time.Time),
	}
}

func (ctrl *AuthController) Login(c *gin.Context) {
	authURL, state, err := ctrl.Keycloak.AuthorizationURL("")
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to initiate login")
		return
	}

	ctrl.rememberState(state)
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

func (ctrl *AuthController) Callback(c *gin.Context) {
	var payload CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Code == "" || payload.State == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing code or state parameter")
		return
	}

	if !ctrl.consumeState(payload.State) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	tokens, err := ctrl.Keycloak.ExchangeCode(payload.Code)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to exchange code for token")
		return
	}

	accessToken, _ := tokens["access_token"].(string)
	userInfo, err := ctrl.Keycloak.UserInfo(accessToken)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to get user info")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens["access_token"],
		"refresh_token": tokens["refresh_token"],
		"user":          userInfo,
	})
}

func (ctrl *AuthController) Refresh(c *gin.Context) {
	var payload RefreshPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.RefreshToken == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing refresh token")
		return
	}

	tokens, err := ctrl.Keycloak.Refresh(payload.RefreshToken)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Failed to refresh token")
		return
	}

	refreshToken := tokens["refresh_token"]
	if refreshToken == nil {
		refreshToken = payload.RefreshToken
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens["access_token"],
		"refresh_token": refreshToken,
	})
}

func (ctrl *AuthController) Logout(c *gin.Context) {
	var payload LogoutPayload
	_ = c.ShouldBindJSON(&payload)

	if payload.RefreshToken != "" {
		// Best effort; local logout succeeds regardless.
		_ = ctrl.Keycloak.Logout(payload.RefreshToken)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// User echoes the verified identity attached by the admin guard.
func (ctrl *AuthController) User(c *gin.Context) {
	claims, ok := middleware.UserClaims(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "No valid authorization token provided")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sub":                claims.Subject,
		"email":              claims.Email,
		"name":               claims.Name,
		"preferred_username": claims.PreferredUsername,
		"roles":              claims.Roles(),
	})
}

func (ctrl *AuthController) rememberState(state string) {
	now := time.Now()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	for s, issued := range ctrl.states {
		if now.Sub(issued) > stateTTL {
			delete(ctrl.states, s)
		}
	}
	ctrl.states[state] = now
}

func (ctrl *AuthController) consumeState(state string) bool {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	issued, ok := ctrl.states[state]
	if !ok {
		return false
	}
	delete(ctrl.states, state)
	return time.Since(issued) <= stateTTL
}
