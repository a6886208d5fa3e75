package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/response"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
	User    *userDTO `json:"user,omitempty"`
}

func tokenMeta(pair application.TokenPair) map[string]any {
	return map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password, sessionMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	user := toUserDTO(u)
	response.Success(c, http.StatusOK, tokenResponse{Access: pair.AccessToken, Refresh: pair.RefreshToken, User: &user}, "login successful", tokenMeta(pair))
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	token := strings.TrimSpace(req.Refresh)
	if token == "" {
		token, _ = c.Cookie(helpers.RefreshCookie)
	}
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, tokenResponse{Access: pair.AccessToken, Refresh: pair.RefreshToken}, "token refreshed", tokenMeta(pair))
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, err := h.Svc.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"valid": true,
		"claims": gin.H{
			"user_id":    claims.UserID,
			"session_id": claims.SessionID,
			"is_guest":   claims.IsGuest,
			"is_staff":   claims.IsStaff,
			"token_type": claims.TokenType,
			"expires_at": claims.ExpiresAt,
		},
	}, "token is valid", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.CallerFrom(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	n, err := h.Svc.LogoutAll(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"revoked_sessions": n}, "logged out from all sessions", nil)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) GuestToken(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	token, created, err := h.Svc.GuestToken(c.Request.Context(), req.Email, sessionMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	status, msg := http.StatusOK, "guest token retrieved"
	if created {
		status, msg = http.StatusCreated, "guest token created"
	}
	response.Success(c, status, gin.H{"guest_token": token}, msg, nil)
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), middleware.CallerFrom(c), application.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, sessionMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	msg := "User registered successfully. Please check your email to verify your account."
	response.Success(c, http.StatusCreated, gin.H{"message": msg, "user": toUserDTO(u)}, msg, nil)
}

func (h *AuthHandler) Activate(c *gin.Context) {
	email, token := c.Query("email"), c.Query("token")
	if strings.TrimSpace(email) == "" || strings.TrimSpace(token) == "" {
		response.Error[any](c, http.StatusBadRequest, "Email and token are required.", nil)
		return
	}
	if err := h.Svc.Activate(c.Request.Context(), email, token); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"activated": true}, "Email verified successfully.", nil)
}

type resendRequest struct {
	Email       string          `json:"email"`
	ForceResend json.RawMessage `json:"force_resend"`
}

// parseFlag accepts a JSON bool or the strings "true"/"1".
func parseFlag(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		return s == "true" || s == "1"
	}
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n == 1
	}
	return false
}

func (h *AuthHandler) ResendActivation(c *gin.Context) {
	var req resendRequest
	if !bindJSON(c, &req) {
		return
	}
	sent, err := h.Svc.ResendVerification(c.Request.Context(), req.Email, parseFlag(req.ForceResend), sessionMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if sent {
		response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "New token sent successfully.", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": false}, "Current token is still valid.", nil)
}

func (h *AuthHandler) SendVerification(c *gin.Context) {
	if err := h.Svc.SendVerification(c.Request.Context(), middleware.CallerFrom(c), sessionMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "Verification email sent.", nil)
}

func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email, sessionMeta(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "If an account exists for this email, a reset link has been sent.", nil)
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password has been reset successfully.", nil)
}
