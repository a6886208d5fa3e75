package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/response"
	"github.com/dishpal/coupon-core/pkg/validation"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{application.ErrInvalidCredentials, http.StatusBadRequest, "Invalid username or password."},
	{application.ErrGuestLogin, http.StatusBadRequest, "Guest accounts are not allowed to log in."},
	{application.ErrInactiveAccount, http.StatusBadRequest, "This account is not active."},
	{application.ErrInvalidToken, http.StatusUnauthorized, "Token is invalid or expired."},
	{application.ErrEmailTaken, http.StatusBadRequest, "A user with this email already exists."},
	{application.ErrUsernameTaken, http.StatusBadRequest, "A user with this username already exists."},
	{application.ErrPhoneTaken, http.StatusBadRequest, "This phone number is already in use."},
	{application.ErrAlreadyRegistered, http.StatusBadRequest, "User is already registered."},
	{application.ErrUserNotFound, http.StatusNotFound, "User not found."},
	{application.ErrProfileNotFound, http.StatusNotFound, "Profile not found."},
	{application.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action."},
	{application.ErrUnavailable, http.StatusInternalServerError, "Service temporarily unavailable."},

	{application.ErrInvalidVerification, http.StatusNotFound, "Invalid email or token."},
	{application.ErrTokenUsed, http.StatusBadRequest, "Token has already been used."},
	{application.ErrTokenExpired, http.StatusBadRequest, "Token has expired."},
	{application.ErrAlreadyVerified, http.StatusBadRequest, "Email is already verified."},
	{application.ErrInvalidResetToken, http.StatusBadRequest, "Invalid or expired token."},

	{application.ErrRoleNotFound, http.StatusBadRequest, "Role not found."},
	{application.ErrRoleAssigned, http.StatusBadRequest, "Role already assigned to user."},
	{application.ErrRoleExists, http.StatusBadRequest, "A role with this name already exists."},

	{application.ErrRetailerNotFound, http.StatusNotFound, "Retailer not found."},
	{application.ErrRetailerExists, http.StatusBadRequest, "A retailer with this name already exists."},
	{application.ErrCategoryNotFound, http.StatusBadRequest, "Category not found."},
	{application.ErrCodeTaken, http.StatusBadRequest, "Discount code already in use."},
	{application.ErrNoCategories, http.StatusNotFound, "No categories available."},
	{application.ErrNoLocation, http.StatusBadRequest, "Unable to determine location from IP address."},
	{application.ErrGroupClosed, http.StatusBadRequest, "This shared discount is no longer active."},
	{application.ErrGroupFull, http.StatusConflict, "This shared discount is full."},
	{application.ErrNotParticipant, http.StatusBadRequest, "You are not a participant of this shared discount."},
	{application.ErrNotFound, http.StatusNotFound, "Not found."},
	{entity.ErrInvalidPoint, http.StatusBadRequest, "Invalid location."},
}

// writeError maps a service error to its HTTP answer. Unknown errors are
// logged and reported as 500 without leaking details.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	if errors.Is(err, validation.ErrInvalid) {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			response.Error[any](c, m.status, m.message, nil)
			return
		}
	}
	if logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
}

// bindJSON binds the body and writes the 400 answer on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}
