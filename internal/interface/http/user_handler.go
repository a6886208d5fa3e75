package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/response"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	Svc     *application.ProfileService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.ProfileService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type profileRequest struct {
	FirstName   *string         `json:"first_name" binding:"omitempty,max=150"`
	LastName    *string         `json:"last_name" binding:"omitempty,max=150"`
	PhoneNumber *string         `json:"phone_number"`
	Location    json.RawMessage `json:"location"`
	Preferences json.RawMessage `json:"preferences"`
}

var jsonNull = []byte("null")

// toUpdate converts the body; replace fills absent fields with their empty value.
func (req profileRequest) toUpdate(replace bool) (application.ProfileUpdate, error) {
	in := application.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Preferences: req.Preferences,
	}
	switch {
	case len(req.Location) == 0:
		in.ClearLocation = replace
	case bytes.Equal(bytes.TrimSpace(req.Location), jsonNull):
		in.ClearLocation = true
	default:
		var p entity.Point
		if err := json.Unmarshal(req.Location, &p); err != nil {
			return in, validation.Details("location", err.Error())
		}
		in.Location = &p
	}
	if replace {
		empty := ""
		if in.FirstName == nil {
			in.FirstName = &empty
		}
		if in.LastName == nil {
			in.LastName = &empty
		}
		if in.PhoneNumber == nil {
			in.PhoneNumber = &empty
		}
		if len(in.Preferences) == 0 {
			in.Preferences = jsonNull
		}
	}
	return in, nil
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	view, err := h.Svc.Get(c.Request.Context(), middleware.CallerFrom(c).UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfileView(view), "profile", nil)
}

func (h *UserHandler) update(c *gin.Context, replace bool) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.toUpdate(replace)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	view, err := h.Svc.Update(c.Request.Context(), middleware.CallerFrom(c).UserID, in, !replace)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfileView(view), "profile updated", nil)
}

func (h *UserHandler) ReplaceProfile(c *gin.Context) { h.update(c, true) }
func (h *UserHandler) PatchProfile(c *gin.Context)   { h.update(c, false) }

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), middleware.CallerFrom(c).UserID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.NoContent(c)
}

func (h *UserHandler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "No image file provided.", map[string]string{"image": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "Unable to read the uploaded file.", nil)
		return
	}
	defer f.Close()

	url, err := h.Svc.UploadImage(c.Request.Context(), middleware.CallerFrom(c).UserID, fh.Filename, f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile_image": url}, "profile image uploaded", nil)
}

func (h *UserHandler) DeleteImage(c *gin.Context) {
	if err := h.Svc.DeleteImage(c.Request.Context(), middleware.CallerFrom(c).UserID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}
