package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/response"
)

type RetailerHandler struct {
	Svc    *application.RetailerService
	Logger *logrus.Logger
}

func NewRetailerHandler(svc *application.RetailerService, logger *logrus.Logger) *RetailerHandler {
	return &RetailerHandler{Svc: svc, Logger: logger}
}

func (h *RetailerHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	rs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toRetailerDTOs(rs), "retailers", nil)
}

func (h *RetailerHandler) Create(c *gin.Context) {
	var req application.RetailerInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Svc.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toRetailerDTO(r), "retailer created", nil)
}

func (h *RetailerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toRetailerDTO(r), "retailer", nil)
}

func (h *RetailerHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.RetailerInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Svc.Update(c.Request.Context(), middleware.CallerFrom(c), id, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toRetailerDTO(r), "retailer updated", nil)
}

func (h *RetailerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

// lenientFloat parses a query value; ok is false for missing or malformed input.
func lenientFloat(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Query(name)), 64)
	return v, err == nil
}

// Nearby answers an empty list for missing, malformed or out-of-range input.
func (h *RetailerHandler) Nearby(c *gin.Context) {
	lat, okLat := lenientFloat(c, "latitude")
	lon, okLon := lenientFloat(c, "longitude")
	radius := geo.DefaultRadiusKm
	if raw := strings.TrimSpace(c.Query("radius")); raw != "" {
		var okRadius bool
		if radius, okRadius = lenientFloat(c, "radius"); !okRadius {
			radius = 0
		}
	}
	out := []retailerDTO{}
	if okLat && okLon {
		rs, err := h.Svc.Nearby(c.Request.Context(), entity.Point{Latitude: lat, Longitude: lon}, radius)
		if err != nil {
			writeError(c, h.Logger, err)
			return
		}
		for _, nr := range rs {
			dto := toRetailerDTO(nr.Retailer)
			km := nr.DistanceKm
			dto.DistanceKm = &km
			out = append(out, dto)
		}
	}
	response.Success(c, http.StatusOK, out, "nearby retailers", nil)
}

func (h *RetailerHandler) Analytics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.Svc.Analytics(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, a, "retailer analytics", nil)
}
