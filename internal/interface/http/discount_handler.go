package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/response"
)

type DiscountHandler struct {
	Svc    *application.DiscountService
	Logger *logrus.Logger
}

func NewDiscountHandler(svc *application.DiscountService, logger *logrus.Logger) *DiscountHandler {
	return &DiscountHandler{Svc: svc, Logger: logger}
}

// discountFilter reads the shared listing and text-search filters. ok is false
// after a 400 was written for an unparsable number.
func discountFilter(c *gin.Context, queryParam string) (entity.DiscountFilter, bool) {
	limit, offset := pagination(c)
	f := entity.DiscountFilter{
		Query:    c.Query(queryParam),
		IsActive: queryBool(c, "is_active"),
		Limit:    limit,
		Offset:   offset,
	}
	if ids, ok := parseIDList(c.Query("retailer")); ok && len(ids) == 1 {
		f.RetailerID = &ids[0]
	}
	if ids, ok := parseIDList(c.Query("category")); ok && len(ids) == 1 {
		f.CategoryID = &ids[0]
	}
	if v, present, ok := queryFloat(c, "min_value"); !ok {
		return f, false
	} else if present {
		f.MinValue = &v
	}
	if v, present, ok := queryFloat(c, "max_value"); !ok {
		return f, false
	} else if present {
		f.MaxValue = &v
	}
	return f, true
}

func (h *DiscountHandler) List(c *gin.Context) {
	f, ok := discountFilter(c, "search")
	if !ok {
		return
	}
	ds, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTOs(ds), "discounts", nil)
}

func (h *DiscountHandler) Create(c *gin.Context) {
	var req application.DiscountInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Svc.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toDiscountDTO(d), "discount created", nil)
}

func (h *DiscountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTO(d), "discount", nil)
}

// Update serves PUT and PATCH; absent fields are left unchanged either way.
func (h *DiscountHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.DiscountInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.Svc.Update(c.Request.Context(), middleware.CallerFrom(c), id, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTO(d), "discount updated", nil)
}

func (h *DiscountHandler) Delete(c *gin.Context) {
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

// Nearby uses explicit coordinates when given and otherwise the caller's IP location.
func (h *DiscountHandler) Nearby(c *gin.Context) {
	lat, hasLat, ok := queryFloat(c, "latitude")
	if !ok {
		return
	}
	lon, hasLon, ok := queryFloat(c, "longitude")
	if !ok {
		return
	}
	radius, hasRadius, ok := queryFloat(c, "radius")
	if !ok {
		return
	}

	var center entity.Point
	switch {
	case hasLat && hasLon:
		center = entity.Point{Latitude: lat, Longitude: lon}
	case hasLat || hasLon:
		response.Error[any](c, http.StatusBadRequest, "Both latitude and longitude are required.", nil)
		return
	default:
		loc, found := middleware.LocationFrom(c)
		if !found {
			writeError(c, h.Logger, application.ErrNoLocation)
			return
		}
		center = loc.Point()
		maxDist, hasMax, ok := queryFloat(c, "max_distance")
		if !ok {
			return
		}
		if hasMax {
			radius, hasRadius = maxDist, true
		}
	}
	if !hasRadius {
		radius = geo.DefaultRadiusKm
	}

	ds, err := h.Svc.Nearby(c.Request.Context(), center, radius)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTOs(ds), "nearby discounts", map[string]any{
		"center":    center,
		"radius_km": radius,
	})
}

// TextSearch filters in the database by description and value range.
func (h *DiscountHandler) TextSearch(c *gin.Context) {
	f, ok := discountFilter(c, "query")
	if !ok {
		return
	}
	ds, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTOs(ds), "search results", nil)
}

type semanticSearchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

// SemanticSearch embeds the query and returns discounts by vector similarity.
func (h *DiscountHandler) SemanticSearch(c *gin.Context) {
	var req semanticSearchRequest
	if !bindJSON(c, &req) {
		return
	}
	topK := application.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	hits, err := h.Svc.SemanticSearch(c.Request.Context(), strings.TrimSpace(req.Query), topK)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if len(hits) == 0 {
		response.Success(c, http.StatusOK, []discountDTO{}, "No similar discounts found.", nil)
		return
	}
	out := make([]discountDTO, 0, len(hits))
	for _, hit := range hits {
		dto := toDiscountDTO(hit.Discount)
		dist := hit.Distance
		dto.Distance = &dist
		out = append(out, dto)
	}
	response.Success(c, http.StatusOK, out, "search results", nil)
}

func (h *DiscountHandler) Categories(c *gin.Context) {
	cats, err := h.Svc.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, cats, "categories", nil)
}

func (h *DiscountHandler) UploadImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
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

	d, err := h.Svc.UploadImage(c.Request.Context(), middleware.CallerFrom(c), id, fh.Filename, f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toDiscountDTO(d), "discount image uploaded", nil)
}
