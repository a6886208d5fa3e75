package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/response"
)

type SharedDiscountHandler struct {
	Svc    *application.SharedDiscountService
	Logger *logrus.Logger
}

func NewSharedDiscountHandler(svc *application.SharedDiscountService, logger *logrus.Logger) *SharedDiscountHandler {
	return &SharedDiscountHandler{Svc: svc, Logger: logger}
}

func (h *SharedDiscountHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	gs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toSharedDTOs(gs), "shared discounts", nil)
}

func (h *SharedDiscountHandler) Create(c *gin.Context) {
	var req application.SharedDiscountInput
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.Svc.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toSharedDTO(g), "shared discount created", nil)
}

func (h *SharedDiscountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toSharedDTO(g), "shared discount", nil)
}

func (h *SharedDiscountHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.SharedDiscountInput
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.Svc.Update(c.Request.Context(), middleware.CallerFrom(c), id, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toSharedDTO(g), "shared discount updated", nil)
}

func (h *SharedDiscountHandler) Delete(c *gin.Context) {
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

func (h *SharedDiscountHandler) membership(c *gin.Context, op func(application.Caller, int64) (*entity.SharedDiscount, error), msg string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g, err := op(middleware.CallerFrom(c), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toSharedDTO(g), msg, nil)
}

func (h *SharedDiscountHandler) Join(c *gin.Context) {
	h.membership(c, func(caller application.Caller, id int64) (*entity.SharedDiscount, error) {
		return h.Svc.Join(c.Request.Context(), caller, id)
	}, "joined shared discount")
}

func (h *SharedDiscountHandler) Leave(c *gin.Context) {
	h.membership(c, func(caller application.Caller, id int64) (*entity.SharedDiscount, error) {
		return h.Svc.Leave(c.Request.Context(), caller, id)
	}, "left shared discount")
}
