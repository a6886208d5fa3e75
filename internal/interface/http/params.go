package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/response"
)

// pathID parses a positive integer path parameter and answers 404 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusNotFound, "Not found.", nil)
		return 0, false
	}
	return id, true
}

// queryFloat reads an optional float query parameter. present is false when
// the parameter is missing; an unparsable value answers 400.
func queryFloat(c *gin.Context, name string) (v float64, present, ok bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "Invalid number for "+name+".", map[string]string{name: "must be a number"})
		return 0, true, false
	}
	return v, true, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query(name))); err == nil {
		return v
	}
	return def
}

func queryBool(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// parseIDList parses "1,2,3" into ids, skipping blanks. ok is false on a non-numeric entry.
func parseIDList(raw string) (ids []int64, ok bool) {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func sessionMeta(c *gin.Context) application.SessionMeta {
	ip := c.GetString(middleware.CtxRealIPKey)
	if ip == "" {
		ip = c.ClientIP()
	}
	return application.SessionMeta{IP: ip, UserAgent: c.Request.UserAgent()}
}

func pagination(c *gin.Context) (limit, offset int) {
	return queryInt(c, "limit", 50), max(queryInt(c, "offset", 0), 0)
}
