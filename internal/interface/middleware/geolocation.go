package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/geo"
)

const CtxGeoLocationKey = "geo_location"

// Geolocation resolves the client IP and stores the result under geo_location.
// A failed lookup leaves the key unset and never blocks the request.
func Geolocation(resolver geo.Resolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			c.Next()
			return
		}
		ip := ipFromCtx(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		loc, err := resolver.Lookup(ctx, ip)
		cancel()
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("ip", ip).Debug("geolocation lookup failed")
			}
			c.Next()
			return
		}
		c.Set(CtxGeoLocationKey, loc)
		c.Next()
	}
}

// LocationFrom returns the location attached by Geolocation.
func LocationFrom(c *gin.Context) (geo.Location, bool) {
	v, ok := c.Get(CtxGeoLocationKey)
	if !ok {
		return geo.Location{}, false
	}
	loc, ok := v.(geo.Location)
	return loc, ok
}
