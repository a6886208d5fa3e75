package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/container"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
)

type DebugModule struct {
	Metrics *middleware.HTTPMetrics
}

func NewDebugModule(metrics *middleware.HTTPMetrics) *DebugModule {
	return &DebugModule{Metrics: metrics}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar and Prometheus, rate-limited per IP; in-cluster scrapers bypass the limit
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	if m.Metrics != nil {
		rg.GET("/debug/metrics", rl, gin.WrapH(m.Metrics.Handler()))
	}
}
