package router

import "github.com/gin-gonic/gin"

// Module registers one feature area's routes under the shared /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
