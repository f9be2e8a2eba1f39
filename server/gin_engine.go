package server

import (
	"github.com/gin-gonic/gin"
)

// NewDefaultGinEngine 创建一个不带默认中间件的 Gin 引擎，中间件顺序由调用方决定。
// environment 为 prod 时切换到 release 模式。
func NewDefaultGinEngine(environment string, middlewares ...gin.HandlerFunc) *gin.Engine {
	if environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}
