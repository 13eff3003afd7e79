package httpserver

import (
	"context"

	"pipescan/internal/model"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (srv HTTPServer) mapHandlers() error {
	srv.registerMiddlewares()
	srv.registerSystemRoutes()
	srv.registerDomainRoutes()

	return nil
}

func (srv HTTPServer) registerMiddlewares() {
	srv.gin.Use(gin.Recovery())

	ctx := context.Background()
	if srv.environment == string(model.EnvironmentProduction) {
		srv.l.Infof(ctx, "Server mode: production")
	} else {
		srv.l.Infof(ctx, "Server mode: %s", srv.environment)
	}
}

func (srv HTTPServer) registerSystemRoutes() {
	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/ready", srv.readyCheck)
	srv.gin.GET("/live", srv.liveCheck)

	srv.gin.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}

// registerDomainRoutes registers the event feed routes.
func (srv HTTPServer) registerDomainRoutes() {
	ctx := context.Background()

	srv.gin.POST("/webhook", srv.feedHandler.HandleBuildWebhook)
	srv.gin.GET("/events", srv.feedHandler.ListEvents)
	srv.gin.GET("/events/latest", srv.feedHandler.LatestEvent)
	srv.gin.GET("/events/builds", srv.feedHandler.ListBuilds)
	srv.gin.GET("/events/wait", srv.feedHandler.WaitEvents)
	srv.gin.GET("/ping", srv.feedHandler.Ping)

	srv.l.Infof(ctx, "Build webhook route registered at POST /webhook")
}
