package routes

import (
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"route_planner/internal/controllers"
)

// Options carries what the router needs beyond the package-level handlers.
type Options struct {
	Stops     *controllers.StopController
	UploadDir string
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/healthz"}),
	))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	api := r.Group("/api")
	AuthRoutes(api)
	PlannerRoutes(api)
	DraftRoutes(api, opts.Stops)
	DirectoryRoutes(api, opts.Stops)

	return r
}
