package routes

import (
	"github.com/gin-gonic/gin"

	"route_planner/internal/controllers"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

// DraftRoutes mounts the stop-creation workflow and stop maintenance.
func DraftRoutes(r *gin.RouterGroup, sc *controllers.StopController) {
	r.GET("/routes/:id/stops", middleware.RequireAuth(), sc.ListStops)

	planners := r.Group("")
	planners.Use(middleware.RequireAuthWithRole(models.RoleOwner, models.RoleDispatcher))

	draft := planners.Group("/routes/:id/draft")
	{
		draft.GET("/identity", sc.GetIdentity)
		draft.PUT("/identity", sc.PutIdentity)
		draft.GET("/schedule", sc.GetSchedule)
		draft.PUT("/schedule", sc.PutSchedule)
		draft.GET("/photos", sc.GetPhotos)
		draft.POST("/photos/:category", sc.AddPhotoSlot)
		draft.PUT("/photos/:category/:slot", sc.AttachPhoto)
		draft.DELETE("/photos/:category/:slot", sc.RemovePhotoSlot)
		draft.POST("/submit", sc.Submit)
		draft.DELETE("", sc.Discard)
	}

	stops := planners.Group("/stops")
	{
		stops.PATCH("/:id", sc.UpdateStop)
		stops.DELETE("/:id", sc.DeleteStop)
	}
}
