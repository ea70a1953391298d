package routes

import (
	"github.com/gin-gonic/gin"

	"route_planner/internal/controllers"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

// PlannerRoutes mounts route management. Drivers may read, only owners and
// dispatchers may change anything.
func PlannerRoutes(r *gin.RouterGroup) {
	read := r.Group("/routes")
	read.Use(middleware.RequireAuth())
	{
		read.GET("", controllers.ListRoutes)
		read.GET("/:id", controllers.GetRoute)
	}

	write := r.Group("/routes")
	write.Use(middleware.RequireAuthWithRole(models.RoleOwner, models.RoleDispatcher))
	{
		write.POST("", controllers.CreateRoute)
		write.PUT("/:id", controllers.UpdateRoute)
		write.DELETE("/:id", controllers.DeleteRoute)
	}
}
