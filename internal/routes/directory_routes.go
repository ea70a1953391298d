package routes

import (
	"github.com/gin-gonic/gin"

	"route_planner/internal/controllers"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

// DirectoryRoutes mounts the business profile, customers, vendors and
// address lookup.
func DirectoryRoutes(r *gin.RouterGroup, sc *controllers.StopController) {
	dir := r.Group("")
	dir.Use(middleware.RequireAuthWithRole(models.RoleOwner, models.RoleDispatcher))
	{
		dir.GET("/business", controllers.GetBusiness)

		dir.GET("/customers", controllers.ListCustomers)
		dir.POST("/customers", controllers.CreateCustomer)
		dir.GET("/vendors", controllers.ListVendors)
		dir.POST("/vendors", controllers.CreateVendor)

		dir.GET("/address/autocomplete", sc.Autocomplete)
		dir.GET("/address/geocode", sc.Geocode)
	}

	owner := r.Group("/business")
	owner.Use(middleware.RequireAuthWithRole(models.RoleOwner))
	owner.PUT("", controllers.UpdateBusiness)
}
