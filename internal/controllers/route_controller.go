package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"route_planner/internal/config"
	"route_planner/internal/geo"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

// RouteResponse mirrors models.Route with Geometry as GeoJSON
type RouteResponse struct {
	ID          uint           `json:"ID"`
	CreatedAt   time.Time      `json:"CreatedAt"`
	UpdatedAt   time.Time      `json:"UpdatedAt"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	BusinessID  uint           `json:"business_id"`
	Geometry    string         `json:"geometry"`
	StopCount   int            `json:"stop_count"`
	Stops       []StopResponse `json:"stops"`
}

func toRouteResponse(route models.Route) RouteResponse {
	jsonGeom, err := geo.WKBToGeoJSON(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("route geometry is not valid WKB")
	}
	stops := make([]StopResponse, 0, len(route.Stops))
	for _, s := range route.Stops {
		stops = append(stops, toStopResponse(s))
	}
	return RouteResponse{
		ID:          route.ID,
		CreatedAt:   route.CreatedAt,
		UpdatedAt:   route.UpdatedAt,
		Name:        route.Name,
		Description: route.Description,
		BusinessID:  route.BusinessID,
		Geometry:    jsonGeom,
		StopCount:   len(route.Stops),
		Stops:       stops,
	}
}

func orderedStops(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// CreateRoute creates an empty route for the caller's business.
func CreateRoute(c *gin.Context) {
	var input struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Geometry    string `json:"geometry"` // GeoJSON LineString
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	businessID, err := middleware.ClaimID(c, "business_id")
	if err != nil || businessID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not linked to a business"})
		return
	}

	wkbGeom, err := geo.GeoJSONToWKB(input.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	route := models.Route{Name: input.Name, Description: input.Description, BusinessID: businessID, Geometry: wkbGeom}
	if err := config.DB.WithContext(c).Create(&route).Error; err != nil {
		logrus.WithError(err).Error("CreateRoute: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create route failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

// ListRoutes returns all routes + stops for the caller's business
func ListRoutes(c *gin.Context) {
	businessID, _ := middleware.ClaimID(c, "business_id")

	var routes []models.Route
	if err := config.DB.WithContext(c).Preload("Stops", orderedStops).Where("business_id = ?", businessID).Order("id").Find(&routes).Error; err != nil {
		logrus.WithError(err).Error("ListRoutes: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch routes"})
		return
	}

	routeResponses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		routeResponses = append(routeResponses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeResponses})
}

// loadOwnedRoute fetches :id scoped to the caller's business, writing the
// error response itself when it fails.
func loadOwnedRoute(c *gin.Context, preload bool) (models.Route, bool) {
	businessID, _ := middleware.ClaimID(c, "business_id")
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return models.Route{}, false
	}

	q := config.DB.WithContext(c)
	if preload {
		q = q.Preload("Stops", orderedStops)
	}
	var route models.Route
	if err := q.Where("id = ? AND business_id = ?", rID, businessID).First(&route).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			logrus.WithError(err).Error("loadOwnedRoute: database error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load route"})
		}
		return models.Route{}, false
	}
	return route, true
}

// GetRoute returns a single route with its stops in sequence order.
func GetRoute(c *gin.Context) {
	route, ok := loadOwnedRoute(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute changes route metadata and geometry.
func UpdateRoute(c *gin.Context) {
	route, ok := loadOwnedRoute(c, false)
	if !ok {
		return
	}

	var input routeUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := applyRouteUpdates(&route, &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := config.DB.WithContext(c).Save(&route).Error; err != nil {
		logrus.WithError(err).Error("UpdateRoute: Failed to save updated route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}
	config.DB.WithContext(c).Preload("Stops", orderedStops).First(&route, route.ID)
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

type routeUpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Geometry    *string `json:"geometry"`
}

func applyRouteUpdates(route *models.Route, input *routeUpdateInput) error {
	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.Geometry != nil {
		wkbGeom, err := geo.GeoJSONToWKB(*input.Geometry)
		if err != nil {
			return errors.New("Invalid geometry: " + err.Error())
		}
		route.Geometry = wkbGeom
	}
	return nil
}

// DeleteRoute removes a route and its stops.
func DeleteRoute(c *gin.Context) {
	route, ok := loadOwnedRoute(c, false)
	if !ok {
		return
	}

	err := config.DB.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", route.ID).Delete(&models.Stop{}).Error; err != nil {
			return err
		}
		return tx.Delete(&route).Error
	})
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Error("DeleteRoute: transaction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}
