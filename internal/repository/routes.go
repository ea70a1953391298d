package repository

import (
	"context"

	"gorm.io/gorm"

	"route_planner/internal/models"
)

// GetRoute loads a route owned by businessID, with its stops in order.
func (r *Repository) GetRoute(ctx context.Context, businessID, routeID uint) (models.Route, error) {
	var route models.Route
	err := r.conn(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id = ? AND business_id = ?", routeID, businessID).
		First(&route).Error
	return route, notFound(err)
}

// RouteOwnedBy reports whether routeID exists and belongs to businessID.
func (r *Repository) RouteOwnedBy(ctx context.Context, businessID, routeID uint) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Route{}).
		Where("id = ? AND business_id = ?", routeID, businessID).
		Count(&n).Error
	return n > 0, err
}
