package models

import (
	"gorm.io/gorm"
)

// Route represents an ordered set of stops planned by a business
type Route struct {
	gorm.Model

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	BusinessID  uint   `json:"business_id" gorm:"index"`

	// Geometry is a LINESTRING (SRID 4326) encoded as WKB.
	Geometry []byte `gorm:"type:bytea"`

	Stops []Stop `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stops,omitempty"`
}
