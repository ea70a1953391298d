package models

import (
	"gorm.io/gorm"
)

// Business is the company that owns routes, customers and vendors.
type Business struct {
	gorm.Model

	Name    string `json:"name" binding:"required"`
	Owner   string `json:"owner"`
	Email   string `gorm:"unique;not null" json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	Routes []Route `gorm:"foreignKey:BusinessID" json:"routes,omitempty"`
}
