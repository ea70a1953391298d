package models

import "gorm.io/gorm"

const (
	RoleOwner      = "owner"
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // "owner", "dispatcher", "driver"

	BusinessID uint      `json:"business_id" gorm:"index"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"business,omitempty"`
}
