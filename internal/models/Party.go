package models

import "gorm.io/gorm"

// ContactInfo is shared by customers, vendors and one-time stop contacts.
type ContactInfo struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
}

// AddressFields is the postal address embedded in parties and stops.
type AddressFields struct {
	Line1       string `json:"address_line1"`
	Line2       string `json:"address_line2"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Postal      string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// Customer is a saved party that stops can be scheduled for.
type Customer struct {
	gorm.Model
	BusinessID uint `json:"business_id" gorm:"index"`

	Contact ContactInfo   `gorm:"embedded" json:"contact"`
	Address AddressFields `gorm:"embedded" json:"address"`
	Lat     *float64      `json:"lat"`
	Lng     *float64      `json:"lng"`
}

// Vendor has the same shape as Customer; it is the supplier side of pickups.
type Vendor struct {
	gorm.Model
	BusinessID uint `json:"business_id" gorm:"index"`

	Contact ContactInfo   `gorm:"embedded" json:"contact"`
	Address AddressFields `gorm:"embedded" json:"address"`
	Lat     *float64      `json:"lat"`
	Lng     *float64      `json:"lng"`
}
