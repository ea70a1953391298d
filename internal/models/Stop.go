package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stop is a single scheduled location/action within a route.
// Seq order is kept contiguous per route by the repository.
type Stop struct {
	gorm.Model

	RouteID    uint `json:"route_id" gorm:"index"`
	BusinessID uint `json:"business_id" gorm:"index"`
	Sequence   int  `json:"sequence"`

	StopType   string `json:"stop_type"`
	PartyMode  string `json:"party_mode"`
	CustomerID *uint  `json:"customer_id"`
	VendorID   *uint  `json:"vendor_id"`

	Contact ContactInfo   `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	Address AddressFields `gorm:"embedded" json:"address"`
	Lat     *float64      `json:"lat"`
	Lng     *float64      `json:"lng"`

	// Location is the same point as Lat/Lng encoded as WKB.
	Location []byte `gorm:"type:bytea" json:"-"`

	PlannedServiceMinutes *int   `json:"planned_service_minutes"`
	WindowStart           string `json:"window_start"`
	WindowEnd             string `json:"window_end"`
	HardWindow            bool   `json:"hard_window"`
	Notes                 string `json:"notes"`

	Requirement *StopRequirement `gorm:"foreignKey:StopID;constraint:OnDelete:CASCADE;" json:"requirement,omitempty"`
	Payment     *StopPayment     `gorm:"foreignKey:StopID;constraint:OnDelete:CASCADE;" json:"payment,omitempty"`
	Photos      []StopPhoto      `gorm:"foreignKey:StopID;constraint:OnDelete:CASCADE;" json:"photos,omitempty"`
}

// StopRequirement holds the special-handling checklist of a stop (1:1).
type StopRequirement struct {
	gorm.Model
	StopID uint `json:"stop_id" gorm:"uniqueIndex"`

	GiveInvoice        bool `json:"give_invoice"`
	SignatureRequired  bool `json:"signature_required"`
	PhotosRequired     bool `json:"photos_required"`
	ChecklistRequired  bool `json:"checklist_required"`
	TwoPersonRequired  bool `json:"two_person_required"`
	LiftgateNeeded     bool `json:"liftgate_needed"`
	DockAppointment    bool `json:"dock_appointment"`
	IDCheck            bool `json:"id_check"`
	TemperatureControl bool `json:"temperature_control"`
	Contactless        bool `json:"contactless"`
	ContactBefore      bool `json:"contact_before"`
	PrintName          bool `json:"print_name"`

	AccessCode string `json:"access_code"`
	AccessInfo string `json:"access_info"`

	// RawFlags keeps the flag map exactly as the client sent it.
	RawFlags datatypes.JSON `json:"raw_flags"`
}

// StopPayment records that money is expected at a stop (1:1, optional).
type StopPayment struct {
	gorm.Model
	StopID uint `json:"stop_id" gorm:"uniqueIndex"`

	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	Status    string  `json:"status"`
}

// StopPhoto is an uploaded image attached to a stop.
type StopPhoto struct {
	gorm.Model
	StopID     uint   `json:"stop_id" gorm:"index"`
	UploadedBy uint   `json:"uploaded_by"`
	Category   string `json:"category"` // "invoice" or "other"
	URL        string `json:"url"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

