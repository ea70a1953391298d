package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_planner/internal/config"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
	"route_planner/internal/repository"
)

type partyInput struct {
	Contact models.ContactInfo   `json:"contact"`
	Address models.AddressFields `json:"address"`
	Lat     *float64             `json:"lat"`
	Lng     *float64             `json:"lng"`
}

func (p partyInput) validate() string {
	if p.Contact.Name == "" && p.Contact.BusinessName == "" {
		return "contact.name or contact.business_name is required"
	}
	if (p.Lat == nil) != (p.Lng == nil) {
		return "lat and lng must be given together"
	}
	return ""
}

// ListCustomers returns the directory entries used by the identity step.
func ListCustomers(c *gin.Context) {
	businessID, _ := middleware.ClaimID(c, "business_id")
	parties, err := repository.New(config.DB).ListCustomers(c, businessID)
	if err != nil {
		logrus.WithError(err).Error("ListCustomers: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch customers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": parties})
}

func CreateCustomer(c *gin.Context) {
	var input partyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	businessID, _ := middleware.ClaimID(c, "business_id")

	customer := models.Customer{BusinessID: businessID, Contact: input.Contact, Address: input.Address, Lat: input.Lat, Lng: input.Lng}
	if err := repository.New(config.DB).CreateCustomer(c, &customer); err != nil {
		logrus.WithError(err).Error("CreateCustomer: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create customer"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

func ListVendors(c *gin.Context) {
	businessID, _ := middleware.ClaimID(c, "business_id")
	parties, err := repository.New(config.DB).ListVendors(c, businessID)
	if err != nil {
		logrus.WithError(err).Error("ListVendors: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch vendors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": parties})
}

func CreateVendor(c *gin.Context) {
	var input partyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := input.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	businessID, _ := middleware.ClaimID(c, "business_id")

	vendor := models.Vendor{BusinessID: businessID, Contact: input.Contact, Address: input.Address, Lat: input.Lat, Lng: input.Lng}
	if err := repository.New(config.DB).CreateVendor(c, &vendor); err != nil {
		logrus.WithError(err).Error("CreateVendor: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create vendor"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
}
