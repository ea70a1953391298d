package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"route_planner/internal/config"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

func loadBusiness(c *gin.Context) (models.Business, bool) {
	businessID, err := middleware.ClaimID(c, "business_id")
	if err != nil || businessID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not linked to a business"})
		return models.Business{}, false
	}
	var biz models.Business
	if err := config.DB.WithContext(c).First(&biz, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Business not found"})
		} else {
			logrus.WithError(err).Error("loadBusiness: database error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load business"})
		}
		return models.Business{}, false
	}
	return biz, true
}

// GetBusiness returns the caller's business profile.
func GetBusiness(c *gin.Context) {
	biz, ok := loadBusiness(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"business": biz})
}

// UpdateBusiness modifies the caller's business profile
func UpdateBusiness(c *gin.Context) {
	biz, ok := loadBusiness(c)
	if !ok {
		return
	}

	var input struct {
		Name    *string `json:"name"`
		Owner   *string `json:"owner"`
		Email   *string `json:"email" binding:"omitempty,email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		biz.Name = *input.Name
	}
	if input.Owner != nil {
		biz.Owner = *input.Owner
	}
	if input.Email != nil {
		biz.Email = *input.Email
	}
	if input.Phone != nil {
		biz.Phone = *input.Phone
	}
	if input.Address != nil {
		biz.Address = *input.Address
	}

	if err := config.DB.WithContext(c).Save(&biz).Error; err != nil {
		logrus.WithError(err).Error("UpdateBusiness: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"business": biz})
}
