package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"route_planner/internal/config"
	"route_planner/internal/middleware"
	"route_planner/internal/models"
)

type signupInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
	BusinessName string `json:"business_name"`
	BusinessID   uint   `json:"business_id"`
}

var (
	errInvalidRole      = errors.New("invalid role")
	errBusinessName     = errors.New("business_name is required for owner role")
	errBusinessRequired = errors.New("business_id is required for this role")
	errBusinessMissing  = errors.New("business with the provided business_id does not exist")
)

func SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := validateAndNormalizeRole(input.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Role = role

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	var user models.User
	err = config.DB.WithContext(c).Transaction(func(tx *gorm.DB) error {
		businessID, err := resolveBusiness(tx, input)
		if err != nil {
			return err
		}
		user = models.User{
			Name:       input.Name,
			Email:      strings.ToLower(input.Email),
			Password:   hashedPassword,
			Phone:      input.Phone,
			Role:       input.Role,
			BusinessID: businessID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		var pgErr *pq.Error
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == "23505":
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		case errors.Is(err, errBusinessName), errors.Is(err, errBusinessRequired), errors.Is(err, errBusinessMissing):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logrus.WithError(err).Error("SignupUser: could not create user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		}
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.BusinessID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

// resolveBusiness creates the owner's business or checks the one a
// dispatcher/driver joins.
func resolveBusiness(tx *gorm.DB, input signupInput) (uint, error) {
	if input.Role == models.RoleOwner {
		if strings.TrimSpace(input.BusinessName) == "" {
			return 0, errBusinessName
		}
		biz := models.Business{
			Name:  input.BusinessName,
			Owner: input.Name,
			Email: strings.ToLower(input.Email),
			Phone: input.Phone,
		}
		if err := tx.Create(&biz).Error; err != nil {
			return 0, err
		}
		return biz.ID, nil
	}

	if input.BusinessID == 0 {
		return 0, errBusinessRequired
	}
	var biz models.Business
	if err := tx.Select("id").First(&biz, input.BusinessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errBusinessMissing
		}
		return 0, err
	}
	return biz.ID, nil
}

func LoginUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := config.DB.WithContext(c).
		Where("email = ?", strings.ToLower(body.Email)).
		Preload("Business").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.BusinessID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

func validateAndNormalizeRole(roleInput string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(roleInput))
	if role == "" {
		role = models.RoleDispatcher
	}
	switch role {
	case models.RoleOwner, models.RoleDispatcher, models.RoleDriver:
		return role, nil
	default:
		return "", errInvalidRole
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func prepareUserResponse(user models.User) gin.H {
	responseUser := gin.H{
		"ID":          user.ID,
		"CreatedAt":   user.CreatedAt,
		"name":        user.Name,
		"email":       user.Email,
		"phone":       user.Phone,
		"role":        user.Role,
		"business_id": user.BusinessID,
	}
	if user.Business != nil {
		responseUser["business"] = gin.H{
			"ID":   user.Business.ID,
			"name": user.Business.Name,
		}
	}
	return responseUser
}
