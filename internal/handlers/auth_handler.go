package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/services"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"first_name" binding:"max=100"`
	LastName    string `json:"last_name" binding:"max=100"`
	Telephone   string `json:"telephone" binding:"max=20"`
	CompanyName string `json:"company_name" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	User   *models.Customer `json:"user,omitempty"`
	Tokens *utils.TokenPair `json:"tokens,omitempty"`
}

func AuthRegister(db *gorm.DB, tokens *utils.TokenIssuer, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error(), "code": "validation_failure"})
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Username = strings.TrimSpace(req.Username)

		hash, err := utils.HashPassword(req.Password, bcryptCost)
		if err != nil {
			log.Printf("Ошибка хэширования пароля: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		customer := models.Customer{
			Email:        req.Email,
			Username:     req.Username,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Telephone:    req.Telephone,
			CompanyName:  req.CompanyName,
			PasswordHash: hash,
			UserType:     models.UserTypeCustomer,
		}
		if err := db.Create(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Пользователь с таким email или именем уже существует", "code": "conflict"})
				return
			}
			log.Printf("Ошибка при создании пользователя %s: %v", req.Email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		pair, err := tokens.IssuePair(customer.ID, customer.Email, customer.UserType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{User: &customer, Tokens: pair})
	}
}

func AuthLogin(db *gorm.DB, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных", "code": "validation_failure"})
			return
		}

		var customer models.Customer
		err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&customer).Error
		if err != nil || !utils.VerifyPassword(customer.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль", "code": "unauthorized"})
			return
		}

		pair, err := tokens.IssuePair(customer.ID, customer.Email, customer.UserType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusOK, AuthResponse{User: &customer, Tokens: pair})
	}
}

// AuthRefresh обменивает refresh-токен на новую пару; старый отзывается
func AuthRefresh(tokens *utils.TokenIssuer, blacklist *services.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных", "code": "validation_failure"})
			return
		}

		claims, err := tokens.ValidateToken(req.RefreshToken, utils.TokenTypeRefresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный refresh-токен", "code": "unauthorized"})
			return
		}

		revoked, err := blacklist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh-токен отозван", "code": "unauthorized"})
			return
		}

		if err := blacklist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Printf("Не удалось отозвать refresh-токен %s: %v", claims.ID, err)
		}

		pair, err := tokens.IssuePair(claims.UserID, claims.Email, claims.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Tokens: pair})
	}
}

func AuthLogout(tokens *utils.TokenIssuer, blacklist *services.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных", "code": "validation_failure"})
			return
		}

		claims, err := tokens.ValidateToken(req.RefreshToken, utils.TokenTypeRefresh)
		if err != nil {
			// Просроченный или чужой токен: выходить уже не из чего
			c.JSON(http.StatusOK, gin.H{"message": "Выход выполнен"})
			return
		}
		if claims.UserID != c.GetUint("user_id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "Токен принадлежит другому пользователю", "code": "forbidden"})
			return
		}

		expiresAt := time.Now()
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := blacklist.Revoke(c.Request.Context(), claims.ID, expiresAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось завершить сеанс"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Выход выполнен"})
	}
}

// GetCurrentUser возвращает профиль текущего пользователя
func GetCurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, isAdmin := currentUser(c)
		if isAdmin && userID == 0 {
			c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": 0, "email": email, "user_type": models.UserTypeAdmin}})
			return
		}

		var customer models.Customer
		if err := db.First(&customer, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден", "code": "reference_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": customer})
	}
}
