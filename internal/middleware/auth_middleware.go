package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuth проверяет access-токен и кладет в контекст user_id, role и email
func JWTAuth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Браузерный WebSocket не умеет ставить заголовки
			if t := c.Query("token"); t != "" && c.IsWebsocket() {
				authHeader = "Bearer " + t
			}
		}

		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Отсутствует токен авторизации", "code": "unauthorized"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Неверный формат токена", "code": "unauthorized"})
			return
		}

		claims, err := tokens.ValidateToken(parts[1], utils.TokenTypeAccess)
		if err != nil {
			log.Printf("Недействительный токен с %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен", "code": "unauthorized"})
			return
		}

		// Для админского токена user_id = 0
		if claims.Role == models.UserTypeAdmin {
			c.Set("user_id", claims.UserID)
			c.Set("role", models.UserTypeAdmin)
			c.Set("email", claims.Email)
			c.Next()
			return
		}

		if claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный ID пользователя", "code": "unauthorized"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Ставится после JWTAuth
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != models.UserTypeAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Доступ только для администратора", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
