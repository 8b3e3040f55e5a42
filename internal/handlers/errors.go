package handlers

import (
	"log"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/middleware"

	"github.com/gin-gonic/gin"
)

// respondError переводит ошибку сервиса в HTTP-ответ {"error", "code"}
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		log.Printf("Ошибка обработки %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.Set(middleware.ErrorCodeKey, string(kind))
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err), "code": kind})
}

// currentUser возвращает данные пользователя из JWT
func currentUser(c *gin.Context) (id uint, email string, isAdmin bool) {
	return c.GetUint("user_id"), c.GetString("email"), c.GetString("role") == "admin"
}
