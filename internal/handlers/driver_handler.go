package handlers

import (
	"net/http"
	"strconv"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DriverValidateOrCreate проверяет водителя/помощника по телефону и Aadhaar
// и создает запись, если совпадений нет
func DriverValidateOrCreate(db *gorm.DB) gin.HandlerFunc {
	identities := services.NewIdentityResolver()
	return func(c *gin.Context) {
		var req services.IdentityInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных", "code": "validation_failure"})
			return
		}
		if req.Role == "" {
			req.Role = models.RoleDriver
		}

		var identity *models.Identity
		var created bool
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var err error
			identity, created, err = identities.Resolve(c.Request.Context(), tx, req)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"driver": identity, "created": created})
	}
}

func DriverList(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identities, err := lookup.ListIdentities(c.Request.Context(), models.IdentityRole(c.Query("type")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drivers": identities})
	}
}

// DriversByVehicle возвращает водителей и помощников, ездивших на ТС
func DriversByVehicle(db *gorm.DB, lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		plate, err := services.NormalizePlate(c.Query("vehicle_number"))
		if err != nil {
			respondError(c, err)
			return
		}

		var vehicle models.Vehicle
		if err := db.WithContext(c.Request.Context()).Where("registration_no = ?", plate).First(&vehicle).Error; err != nil {
			respondError(c, apperrors.ReferenceNotFound("ТС "+plate+" не найдено"))
			return
		}

		crew, err := lookup.IdentitiesByVehicle(c.Request.Context(), vehicle.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vehicle": vehicle, "drivers": crew.Drivers, "helpers": crew.Helpers})
	}
}

func DriverDelete(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный ID", "code": "validation_failure"})
			return
		}
		identity, err := lookup.DeleteIdentity(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Запись удалена", "driver": identity})
	}
}
