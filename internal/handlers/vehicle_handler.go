package handlers

import (
	"log"
	"net/http"

	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VehicleRequest struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
}

func VehicleList(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		vehicles, err := lookup.ListVehicles(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
	}
}

// VehicleLookup возвращает данные для автозаполнения формы пропуска
func VehicleLookup(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		result, err := lookup.LookupVehicle(c.Request.Context(), userID, c.Param("plate"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func VehicleCreateOrGet(db *gorm.DB, cache *services.LookupCache) gin.HandlerFunc {
	refs := services.NewReferenceResolver()
	return func(c *gin.Context) {
		var req VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Необходимо указать госномер ТС", "code": "validation_failure"})
			return
		}
		userID, _, _ := currentUser(c)

		var vehicle *models.Vehicle
		var created bool
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var err error
			vehicle, created, err = refs.ResolveVehicle(c.Request.Context(), tx, req.VehicleNumber, &userID)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		} else {
			if err := cache.Invalidate(c.Request.Context(), cache.VehicleLookupKey(userID, vehicle.RegistrationNo)); err != nil {
				log.Printf("Не удалось сбросить кэш ТС %s: %v", vehicle.RegistrationNo, err)
			}
		}
		c.JSON(status, gin.H{"vehicle": vehicle, "created": created})
	}
}

func VehicleDelete(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := lookup.DeleteVehicle(c.Request.Context(), c.Param("plate")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ТС удалено"})
	}
}
