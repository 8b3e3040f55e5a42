package handlers

import (
	"net/http"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PORequest struct {
	PONumber         string     `json:"po_number" binding:"required"`
	ZoneID           *uint      `json:"zone_id"`
	ExpReportingTime *time.Time `json:"exp_reporting_time"`
}

func POCreateOrGet(db *gorm.DB) gin.HandlerFunc {
	refs := services.NewReferenceResolver()
	return func(c *gin.Context) {
		var req PORequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Необходимо указать номер PO", "code": "validation_failure"})
			return
		}
		userID, _, _ := currentUser(c)

		var po *models.PurchaseOrder
		var created bool
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var err error
			po, created, err = refs.ResolvePO(c.Request.Context(), tx, services.POInput{
				Number:           req.PONumber,
				OwnerID:          userID,
				ZoneID:           req.ZoneID,
				ExpReportingTime: req.ExpReportingTime,
			})
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
		c.JSON(status, gin.H{"po": po, "created": created})
	}
}

func POListMine(lookup *services.LookupService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		pos, err := lookup.ListPurchaseOrders(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pos": pos})
	}
}
