package models

import (
	"time"
)

// RFTag - RFID-метка, выдаваемая на въезде
type RFTag struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Manufacturer string `json:"manufacturer,omitempty" gorm:"type:varchar(100)"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
	IsDeployed   bool   `json:"is_deployed" gorm:"default:false"`
}

func (RFTag) TableName() string {
	return "rf_tags"
}

// DriverVehicleTagging связывает водителя, помощника и ТС.
// Записи только добавляются, каждая заявка - новое событие
type DriverVehicleTagging struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DriverID   uint      `json:"driver_id" gorm:"not null;index"`
	HelperID   *uint     `json:"helper_id,omitempty" gorm:"index"`
	VehicleID  uint      `json:"vehicle_id" gorm:"not null;index"`
	IsVerified bool      `json:"is_verified" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	Driver     Identity  `json:"-" gorm:"foreignKey:DriverID"`
	Helper     *Identity `json:"-" gorm:"foreignKey:HelperID"`
	Vehicle    Vehicle   `json:"-" gorm:"foreignKey:VehicleID"`
}

// PODriverVehicleTagging привязывает связку водитель-ТС к заказу.
// Его ID кодируется в QR-пропуске
type PODriverVehicleTagging struct {
	ID                     uint                 `json:"id" gorm:"primaryKey;autoIncrement"`
	POID                   string               `json:"po_id" gorm:"column:po_id;not null;index;type:varchar(100)"`
	DriverVehicleTaggingID uint                 `json:"driver_vehicle_tagging_id" gorm:"not null;index"`
	RFTagID                *uint                `json:"rftag_id,omitempty" gorm:"column:rftag_id"`
	ActReportingTime       *time.Time           `json:"act_reporting_time,omitempty"`
	ExitTime               *time.Time           `json:"exit_time,omitempty"`
	CreatedAt              time.Time            `json:"created_at" gorm:"autoCreateTime"`
	PurchaseOrder          PurchaseOrder        `json:"-" gorm:"foreignKey:POID"`
	DriverVehicleTagging   DriverVehicleTagging `json:"-" gorm:"foreignKey:DriverVehicleTaggingID"`
	RFTag                  *RFTag               `json:"-" gorm:"foreignKey:RFTagID"`
}
