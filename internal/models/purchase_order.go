package models

import (
	"time"
)

// Zone - зона площадки (DAP), к которой привязан заказ
type Zone struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ZoneName  string    `json:"zone_name" gorm:"type:varchar(100)"`
	TypeName  string    `json:"type_name" gorm:"type:varchar(50)"`
	IsWorking bool      `json:"is_working" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PurchaseOrder - заказ на поставку, первичный ключ - номер PO
type PurchaseOrder struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(100)"`
	ZoneID           *uint      `json:"zone_id,omitempty" gorm:"column:zone_id"`
	CustomerUserID   *uint      `json:"customer_user_id" gorm:"column:customer_user_id;index"`
	ExpReportingTime *time.Time `json:"exp_reporting_time,omitempty" gorm:"column:exp_reporting_time"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	Zone             *Zone      `json:"zone,omitempty" gorm:"foreignKey:ZoneID"`
}

func (PurchaseOrder) TableName() string {
	return "po_details"
}
