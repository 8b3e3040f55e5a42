package models

import (
	"time"

	"gorm.io/datatypes"
)

// Vehicle - транспортное средство, ключ - нормализованный госномер
type Vehicle struct {
	ID              uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	RegistrationNo  string            `json:"vehicle_registration_no" gorm:"column:registration_no;uniqueIndex;not null;type:varchar(50)"`
	OwnerCustomerID *uint             `json:"owner_customer_id,omitempty" gorm:"column:owner_customer_id;index"`
	Remark          string            `json:"remark,omitempty" gorm:"column:remark;type:text"`
	Ratings         *int              `json:"ratings,omitempty" gorm:"column:ratings"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt       time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Vehicle) TableName() string {
	return "vehicle_details"
}

// VehicleLookupResponse - данные для автозаполнения формы по номеру ТС
type VehicleLookupResponse struct {
	Vehicle   Vehicle    `json:"vehicle"`
	Driver    *Identity  `json:"driver"`
	Helper    *Identity  `json:"helper"`
	Documents []Document `json:"documents"`
}
