package models

import (
	"time"
)

type IdentityRole string

const (
	RoleDriver IdentityRole = "Driver" // Водитель
	RoleHelper IdentityRole = "Helper" // Помощник водителя
)

// SupportedLanguages - языки, на которых водитель получает уведомления
var SupportedLanguages = map[string]string{
	"en":  "English",
	"hi":  "Hindi",
	"mr":  "Marathi",
	"gu":  "Gujarati",
	"ta":  "Tamil",
	"te":  "Telugu",
	"kn":  "Kannada",
	"ml":  "Malayalam",
	"bn":  "Bengali",
	"or":  "Odia",
	"pa":  "Punjabi",
	"as":  "Assamese",
	"ur":  "Urdu",
	"sa":  "Sanskrit",
	"mai": "Maithili",
}

const DefaultLanguage = "en"

// Identity - водитель или помощник. Телефон и национальный ID уникальны
type Identity struct {
	ID            uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	NationalID    *string      `json:"national_id,omitempty" gorm:"column:national_id;uniqueIndex;type:varchar(32)"`
	Name          string       `json:"name" gorm:"column:name;not null;type:varchar(100)"`
	Phone         string       `json:"phone" gorm:"column:phone;uniqueIndex;not null;type:varchar(20)"`
	Role          IdentityRole `json:"role" gorm:"column:role;not null;type:varchar(10);index"`
	Language      string       `json:"language" gorm:"column:language;type:varchar(5);default:'en'"`
	IsBlacklisted bool         `json:"is_blacklisted" gorm:"column:is_blacklisted;default:false"`
	Rating        *int         `json:"rating" gorm:"column:rating"`
	CreatedAt     time.Time    `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Identity) TableName() string {
	return "driver_helpers"
}

// IsValidRole проверяет, что роль - Driver или Helper
func IsValidRole(role IdentityRole) bool {
	return role == RoleDriver || role == RoleHelper
}
