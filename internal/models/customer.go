package models

import (
	"time"
)

const (
	UserTypeCustomer = "customer"
	UserTypeAdmin    = "admin"
)

// Customer - учетная запись клиента портала
type Customer struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;type:varchar(255)"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null;type:varchar(100)"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName     string    `json:"last_name" gorm:"type:varchar(100)"`
	Telephone    string    `json:"telephone" gorm:"type:varchar(20)"`
	CompanyName  string    `json:"company_name" gorm:"type:varchar(200)"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	UserType     string    `json:"user_type" gorm:"type:varchar(20);default:'customer'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customer_users"
}

func (c *Customer) IsAdmin() bool {
	return c.UserType == UserTypeAdmin
}
