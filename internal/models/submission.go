package models

import (
	"time"
)

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"   // Ожидает проверки
	SubmissionStatusApproved  SubmissionStatus = "approved"  // Пропуск одобрен
	SubmissionStatusRejected  SubmissionStatus = "rejected"  // Пропуск отклонен
	SubmissionStatusCompleted SubmissionStatus = "completed" // ТС прошло через КПП
)

func IsValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected, SubmissionStatusCompleted:
		return true
	}
	return false
}

// GateEntrySubmission - заявка на въезд с QR-пропуском.
// QRPayloadHash заполняется после генерации QR внутри той же транзакции
type GateEntrySubmission struct {
	ID                       uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerUserID           uint             `json:"customer_user_id" gorm:"not null;index"`
	CustomerEmail            string           `json:"customer_email" gorm:"type:varchar(255);not null"`
	CustomerPhone            string           `json:"customer_phone" gorm:"type:varchar(20)"`
	VehicleID                uint             `json:"vehicle_id" gorm:"not null"`
	DriverID                 uint             `json:"driver_id" gorm:"not null"`
	HelperID                 *uint            `json:"helper_id,omitempty"`
	PODriverVehicleTaggingID uint             `json:"po_driver_vehicle_tagging_id" gorm:"column:po_driver_vehicle_tagging_id;not null"`
	QRCodeImage              string           `json:"qr_code_image" gorm:"column:qr_code_image;type:varchar(500)"`
	QRPayloadHash            *string          `json:"qr_payload_hash" gorm:"column:qr_payload_hash;uniqueIndex;type:varchar(64)"`
	Status                   SubmissionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt                time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
	Vehicle                  *Vehicle         `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Driver                   *Identity        `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Helper                   *Identity        `json:"helper,omitempty" gorm:"foreignKey:HelperID"`
}

const (
	AuditSubmissionCreated = "SUBMISSION_CREATED"
	AuditEmailSent         = "EMAIL_SENT"
	AuditEmailFailed       = "EMAIL_FAILED"
	AuditSMSQueued         = "SMS_QUEUED"
	AuditSMSFailed         = "SMS_FAILED"
	AuditStatusChanged     = "STATUS_CHANGED"
)

// AuditLog - журнал событий по заявке
type AuditLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SubmissionID *uint     `json:"submission_id,omitempty" gorm:"index"`
	Action       string    `json:"action" gorm:"type:varchar(50);not null;index"`
	Description  string    `json:"description" gorm:"type:text"`
	UserEmail    string    `json:"user_email,omitempty" gorm:"type:varchar(255)"`
	IPAddress    string    `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	Timestamp    time.Time `json:"timestamp" gorm:"autoCreateTime"`
}
