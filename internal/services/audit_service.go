package services

import (
	"context"
	"fmt"
	"log"

	"github.com/Arnav10090/Customer-web-portal/internal/models"

	"gorm.io/gorm"
)

// AuditService пишет события по заявкам в audit_logs
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record пишет событие через tx, если он передан, иначе через основное соединение
func (s *AuditService) Record(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error {
	db := s.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("не удалось записать событие %s: %w", entry.Action, err)
	}
	return nil
}

// RecordBestEffort пишет событие вне транзакции и только логирует ошибку
func (s *AuditService) RecordBestEffort(ctx context.Context, entry *models.AuditLog) {
	if err := s.Record(ctx, nil, entry); err != nil {
		log.Printf("Ошибка журнала аудита: %v", err)
	}
}

func (s *AuditService) ListBySubmission(ctx context.Context, submissionID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("timestamp ASC, id ASC").
		Find(&logs).Error
	return logs, err
}
