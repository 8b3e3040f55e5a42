package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"

	"gorm.io/gorm"
)

// StatusNotifier доставляет клиенту смену статуса заявки (WebSocket)
type StatusNotifier interface {
	SendSubmissionStatusUpdate(userID, submissionID uint, status string)
}

type SubmissionService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier StatusNotifier
}

func NewSubmissionService(db *gorm.DB, audit *AuditService, notifier StatusNotifier) *SubmissionService {
	return &SubmissionService{db: db, audit: audit, notifier: notifier}
}

// List возвращает заявки клиента; администратор видит все
func (s *SubmissionService) List(ctx context.Context, customerID uint, isAdmin bool) ([]models.GateEntrySubmission, error) {
	q := s.db.WithContext(ctx).Preload("Vehicle").Preload("Driver").Preload("Helper")
	if !isAdmin {
		q = q.Where("customer_user_id = ?", customerID)
	}
	var subs []models.GateEntrySubmission
	if err := q.Order("created_at DESC, id DESC").Find(&subs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения заявок", err)
	}
	return subs, nil
}

func (s *SubmissionService) Get(ctx context.Context, id, customerID uint, isAdmin bool) (*models.GateEntrySubmission, error) {
	q := s.db.WithContext(ctx).Preload("Vehicle").Preload("Driver").Preload("Helper").Where("id = ?", id)
	if !isAdmin {
		q = q.Where("customer_user_id = ?", customerID)
	}
	var sub models.GateEntrySubmission
	err := q.First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ReferenceNotFound("Заявка не найдена")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска заявки", err)
	}
	return &sub, nil
}

// UpdateStatus меняет статус заявки, пишет STATUS_CHANGED и уведомляет клиента
func (s *SubmissionService) UpdateStatus(ctx context.Context, id uint, status models.SubmissionStatus, actorEmail, ip string) (*models.GateEntrySubmission, error) {
	if !models.IsValidSubmissionStatus(status) {
		return nil, apperrors.Validation(fmt.Sprintf("Недопустимый статус: %s", status))
	}

	var sub models.GateEntrySubmission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ReferenceNotFound("Заявка не найдена")
			}
			return apperrors.Wrap(apperrors.KindInternal, "ошибка поиска заявки", err)
		}
		previous := sub.Status
		if previous == status {
			return nil
		}
		if err := tx.Model(&sub).Update("status", status).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось обновить статус", err)
		}
		return s.audit.Record(ctx, tx, &models.AuditLog{
			SubmissionID: &sub.ID,
			Action:       models.AuditStatusChanged,
			Description:  fmt.Sprintf("Статус изменен: %s -> %s", previous, status),
			UserEmail:    actorEmail,
			IPAddress:    ip,
		})
	})
	if err != nil {
		return nil, err
	}
	sub.Status = status

	if s.notifier != nil {
		s.notifier.SendSubmissionStatusUpdate(sub.CustomerUserID, sub.ID, string(status))
	} else {
		log.Printf("Уведомление о статусе заявки %d не отправлено: WebSocket не настроен", sub.ID)
	}
	return &sub, nil
}
